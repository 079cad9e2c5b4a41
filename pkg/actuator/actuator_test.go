package actuator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/input"
)

func TestSteeringDuty(t *testing.T) {
	expectDuty(t, 0, 2.0)
	expectDuty(t, 90, 7.0)
	expectDuty(t, 180, 12.0)
	expectDuty(t, 5, 5.0/18+2)
}

func expectDuty(t *testing.T, angle int, expected float64) {
	if d := SteeringDuty(angle); math.Abs(d-expected) > 1e-9 {
		t.Errorf("SteeringDuty(%d) = %f, expected %f", angle, d, expected)
	}
}

func TestSteerClampsAtBothEnds(t *testing.T) {
	var s State
	if _, ok := s.Steer(input.TokenLeft); !ok {
		t.Fatal("left should be handled")
	}
	if s.SteeringAngle != 0 {
		t.Fatalf("left from 0 should stay at 0, got %d", s.SteeringAngle)
	}

	for i := 0; i < 50; i++ {
		s.Steer(input.TokenRight)
	}
	if s.SteeringAngle != SteeringMax {
		t.Fatalf("Expected angle to saturate at %d, got %d", SteeringMax, s.SteeringAngle)
	}
	cmd, _ := s.Steer(input.TokenRight)
	if cmd.DutyPercent != 12.0 {
		t.Fatalf("Expected 12%% duty at full right, got %f", cmd.DutyPercent)
	}
}

func TestSteerIgnoresOtherTokens(t *testing.T) {
	s := State{SteeringAngle: 45, MotorSpeed: 30}
	for _, tok := range []input.Token{input.TokenUp, input.TokenDown, input.TokenStop, input.TokenQuit, input.TokenNone} {
		if _, ok := s.Steer(tok); ok {
			t.Errorf("Steer(%v) should be a no-op", tok)
		}
	}
	if s.SteeringAngle != 45 || s.MotorSpeed != 30 {
		t.Fatalf("State changed: %v", s)
	}
}

func TestDriveDirection(t *testing.T) {
	var s State
	cmd, ok := s.Drive(input.TokenUp)
	if !ok || cmd.Direction != Forward || cmd.DutyPercent != 10 || !cmd.SetDirection {
		t.Fatalf("Unexpected command after up: %+v", cmd)
	}

	s.Drive(input.TokenDown)
	cmd, _ = s.Drive(input.TokenDown)
	if s.MotorSpeed != -10 {
		t.Fatalf("Expected speed -10, got %d", s.MotorSpeed)
	}
	if cmd.Direction != Reverse || cmd.DutyPercent != 10 {
		t.Fatalf("Unexpected command in reverse: %+v", cmd)
	}
	in1, in2 := cmd.Direction.Levels()
	if !in1 || in2 {
		t.Fatalf("Reverse should be IN1 high, IN2 low; got %v, %v", in1, in2)
	}
	in1, in2 = Forward.Levels()
	if in1 || !in2 {
		t.Fatalf("Forward should be IN1 low, IN2 high; got %v, %v", in1, in2)
	}
}

func TestDriveZeroIsForward(t *testing.T) {
	s := State{MotorSpeed: -10}
	cmd, _ := s.Drive(input.TokenUp)
	if cmd.Direction != Forward || cmd.DutyPercent != 0 {
		t.Fatalf("Speed 0 should drive forward at 0%%, got %+v", cmd)
	}
}

func TestStop(t *testing.T) {
	for _, speed := range []int{-100, -30, 0, 50, 100} {
		s := State{SteeringAngle: 90, MotorSpeed: speed}
		cmd := s.Stop()
		if s.MotorSpeed != 0 || cmd.DutyPercent != 0 || cmd.SetDirection {
			t.Errorf("Stop from %d: state %v, command %+v", speed, s, cmd)
		}
		if s.SteeringAngle != 90 {
			t.Errorf("Stop should not touch steering, got %d", s.SteeringAngle)
		}
	}
}

func TestRandomSequencesStayInRange(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	tokens := []input.Token{input.TokenUp, input.TokenDown, input.TokenLeft, input.TokenRight}
	var s State
	for i := 0; i < 10000; i++ {
		prev := s
		tok := tokens[r.Intn(len(tokens))]
		s.Steer(tok)
		s.Drive(tok)

		if s.SteeringAngle < SteeringMin || s.SteeringAngle > SteeringMax {
			t.Fatalf("Angle out of range after %v: %v", tok, s)
		}
		if s.MotorSpeed < SpeedMin || s.MotorSpeed > SpeedMax {
			t.Fatalf("Speed out of range after %v: %v", tok, s)
		}

		switch tok {
		case input.TokenLeft:
			expectStep(t, prev.SteeringAngle, s.SteeringAngle, -SteeringStep, SteeringMin, SteeringMax)
		case input.TokenRight:
			expectStep(t, prev.SteeringAngle, s.SteeringAngle, SteeringStep, SteeringMin, SteeringMax)
		case input.TokenUp:
			expectStep(t, prev.MotorSpeed, s.MotorSpeed, SpeedStep, SpeedMin, SpeedMax)
		case input.TokenDown:
			expectStep(t, prev.MotorSpeed, s.MotorSpeed, -SpeedStep, SpeedMin, SpeedMax)
		}
	}
}

func expectStep(t *testing.T, before, after, step, lo, hi int) {
	t.Helper()
	want := before + step
	if want < lo {
		want = lo
	} else if want > hi {
		want = hi
	}
	if after != want {
		t.Fatalf("Stepping %d by %d gave %d, expected %d", before, step, after, want)
	}
}

func TestExampleScenario(t *testing.T) {
	var s State
	var steering SteeringCommand
	var motor MotorCommand
	for _, tok := range []input.Token{
		input.TokenRight, input.TokenRight, input.TokenUp, input.TokenUp, input.TokenUp, input.TokenLeft,
	} {
		if cmd, ok := s.Steer(tok); ok {
			steering = cmd
		}
		if cmd, ok := s.Drive(tok); ok {
			motor = cmd
		}
	}
	if s.SteeringAngle != 5 || s.MotorSpeed != 30 {
		// Three ups from rest.
		t.Fatalf("Unexpected final state %v", s)
	}
	if math.Abs(steering.DutyPercent-(5.0/18+2)) > 1e-9 {
		t.Fatalf("Unexpected steering duty %f", steering.DutyPercent)
	}
	if motor.Direction != Forward || motor.DutyPercent != 30 {
		t.Fatalf("Unexpected motor command %+v", motor)
	}
}
