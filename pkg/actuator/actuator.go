package actuator

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/input"
)

const (
	SteeringMin  = 0
	SteeringMax  = 180
	SteeringStep = 5

	SpeedMin  = -100
	SpeedMax  = 100
	SpeedStep = 10
)

// Direction is the polarity of the H-bridge inputs.
type Direction uint8

const (
	// Forward drives IN1 low and IN2 high.
	Forward Direction = iota
	// Reverse drives IN1 high and IN2 low.
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(d))
	}
}

// Levels returns the IN1, IN2 levels for the direction (true = high).
func (d Direction) Levels() (in1, in2 bool) {
	if d == Reverse {
		return true, false
	}
	return false, true
}

// State holds the two actuator registers.  The zero value is the power-on
// state: wheels at angle 0, motor stopped.
type State struct {
	SteeringAngle int
	MotorSpeed    int
}

// SteeringCommand is what the steering channel should be driven at.
type SteeringCommand struct {
	DutyPercent float64
}

// MotorCommand is what the motor channels should be driven at.
type MotorCommand struct {
	DutyPercent float64
	Direction   Direction
	// SetDirection is false when the direction pins must be left alone.
	SetDirection bool
}

// SteeringDuty maps a servo angle in degrees to a duty cycle percentage at
// 50Hz: 0 degrees = 2%, 180 degrees = 12%.
func SteeringDuty(angle int) float64 {
	return float64(angle)/18 + 2
}

// Steer applies a left/right token.  Any other token leaves the state alone
// and returns ok=false so that no write is issued.
func (s *State) Steer(t input.Token) (cmd SteeringCommand, ok bool) {
	switch t {
	case input.TokenLeft:
		s.SteeringAngle -= SteeringStep
	case input.TokenRight:
		s.SteeringAngle += SteeringStep
	default:
		return SteeringCommand{}, false
	}
	s.SteeringAngle = clamp(s.SteeringAngle, SteeringMin, SteeringMax)
	return s.Steering(), true
}

// Steering returns the command for the current angle.
func (s *State) Steering() SteeringCommand {
	return SteeringCommand{DutyPercent: SteeringDuty(s.SteeringAngle)}
}

// Drive applies an up/down token.  Any other token is a no-op.
func (s *State) Drive(t input.Token) (cmd MotorCommand, ok bool) {
	switch t {
	case input.TokenUp:
		s.MotorSpeed += SpeedStep
	case input.TokenDown:
		s.MotorSpeed -= SpeedStep
	default:
		return MotorCommand{}, false
	}
	s.MotorSpeed = clamp(s.MotorSpeed, SpeedMin, SpeedMax)
	return s.Motor(), true
}

// Motor returns the command for the current speed, including direction.
func (s *State) Motor() MotorCommand {
	if s.MotorSpeed >= 0 {
		return MotorCommand{
			DutyPercent:  float64(s.MotorSpeed),
			Direction:    Forward,
			SetDirection: true,
		}
	}
	return MotorCommand{
		DutyPercent:  float64(-s.MotorSpeed),
		Direction:    Reverse,
		SetDirection: true,
	}
}

// Stop zeroes the motor speed.  The returned command cuts the PWM without
// touching the direction pins.
func (s *State) Stop() MotorCommand {
	s.MotorSpeed = 0
	return MotorCommand{DutyPercent: 0, SetDirection: false}
}

func (s State) String() string {
	return fmt.Sprintf("angle=%d speed=%d", s.SteeringAngle, s.MotorSpeed)
}

func clamp[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
