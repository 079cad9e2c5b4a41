package teleop

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/actuator"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/drive"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/input"
)

const (
	pinSteering = 27
	pinEnable   = 19
	pinIn1      = 26
	pinIn2      = 13
)

func newTestLoop() (*Loop, *hardware.Dummy) {
	hw := hardware.NewDummy()
	hw.Quiet = true
	d, err := drive.Open(hw, hw, drive.Pins{
		Steering:   pinSteering,
		SteeringHz: drive.DefaultSteeringHz,
		Enable:     pinEnable,
		MotorHz:    drive.DefaultMotorHz,
		In1:        pinIn1,
		In2:        pinIn2,
	})
	if err != nil {
		panic(err)
	}
	return New(d), hw
}

func feed(tokens ...input.Token) <-chan input.Token {
	c := make(chan input.Token, len(tokens))
	for _, t := range tokens {
		c <- t
	}
	close(c)
	return c
}

// What the pins looked like after the most recent update.
type pinSnapshot struct {
	steering, motor float64
	in1, in2        bool
}

func snapshot(hw *hardware.Dummy) pinSnapshot {
	return pinSnapshot{
		steering: hw.Duty(pinSteering),
		motor:    hw.Duty(pinEnable),
		in1:      hw.Level(pinIn1),
		in2:      hw.Level(pinIn2),
	}
}

func TestLoop(t *testing.T) {
	Convey("Given a loop on dummy hardware", t, func() {
		l, hw := newTestLoop()
		var published []actuator.State
		var last pinSnapshot
		l.OnUpdate = func(s actuator.State) {
			published = append(published, s)
			last = snapshot(hw)
		}

		Convey("the example drive sequence ends in the expected state", func() {
			err := l.Run(context.Background(), feed(
				input.TokenRight, input.TokenRight,
				input.TokenUp, input.TokenUp,
				input.TokenLeft,
				input.TokenQuit,
			))
			So(err, ShouldBeNil)
			So(l.State(), ShouldResemble, actuator.State{SteeringAngle: 5, MotorSpeed: 20})

			So(last.steering, ShouldAlmostEqual, 5.0/18+2, 1e-9)
			So(last.motor, ShouldEqual, 20.0)
			So(last.in1, ShouldBeFalse)
			So(last.in2, ShouldBeTrue)
			So(published, ShouldHaveLength, 6)
			So(published[5], ShouldResemble, actuator.State{SteeringAngle: 5, MotorSpeed: 20})

			Convey("and teardown zeroes the motor and releases the pins", func() {
				So(hw.Duty(pinEnable), ShouldEqual, 0.0)
				So(hw.Level(pinIn1), ShouldBeFalse)
				So(hw.Level(pinIn2), ShouldBeFalse)
				So(hw.Halted(pinSteering), ShouldBeTrue)
				So(hw.Halted(pinEnable), ShouldBeTrue)
				So(hw.Closed(), ShouldBeTrue)
			})
		})

		Convey("a stop token zeroes speed without touching direction", func() {
			l.Handle(input.TokenDown)
			l.Handle(input.TokenDown)
			So(hw.Level(pinIn1), ShouldBeTrue)
			before := len(hw.Writes())

			So(l.Handle(input.TokenStop), ShouldBeFalse)
			So(l.State().MotorSpeed, ShouldEqual, 0)
			So(hw.Duty(pinEnable), ShouldEqual, 0.0)
			for _, w := range hw.Writes()[before:] {
				So(w.Pin, ShouldNotEqual, pinIn1)
				So(w.Pin, ShouldNotEqual, pinIn2)
			}
		})

		Convey("unknown tokens change nothing", func() {
			before := len(hw.Writes())
			So(l.Handle(input.TokenNone), ShouldBeFalse)
			So(l.Handle(input.Token(99)), ShouldBeFalse)
			So(hw.Writes(), ShouldHaveLength, before)
			So(l.State(), ShouldResemble, actuator.State{})
		})

		Convey("a closed input ends the loop with ErrInputClosed", func() {
			err := l.Run(context.Background(), feed(input.TokenUp))
			So(err, ShouldEqual, ErrInputClosed)
			So(hw.Closed(), ShouldBeTrue)
			So(hw.Duty(pinEnable), ShouldEqual, 0.0)
		})

		Convey("cancelling the context ends the loop and releases the pins", func() {
			ctx, cancel := context.WithCancel(context.Background())
			tokens := make(chan input.Token)
			done := make(chan error, 1)
			go func() { done <- l.Run(ctx, tokens) }()

			tokens <- input.TokenUp
			tokens <- input.TokenUp
			cancel()

			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(5 * time.Second):
				t.Fatal("Loop did not stop after cancel")
			}
			So(l.State().MotorSpeed, ShouldEqual, 20)
			So(hw.Duty(pinEnable), ShouldEqual, 0.0)
			So(hw.Halted(pinIn1), ShouldBeTrue)
			So(hw.Closed(), ShouldBeTrue)
		})

		Convey("write failures are logged and the loop carries on", func() {
			hw.FailWrites(pinSteering, context.DeadlineExceeded)
			So(l.Handle(input.TokenRight), ShouldBeFalse)
			So(l.State().SteeringAngle, ShouldEqual, 5)
			So(l.Handle(input.TokenUp), ShouldBeFalse)
			So(hw.Duty(pinEnable), ShouldEqual, 10.0)
		})
	})
}
