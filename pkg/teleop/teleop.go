package teleop

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/actuator"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/input"
)

// ErrInputClosed is returned by Run when the token stream ends before a quit.
var ErrInputClosed = errors.New("input closed")

// Output is where updates go.  *drive.Driver implements it.
type Output interface {
	Steer(cmd actuator.SteeringCommand) error
	Motor(cmd actuator.MotorCommand) error
	Apply(s actuator.State) error
	Close() error
}

// Loop maps tokens to actuator updates.  It is not safe for concurrent use:
// only the goroutine calling Run touches the state and the outputs.
type Loop struct {
	out   Output
	state actuator.State

	// Verbose echoes every token as well as the resulting state.
	Verbose bool
	// OnUpdate, if set, is called with the new state after every token.
	OnUpdate func(s actuator.State)
}

func New(out Output) *Loop {
	return &Loop{out: out}
}

// State returns the current actuator registers.
func (l *Loop) State() actuator.State {
	return l.state
}

// Run drives the outputs from tokens until ctx is cancelled, a quit token
// arrives or the token channel closes.  The outputs are closed on the way
// out in every case.
func (l *Loop) Run(ctx context.Context, tokens <-chan input.Token) (err error) {
	defer func() {
		fmt.Println("Teleop: releasing outputs")
		if cerr := l.out.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "releasing outputs")
		}
	}()

	if err := l.out.Apply(l.state); err != nil {
		return errors.Wrap(err, "applying initial state")
	}
	l.publish()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Teleop: context done, stopping")
			return nil
		case t, ok := <-tokens:
			if !ok {
				fmt.Println("Teleop: input closed, stopping")
				return ErrInputClosed
			}
			if quit := l.Handle(t); quit {
				fmt.Println("Teleop: quit requested")
				return nil
			}
		}
	}
}

// Handle applies a single token.  Returns true if the token asks to quit.
// Output failures are logged; the state is updated regardless so the next
// successful write catches the hardware up.
func (l *Loop) Handle(t input.Token) (quit bool) {
	if l.Verbose {
		fmt.Println("Teleop: token", t)
	}

	switch t {
	case input.TokenLeft, input.TokenRight:
		cmd, _ := l.state.Steer(t)
		fmt.Println("Steering angle:", l.state.SteeringAngle)
		if err := l.out.Steer(cmd); err != nil {
			fmt.Println("Failed to set steering!", err)
		}
	case input.TokenUp, input.TokenDown:
		cmd, _ := l.state.Drive(t)
		fmt.Println("Motor speed:", l.state.MotorSpeed)
		if err := l.out.Motor(cmd); err != nil {
			fmt.Println("Failed to set motor speed!", err)
		}
	case input.TokenStop:
		cmd := l.state.Stop()
		fmt.Println("Motor stopped")
		if err := l.out.Motor(cmd); err != nil {
			fmt.Println("Failed to stop motor!", err)
		}
	case input.TokenQuit:
		return true
	default:
		return false
	}
	l.publish()
	return false
}

func (l *Loop) publish() {
	if l.OnUpdate != nil {
		l.OnUpdate(l.state)
	}
}
