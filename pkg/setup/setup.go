// Package setup turns a config into open hardware and input devices.  It is
// shared by the teleop command and the bench tools.
package setup

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/config"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/drive"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/input"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/keyboard"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/pca9685"
)

// How often to retry a joystick that isn't plugged in (or paired) yet.
var JoystickRetryInterval = time.Second

// Host opens a single hardware backend.
func Host(cfg *config.Config, backend string) (hardware.Host, error) {
	switch backend {
	case config.BackendPeriph:
		h, err := hardware.NewPeriph()
		if err != nil {
			return nil, err
		}
		return h, nil
	case config.BackendRpio:
		h, err := hardware.NewRpio()
		if err != nil {
			return nil, err
		}
		return h, nil
	case config.BackendDummy:
		return hardware.NewDummy(), nil
	case config.BackendPCA9685:
		board, err := pca9685.New(cfg.Steering.PCA9685.Device, int(cfg.Steering.PCA9685.Addr))
		if err != nil {
			return nil, err
		}
		return hardware.NewPCA9685(board), nil
	}
	return nil, errors.Errorf("unknown backend %q", backend)
}

// Hosts opens the motor backend and, if it differs, the steering backend.
// When they are the same the one host is returned twice.
func Hosts(cfg *config.Config) (steering, motor hardware.Host, err error) {
	motor, err = Host(cfg, cfg.Backend)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening %s backend", cfg.Backend)
	}
	if cfg.SteeringBackend() == cfg.Backend {
		return motor, motor, nil
	}
	steering, err = Host(cfg, cfg.SteeringBackend())
	if err != nil {
		_ = motor.Close()
		return nil, nil, errors.Wrapf(err, "opening %s backend for steering", cfg.SteeringBackend())
	}
	return steering, motor, nil
}

// Driver opens the hosts and acquires every pin the car needs.
func Driver(cfg *config.Config) (*drive.Driver, error) {
	steering, motor, err := Hosts(cfg)
	if err != nil {
		return nil, err
	}
	// drive.Open closes the hosts itself if it fails.
	return drive.Open(steering, motor, cfg.Pins())
}

// Input opens the configured input source.  stdin is only used by the
// console source.  A missing joystick is waited for until ctx is done, since
// bluetooth pads often connect after we start.
func Input(ctx context.Context, cfg *config.Config, stdin io.Reader) (input.Source, error) {
	switch cfg.Input {
	case config.InputKeyboard:
		kb, err := keyboard.Open(cfg.Keyboard.Device, cfg.Keyboard.Grab)
		if err != nil {
			return nil, err
		}
		return kb, nil
	case config.InputJoystick:
		js, err := waitForJoystick(ctx, cfg.Joystick.Device)
		if err != nil {
			return nil, err
		}
		return joystick.NewSource(js), nil
	case config.InputConsole:
		return input.NewConsole(stdin), nil
	}
	return nil, errors.Errorf("unknown input %q", cfg.Input)
}

func waitForJoystick(ctx context.Context, device string) (*joystick.Joystick, error) {
	firstLog := true
	for {
		j, err := joystick.NewJoystick(device)
		if err == nil {
			fmt.Printf("Opened joystick %s\n", device)
			return j, nil
		}
		if firstLog {
			fmt.Printf("Waiting for joystick: %v.\n", err)
			firstLog = false
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "waiting for joystick")
		case <-time.After(JoystickRetryInterval):
		}
	}
}
