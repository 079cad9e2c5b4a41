package drive

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/actuator"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/hardware"
)

const (
	DefaultSteeringHz = 50
	DefaultMotorHz    = 1000
)

// Pins says where the servo and the H-bridge are wired.
type Pins struct {
	Steering   int
	SteeringHz float64
	Enable     int // H-bridge ENA, PWM
	MotorHz    float64
	In1        int
	In2        int
}

// Driver owns every output the car uses.  Open acquires them all; Close
// zeroes the motor and releases them, so callers can defer it as soon as
// Open succeeds.
type Driver struct {
	steering hardware.PWM
	enable   hardware.PWM
	in1, in2 hardware.Digital

	hosts []hardware.Host
}

// Open acquires the steering channel from steeringHost and the motor channels
// from motorHost (which may be the same host).  On failure anything already
// acquired is released again.
func Open(steeringHost, motorHost hardware.Host, pins Pins) (d *Driver, err error) {
	d = &Driver{hosts: []hardware.Host{motorHost}}
	if steeringHost != motorHost {
		d.hosts = append(d.hosts, steeringHost)
	}
	defer func() {
		if err != nil {
			_ = d.Close()
			d = nil
		}
	}()

	if d.enable, err = motorHost.PWM(pins.Enable, pins.MotorHz); err != nil {
		return d, errors.Wrapf(err, "motor enable pin %d", pins.Enable)
	}
	if d.in1, err = motorHost.Digital(pins.In1); err != nil {
		return d, errors.Wrapf(err, "motor IN1 pin %d", pins.In1)
	}
	if d.in2, err = motorHost.Digital(pins.In2); err != nil {
		return d, errors.Wrapf(err, "motor IN2 pin %d", pins.In2)
	}
	if d.steering, err = steeringHost.PWM(pins.Steering, pins.SteeringHz); err != nil {
		return d, errors.Wrapf(err, "steering pin %d", pins.Steering)
	}
	return d, nil
}

// Steer drives the servo channel.
func (d *Driver) Steer(cmd actuator.SteeringCommand) error {
	return errors.Wrap(d.steering.SetDutyPercent(cmd.DutyPercent), "steering")
}

// Motor sets the direction pins (unless the command says not to) and then
// the enable duty cycle.
func (d *Driver) Motor(cmd actuator.MotorCommand) error {
	if cmd.SetDirection {
		in1, in2 := cmd.Direction.Levels()
		if err := d.in1.Out(in1); err != nil {
			return errors.Wrap(err, "motor IN1")
		}
		if err := d.in2.Out(in2); err != nil {
			return errors.Wrap(err, "motor IN2")
		}
	}
	return errors.Wrap(d.enable.SetDutyPercent(cmd.DutyPercent), "motor enable")
}

// Apply writes the whole state out, for startup.
func (d *Driver) Apply(s actuator.State) error {
	if err := d.Steer(s.Steering()); err != nil {
		return err
	}
	return d.Motor(s.Motor())
}

// Close cuts the motor, drops both direction pins, halts every output and
// closes the hosts.  It keeps going past failures and returns the first one.
func (d *Driver) Close() error {
	var first error
	note := func(err error, what string) {
		if err == nil {
			return
		}
		fmt.Printf("HW: %s: %v\n", what, err)
		if first == nil {
			first = errors.Wrap(err, what)
		}
	}

	if d.enable != nil {
		note(d.enable.SetDutyPercent(0), "zeroing motor")
	}
	for _, p := range []hardware.Digital{d.in1, d.in2} {
		if p != nil {
			note(p.Out(false), "clearing direction pin")
		}
	}
	for _, p := range []hardware.PWM{d.enable, d.steering} {
		if p != nil {
			note(p.Halt(), "halting PWM")
		}
	}
	for _, p := range []hardware.Digital{d.in1, d.in2} {
		if p != nil {
			note(p.Halt(), "halting direction pin")
		}
	}
	for _, h := range d.hosts {
		note(h.Close(), "closing "+h.Name())
	}
	d.enable, d.steering, d.in1, d.in2, d.hosts = nil, nil, nil, nil, nil
	return first
}
