package hardware

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"
)

// Periph drives pins through periph.io's host drivers.  Pins are addressed by
// BCM GPIO number.
type Periph struct{}

var _ Host = (*Periph)(nil)

func NewPeriph() (*Periph, error) {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "initialising periph host")
	}
	return &Periph{}, nil
}

func (h *Periph) Name() string {
	return "periph"
}

func (h *Periph) lookup(pin int) (gpio.PinIO, error) {
	p := gpioreg.ByName(strconv.Itoa(pin))
	if p == nil {
		return nil, PinNotFoundError{Backend: h.Name(), Pin: pin}
	}
	return p, nil
}

func (h *Periph) PWM(pin int, hz float64) (PWM, error) {
	if hz <= 0 {
		return nil, errors.Errorf("periph: bad PWM frequency %v for pin %d", hz, pin)
	}
	p, err := h.lookup(pin)
	if err != nil {
		return nil, err
	}
	out := &periphPWM{pin: p, freq: physic.Frequency(hz * float64(physic.Hertz))}
	// Start with the output off.
	if err := out.SetDutyPercent(0); err != nil {
		return nil, errors.Wrapf(err, "starting PWM on %s", p)
	}
	fmt.Printf("HW: PWM on %s at %s\n", p, out.freq)
	return out, nil
}

func (h *Periph) Digital(pin int) (Digital, error) {
	p, err := h.lookup(pin)
	if err != nil {
		return nil, err
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, errors.Wrapf(err, "configuring %s as output", p)
	}
	return &periphDigital{pin: p}, nil
}

func (h *Periph) Close() error {
	// periph has no host-level teardown; pins are released by Halt.
	return nil
}

type periphPWM struct {
	pin  gpio.PinIO
	freq physic.Frequency
}

func (p *periphPWM) SetDutyPercent(percent float64) error {
	duty := gpio.Duty(float64(gpio.DutyMax) * clampPercent(percent) / 100)
	return errors.Wrapf(p.pin.PWM(duty, p.freq), "setting duty on %s", p.pin)
}

func (p *periphPWM) Halt() error {
	return errors.Wrapf(p.pin.Halt(), "halting %s", p.pin)
}

type periphDigital struct {
	pin gpio.PinIO
}

func (p *periphDigital) Out(high bool) error {
	return errors.Wrapf(p.pin.Out(gpio.Level(high)), "writing %s", p.pin)
}

func (p *periphDigital) Halt() error {
	return errors.Wrapf(p.pin.Halt(), "halting %s", p.pin)
}
