package hardware

import "fmt"

// PWM is a single pulse-width-modulated output running at a fixed frequency.
type PWM interface {
	// SetDutyPercent sets the fraction of each period the output is high,
	// 0-100.  Values outside that range are clamped.
	SetDutyPercent(percent float64) error
	// Halt stops the output and releases the pin.
	Halt() error
}

// Digital is a single push-pull output.
type Digital interface {
	Out(high bool) error
	Halt() error
}

// Host hands out pins on one hardware backend.  Close releases the backend
// itself; pins must be halted first.
type Host interface {
	Name() string
	PWM(pin int, hz float64) (PWM, error)
	Digital(pin int) (Digital, error)
	Close() error
}

type PinNotFoundError struct {
	Backend string
	Pin     int
}

func (err PinNotFoundError) Error() string {
	return fmt.Sprintf("%s: no such pin %d", err.Backend, err.Pin)
}

type NotPWMCapableError struct {
	Backend string
	Pin     int
}

func (err NotPWMCapableError) Error() string {
	return fmt.Sprintf("%s: pin %d cannot do hardware PWM", err.Backend, err.Pin)
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
