package hardware

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio/v4"
)

// The BCM283x has one PWM clock shared by both hardware PWM channels.  It is
// set once to this rate; each channel then gets its own frequency from its
// cycle length (clock/hz ticks per period), e.g. 20000 ticks at 50Hz.
const RpioPWMClockHz = 1000000

// Coarser than this and the duty cycle stops meaning much.
const rpioMinCycleLen = 100

// The two hardware PWM channels are each routed to two pins.
var rpioPWMChannels = map[int]int{
	12: 0,
	18: 0,
	13: 1,
	19: 1,
}

// RpioPWMChannel returns the hardware PWM channel behind a BCM pin, or false
// if the pin can't do hardware PWM.
func RpioPWMChannel(pin int) (int, bool) {
	ch, ok := rpioPWMChannels[pin]
	return ch, ok
}

// rpioPin is the part of rpio.Pin we use.
type rpioPin interface {
	Mode(mode rpio.Mode)
	Freq(freq int)
	DutyCycle(dutyLen, cycleLen uint32)
	Output()
	Input()
	High()
	Low()
}

// Rpio drives pins by mapping /dev/gpiomem directly with go-rpio.  Needs no
// daemon but only has hardware PWM on BCM 12, 13, 18 and 19, and only one pin
// per channel (12 or 18, 13 or 19) at a time.
type Rpio struct {
	pin   func(n int) rpioPin
	close func() error

	lock       sync.Mutex
	clockSet   bool
	channelPin map[int]int
}

var _ Host = (*Rpio)(nil)

func NewRpio() (*Rpio, error) {
	if err := rpio.Open(); err != nil {
		return nil, errors.Wrap(err, "opening rpio")
	}
	return newRpio(func(n int) rpioPin { return rpio.Pin(n) }, rpio.Close), nil
}

func newRpio(pin func(n int) rpioPin, close func() error) *Rpio {
	return &Rpio{
		pin:        pin,
		close:      close,
		channelPin: map[int]int{},
	}
}

func (h *Rpio) Name() string {
	return "rpio"
}

func (h *Rpio) PWM(pin int, hz float64) (PWM, error) {
	ch, ok := rpioPWMChannels[pin]
	if !ok {
		return nil, NotPWMCapableError{Backend: h.Name(), Pin: pin}
	}
	if hz <= 0 {
		return nil, errors.Errorf("rpio: bad PWM frequency %v for pin %d", hz, pin)
	}
	cycleLen := uint32(RpioPWMClockHz/hz + 0.5)
	if cycleLen < rpioMinCycleLen {
		return nil, errors.Errorf("rpio: %vHz is too fast for pin %d", hz, pin)
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	if other, ok := h.channelPin[ch]; ok {
		return nil, errors.Errorf("rpio: pin %d shares PWM channel %d with pin %d, which is in use", pin, ch, other)
	}

	p := h.pin(pin)
	p.Mode(rpio.Pwm)
	if !h.clockSet {
		p.Freq(RpioPWMClockHz)
		h.clockSet = true
	}
	p.DutyCycle(0, cycleLen)
	h.channelPin[ch] = pin
	fmt.Printf("HW: PWM on GPIO%d at %vHz (%d ticks)\n", pin, hz, cycleLen)
	return &rpioPWM{pin: p, cycleLen: cycleLen, release: func() {
		h.lock.Lock()
		defer h.lock.Unlock()
		if h.channelPin[ch] == pin {
			delete(h.channelPin, ch)
		}
	}}, nil
}

func (h *Rpio) Digital(pin int) (Digital, error) {
	if pin < 0 || pin > 27 {
		return nil, PinNotFoundError{Backend: h.Name(), Pin: pin}
	}
	p := h.pin(pin)
	p.Output()
	p.Low()
	return &rpioDigital{pin: p}, nil
}

func (h *Rpio) Close() error {
	return errors.Wrap(h.close(), "closing rpio")
}

type rpioPWM struct {
	pin      rpioPin
	cycleLen uint32
	release  func()
}

func (p *rpioPWM) SetDutyPercent(percent float64) error {
	p.pin.DutyCycle(uint32(clampPercent(percent)*float64(p.cycleLen)/100+0.5), p.cycleLen)
	return nil
}

func (p *rpioPWM) Halt() error {
	p.pin.DutyCycle(0, p.cycleLen)
	p.pin.Input()
	p.release()
	return nil
}

type rpioDigital struct {
	pin rpioPin
}

func (p *rpioDigital) Out(high bool) error {
	if high {
		p.pin.High()
	} else {
		p.pin.Low()
	}
	return nil
}

func (p *rpioDigital) Halt() error {
	p.pin.Low()
	p.pin.Input()
	return nil
}
