package pca9685

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x40

	RegMode1 = 0x00
	RegMode2 = 0x01

	// Each PWM output has two 16-bit (low byte first) registers.
	// First register is the on time, second is the off time.
	RegLEDBase = 0x06

	RegPreScale = 0xfe // Pre-scaler for PWM frequency.

	NumChannels = 16

	PWMMax = 4095

	// Internal oscillator.
	OscillatorHz = 25000000

	// Bit 4 of the high off-time byte forces the output fully off.
	fullOff = 0x10
)

type Interface interface {
	Configure(hz float64) error
	SetDutyPercent(channel int, percent float64) error
	Off(channel int) error
	Close() error
}

type PCA9685 struct {
	dev *i2c.Device
}

func New(deviceFile string, addr int) (Interface, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "opening PCA9685 at %s:%#x", deviceFile, addr)
	}
	return &PCA9685{
		dev: dev,
	}, nil
}

// PreScale computes the prescaler register value for an output frequency.
// The chip accepts 3-255, roughly 24Hz to 1526Hz.
func PreScale(hz float64) (byte, error) {
	v := math.Round(float64(OscillatorHz)/(PWMMax+1)/hz) - 1
	if v < 3 || v > 255 || math.IsNaN(v) {
		return 0, errors.Errorf("PCA9685 cannot run at %vHz", hz)
	}
	return byte(v), nil
}

// DutyTicks converts a duty cycle percentage to an off-time count.
func DutyTicks(percent float64) uint16 {
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	return uint16(math.Round(PWMMax * percent / 100))
}

func (p *PCA9685) Configure(hz float64) (err error) {
	preScale, err := PreScale(hz)
	if err != nil {
		return
	}
	// Put device to sleep; the prescaler can only be written while asleep.
	err = p.dev.WriteReg(RegMode1, []byte{0x11})
	if err != nil {
		return
	}
	err = p.dev.WriteReg(RegPreScale, []byte{preScale})
	if err != nil {
		return
	}
	// Trigger a reset
	err = p.dev.WriteReg(RegMode1, []byte{0x01})
	if err != nil {
		return
	}
	// Required delay after reset.
	time.Sleep(1 * time.Millisecond)
	// Enable.
	err = p.dev.WriteReg(RegMode1, []byte{0x81})
	return
}

func (p *PCA9685) SetDutyPercent(channel int, percent float64) error {
	if channel < 0 || channel >= NumChannels {
		return errors.Errorf("PCA9685 channel out of range: %d", channel)
	}
	ticks := DutyTicks(percent)
	addr := RegLEDBase + channel*4
	return p.dev.WriteReg(byte(addr), []byte{0, 0, byte(ticks & 0xff), byte(ticks >> 8)})
}

func (p *PCA9685) Off(channel int) error {
	if channel < 0 || channel >= NumChannels {
		return errors.Errorf("PCA9685 channel out of range: %d", channel)
	}
	addr := RegLEDBase + channel*4
	return p.dev.WriteReg(byte(addr), []byte{0, 0, 0, fullOff})
}

func (p *PCA9685) Close() error {
	return p.dev.Close()
}

func Dummy() Interface {
	return &dummyBoard{}
}

type dummyBoard struct {
}

func (*dummyBoard) Configure(hz float64) error {
	_, err := PreScale(hz)
	return err
}

func (*dummyBoard) SetDutyPercent(channel int, percent float64) error {
	fmt.Printf("Dummy PCA9685 channel=%d duty=%v%%\n", channel, percent)
	return nil
}

func (*dummyBoard) Off(channel int) error {
	return nil
}

func (*dummyBoard) Close() error {
	return nil
}
