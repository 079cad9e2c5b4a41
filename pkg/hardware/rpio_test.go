package hardware

import (
	"errors"
	"testing"

	"github.com/stianeikeland/go-rpio/v4"
)

type fakeRpioPin struct {
	n       int
	mode    rpio.Mode
	freqs   []int
	duty    [2]uint32 // dutyLen, cycleLen of the last DutyCycle call
	high    bool
	input   bool
	outputs int
}

func (p *fakeRpioPin) Mode(mode rpio.Mode)                { p.mode = mode }
func (p *fakeRpioPin) Freq(freq int)                      { p.freqs = append(p.freqs, freq) }
func (p *fakeRpioPin) DutyCycle(dutyLen, cycleLen uint32) { p.duty = [2]uint32{dutyLen, cycleLen} }
func (p *fakeRpioPin) Output()                            { p.outputs++; p.input = false }
func (p *fakeRpioPin) Input()                             { p.input = true }
func (p *fakeRpioPin) High()                              { p.high = true }
func (p *fakeRpioPin) Low()                               { p.high = false }

func newFakeRpio() (*Rpio, map[int]*fakeRpioPin) {
	pins := map[int]*fakeRpioPin{}
	h := newRpio(func(n int) rpioPin {
		if p, ok := pins[n]; ok {
			return p
		}
		p := &fakeRpioPin{n: n}
		pins[n] = p
		return p
	}, func() error { return nil })
	return h, pins
}

func clockWrites(pins map[int]*fakeRpioPin) []int {
	var all []int
	for _, p := range pins {
		all = append(all, p.freqs...)
	}
	return all
}

func TestRpioServoAndMotorKeepTheirFrequencies(t *testing.T) {
	h, pins := newFakeRpio()

	servo, err := h.PWM(18, 50)
	if err != nil {
		t.Fatal(err)
	}
	motor, err := h.PWM(19, 1000)
	if err != nil {
		t.Fatal(err)
	}

	if c := clockWrites(pins); len(c) != 1 || c[0] != RpioPWMClockHz {
		t.Fatalf("Expected the shared clock to be set once to %d, got %v", RpioPWMClockHz, c)
	}
	if pins[18].mode != rpio.Pwm || pins[19].mode != rpio.Pwm {
		t.Fatal("Expected both pins in PWM mode")
	}

	_ = servo.SetDutyPercent(7)
	_ = motor.SetDutyPercent(50)
	if d := pins[18].duty; d != [2]uint32{1400, 20000} {
		t.Errorf("Servo at 7%% of 50Hz should be 1400/20000 ticks, got %v", d)
	}
	if d := pins[19].duty; d != [2]uint32{500, 1000} {
		t.Errorf("Motor at 50%% of 1kHz should be 500/1000 ticks, got %v", d)
	}

	_ = servo.SetDutyPercent(150)
	if d := pins[18].duty; d != [2]uint32{20000, 20000} {
		t.Errorf("Duty should clamp to the full period, got %v", d)
	}
}

func TestRpioRefusesSharedChannel(t *testing.T) {
	h, pins := newFakeRpio()

	servo, err := h.PWM(18, 50)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.PWM(12, 1000); err == nil {
		t.Fatal("Pin 12 shares a channel with 18 and should be refused")
	}
	if _, ok := pins[12]; ok {
		t.Fatal("A refused pin should not be touched")
	}

	// Halting frees the channel again.
	if err := servo.Halt(); err != nil {
		t.Fatal(err)
	}
	if !pins[18].input || pins[18].duty[0] != 0 {
		t.Fatalf("Halt should zero the duty and float the pin, got %+v", pins[18])
	}
	if _, err := h.PWM(12, 1000); err != nil {
		t.Fatalf("Channel should be free after Halt: %v", err)
	}
	_ = servo.Halt()
	if _, err := h.PWM(18, 50); err == nil {
		t.Fatal("A repeated Halt must not free a channel now owned by another pin")
	}
	if c := clockWrites(pins); len(c) != 1 {
		t.Fatalf("Clock should only ever be set once, got %v", c)
	}
}

func TestRpioRejectsBadPWM(t *testing.T) {
	h, _ := newFakeRpio()

	_, err := h.PWM(27, 50)
	var notPWM NotPWMCapableError
	if !errors.As(err, &notPWM) || notPWM.Pin != 27 {
		t.Fatalf("Expected NotPWMCapableError for pin 27, got %v", err)
	}
	if _, err := h.PWM(18, 0); err == nil {
		t.Fatal("Expected error for 0Hz")
	}
	if _, err := h.PWM(18, 20000); err == nil {
		t.Fatal("Expected error for a frequency with too few ticks per period")
	}
}

func TestRpioDigital(t *testing.T) {
	h, pins := newFakeRpio()
	if _, err := h.Digital(40); err == nil {
		t.Fatal("Expected error for pin 40")
	}
	d, err := h.Digital(26)
	if err != nil {
		t.Fatal(err)
	}
	if pins[26].outputs != 1 || pins[26].high {
		t.Fatal("Digital should configure the pin as a low output")
	}
	_ = d.Out(true)
	if !pins[26].high {
		t.Fatal("Expected pin 26 high")
	}
	_ = d.Halt()
	if pins[26].high || !pins[26].input {
		t.Fatal("Halt should drive low and release the pin")
	}
}

func TestRpioPWMChannel(t *testing.T) {
	for pin, want := range map[int]int{12: 0, 18: 0, 13: 1, 19: 1} {
		if ch, ok := RpioPWMChannel(pin); !ok || ch != want {
			t.Errorf("RpioPWMChannel(%d) = %d, %v; expected %d", pin, ch, ok, want)
		}
	}
	if _, ok := RpioPWMChannel(27); ok {
		t.Error("Pin 27 has no hardware PWM")
	}
}
