package hardware

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// WriteKind says which operation a recorded write was.
type WriteKind string

const (
	WriteDuty  WriteKind = "duty"
	WriteLevel WriteKind = "level"
	WriteHalt  WriteKind = "halt"
)

type Write struct {
	Pin   int
	Kind  WriteKind
	Value float64
}

func (w Write) String() string {
	return fmt.Sprintf("%s(%d)=%v", w.Kind, w.Pin, w.Value)
}

// Dummy is a Host with no hardware behind it.  It prints and records every
// write so dry runs and tests can see what would have reached the pins.
type Dummy struct {
	Quiet bool

	lock     sync.Mutex
	writes   []Write
	freqs    map[int]float64
	duty     map[int]float64
	level    map[int]bool
	halted   map[int]bool
	failPins map[int]error
	closed   bool
}

func NewDummy() *Dummy {
	return &Dummy{
		freqs:    map[int]float64{},
		duty:     map[int]float64{},
		level:    map[int]bool{},
		halted:   map[int]bool{},
		failPins: map[int]error{},
	}
}

var _ Host = (*Dummy)(nil)

func (d *Dummy) Name() string {
	return "dummy"
}

// FailWrites makes every subsequent write to pin return err.
func (d *Dummy) FailWrites(pin int, err error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.failPins[pin] = err
}

func (d *Dummy) PWM(pin int, hz float64) (PWM, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if hz <= 0 {
		return nil, errors.Errorf("dummy: bad PWM frequency %v for pin %d", hz, pin)
	}
	d.freqs[pin] = hz
	delete(d.halted, pin)
	d.printf("DHW: PWM pin=%d freq=%vHz\n", pin, hz)
	return &dummyPin{d: d, pin: pin}, nil
}

func (d *Dummy) Digital(pin int) (Digital, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	delete(d.halted, pin)
	d.printf("DHW: Digital pin=%d\n", pin)
	return &dummyPin{d: d, pin: pin}, nil
}

func (d *Dummy) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.closed = true
	d.printf("DHW: Close\n")
	return nil
}

func (d *Dummy) record(w Write) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if err := d.failPins[w.Pin]; err != nil {
		return err
	}
	d.writes = append(d.writes, w)
	switch w.Kind {
	case WriteDuty:
		d.duty[w.Pin] = w.Value
	case WriteLevel:
		d.level[w.Pin] = w.Value != 0
	case WriteHalt:
		d.halted[w.Pin] = true
	}
	d.printf("DHW: %v\n", w)
	return nil
}

func (d *Dummy) printf(format string, args ...interface{}) {
	if !d.Quiet {
		fmt.Printf(format, args...)
	}
}

// Writes returns a copy of every write recorded so far, oldest first.
func (d *Dummy) Writes() []Write {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]Write(nil), d.writes...)
}

func (d *Dummy) Duty(pin int) float64 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.duty[pin]
}

func (d *Dummy) Level(pin int) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.level[pin]
}

func (d *Dummy) Frequency(pin int) float64 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.freqs[pin]
}

func (d *Dummy) Halted(pin int) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.halted[pin]
}

func (d *Dummy) Closed() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.closed
}

type dummyPin struct {
	d   *Dummy
	pin int
}

func (p *dummyPin) SetDutyPercent(percent float64) error {
	return p.d.record(Write{Pin: p.pin, Kind: WriteDuty, Value: clampPercent(percent)})
}

func (p *dummyPin) Out(high bool) error {
	var v float64
	if high {
		v = 1
	}
	return p.d.record(Write{Pin: p.pin, Kind: WriteLevel, Value: v})
}

func (p *dummyPin) Halt() error {
	return p.d.record(Write{Pin: p.pin, Kind: WriteHalt})
}
