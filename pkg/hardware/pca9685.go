package hardware

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/pca9685"
)

// PCA9685 exposes the channels of a PCA9685 servo board as PWM outputs.  Pin
// numbers are channel numbers 0-15.  The board has a single prescaler so
// every channel must run at the same frequency; the first PWM call sets it.
type PCA9685 struct {
	board pca9685.Interface

	lock sync.Mutex
	hz   float64
}

var _ Host = (*PCA9685)(nil)

func NewPCA9685(board pca9685.Interface) *PCA9685 {
	return &PCA9685{board: board}
}

func (h *PCA9685) Name() string {
	return "pca9685"
}

func (h *PCA9685) PWM(channel int, hz float64) (PWM, error) {
	if channel < 0 || channel >= pca9685.NumChannels {
		return nil, PinNotFoundError{Backend: h.Name(), Pin: channel}
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	switch {
	case h.hz == 0:
		if err := h.board.Configure(hz); err != nil {
			return nil, errors.Wrapf(err, "configuring PCA9685 for %vHz", hz)
		}
		h.hz = hz
	case h.hz != hz:
		return nil, errors.Errorf("PCA9685 already running at %vHz, cannot drive channel %d at %vHz", h.hz, channel, hz)
	}

	out := &pcaChannel{board: h.board, channel: channel}
	if err := out.SetDutyPercent(0); err != nil {
		return nil, err
	}
	fmt.Printf("HW: PCA9685 channel %d at %vHz\n", channel, hz)
	return out, nil
}

func (h *PCA9685) Digital(channel int) (Digital, error) {
	return nil, errors.Errorf("PCA9685 channel %d: digital outputs not supported", channel)
}

func (h *PCA9685) Close() error {
	return errors.Wrap(h.board.Close(), "closing PCA9685")
}

type pcaChannel struct {
	board   pca9685.Interface
	channel int
}

func (c *pcaChannel) SetDutyPercent(percent float64) error {
	return errors.Wrapf(c.board.SetDutyPercent(c.channel, clampPercent(percent)), "PCA9685 channel %d", c.channel)
}

func (c *pcaChannel) Halt() error {
	return errors.Wrapf(c.board.Off(c.channel), "PCA9685 channel %d", c.channel)
}
