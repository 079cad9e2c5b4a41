package joystick

import (
	"context"
	"math"
	"sync"

	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/input"
)

// Source turns D-pad presses into teleop tokens.  Each press produces one
// token; holding the pad does not repeat.
type Source struct {
	js *Joystick

	dPadX, dPadY int16

	closeOnce sync.Once
	closeErr  error
}

func NewSource(js *Joystick) *Source {
	return &Source{js: js}
}

func (s *Source) Name() string {
	return "joystick"
}

// Token maps a single event to a token, tracking the D-pad so that only the
// transition away from centre counts.
func (s *Source) Token(e *Event) (input.Token, bool) {
	if e.Init {
		// Initial state report, not a press.
		switch {
		case e.Type == EventTypeAxis && e.Number == AxisDPadX:
			s.dPadX = e.Value
		case e.Type == EventTypeAxis && e.Number == AxisDPadY:
			s.dPadY = e.Value
		}
		return input.TokenNone, false
	}

	switch e.Type {
	case EventTypeAxis:
		switch e.Number {
		case AxisDPadX:
			prev := s.dPadX
			s.dPadX = e.Value
			if axisPressed(prev) {
				return input.TokenNone, false
			}
			return axisToken(e.Value, input.TokenLeft, input.TokenRight)
		case AxisDPadY:
			prev := s.dPadY
			s.dPadY = e.Value
			if axisPressed(prev) {
				return input.TokenNone, false
			}
			return axisToken(e.Value, input.TokenUp, input.TokenDown)
		}
	case EventTypeButton:
		if e.Value != 1 {
			return input.TokenNone, false
		}
		switch e.Number {
		case ButtonCross:
			return input.TokenStop, true
		case ButtonPS:
			return input.TokenQuit, true
		}
	}
	return input.TokenNone, false
}

const axisThreshold = math.MaxInt16 / 2

func axisPressed(v int16) bool {
	return v <= -axisThreshold || v >= axisThreshold
}

func axisToken(v int16, negative, positive input.Token) (input.Token, bool) {
	switch {
	case v <= -axisThreshold:
		return negative, true
	case v >= axisThreshold:
		return positive, true
	}
	return input.TokenNone, false
}

func (s *Source) Run(ctx context.Context, out chan<- input.Token) error {
	for ctx.Err() == nil {
		event, err := s.js.ReadEvent()
		if err != nil {
			return err
		}
		t, ok := s.Token(event)
		if !ok {
			continue
		}
		if err := input.Send(ctx, out, t); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Close is safe to call more than once.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.js.Close()
	})
	return s.closeErr
}
