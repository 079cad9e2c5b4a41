package keyboard

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	evdev "github.com/gvalkov/golang-evdev"

	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/input"
)

type fakeDevice struct {
	events []evdev.InputEvent
}

func (f *fakeDevice) ReadOne() (*evdev.InputEvent, error) {
	if len(f.events) == 0 {
		return nil, io.EOF
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return &ev, nil
}

func key(code int, value int32) evdev.InputEvent {
	return evdev.InputEvent{Type: evdev.EV_KEY, Code: uint16(code), Value: value}
}

func TestKeyToken(t *testing.T) {
	cases := []struct {
		ev   evdev.InputEvent
		want input.Token
		ok   bool
	}{
		{key(evdev.KEY_UP, 1), input.TokenUp, true},
		{key(evdev.KEY_DOWN, 1), input.TokenDown, true},
		{key(evdev.KEY_LEFT, 1), input.TokenLeft, true},
		{key(evdev.KEY_RIGHT, 1), input.TokenRight, true},
		{key(evdev.KEY_ENTER, 1), input.TokenStop, true},
		{key(evdev.KEY_KPENTER, 1), input.TokenStop, true},
		{key(evdev.KEY_ESC, 1), input.TokenQuit, true},
		// Release and auto-repeat.
		{key(evdev.KEY_UP, 0), input.TokenNone, false},
		{key(evdev.KEY_UP, 2), input.TokenNone, false},
		// Unbound key.
		{key(evdev.KEY_A, 1), input.TokenNone, false},
		// Not a key event at all.
		{evdev.InputEvent{Type: evdev.EV_SYN, Code: 0, Value: 0}, input.TokenNone, false},
	}
	for _, c := range cases {
		got, ok := KeyToken(&c.ev)
		if ok != c.ok || got != c.want {
			t.Errorf("KeyToken(%v) = %v, %v; expected %v, %v", c.ev, got, ok, c.want, c.ok)
		}
	}
}

func TestRunFiltersAndKeepsOrder(t *testing.T) {
	k := &Keyboard{path: "fake", dev: &fakeDevice{events: []evdev.InputEvent{
		key(evdev.KEY_RIGHT, 1),
		key(evdev.KEY_RIGHT, 0),
		{Type: evdev.EV_SYN},
		key(evdev.KEY_UP, 1),
		key(evdev.KEY_UP, 2),
		key(evdev.KEY_Q, 1),
		key(evdev.KEY_ENTER, 1),
	}}}

	tokens, done := input.Pump(context.Background(), k)
	var got []input.Token
	for tok := range tokens {
		got = append(got, tok)
	}
	<-done

	want := []input.Token{input.TokenRight, input.TokenUp, input.TokenStop}
	if len(got) != len(want) {
		t.Fatalf("Got %v, expected %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Got %v, expected %v", got, want)
		}
	}
}

func TestCloseReleasesOnce(t *testing.T) {
	var closes int32
	k := &Keyboard{path: "fake", dev: &fakeDevice{}, closer: func() error {
		atomic.AddInt32(&closes, 1)
		return errors.New("already closed")
	}}

	// The pump closes the source when it stops, and the caller closes it
	// again to unblock a pending read.
	_, done := input.Pump(context.Background(), k)
	<-done
	err1 := k.Close()
	err2 := k.Close()

	if n := atomic.LoadInt32(&closes); n != 1 {
		t.Fatalf("Expected the device to be released once, got %d", n)
	}
	if err1 == nil || err1 != err2 {
		t.Fatalf("Expected every Close to report the first result, got %v and %v", err1, err2)
	}
}
