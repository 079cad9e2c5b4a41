package keyboard

import (
	"context"
	"fmt"
	"sync"

	evdev "github.com/gvalkov/golang-evdev"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/input"
)

const DefaultDevice = "/dev/input/event0"

// Key-down bindings.  Anything else is ignored.
var keyTokens = map[int]input.Token{
	evdev.KEY_UP:      input.TokenUp,
	evdev.KEY_DOWN:    input.TokenDown,
	evdev.KEY_LEFT:    input.TokenLeft,
	evdev.KEY_RIGHT:   input.TokenRight,
	evdev.KEY_ENTER:   input.TokenStop,
	evdev.KEY_KPENTER: input.TokenStop,
	evdev.KEY_ESC:     input.TokenQuit,
}

type eventReader interface {
	ReadOne() (*evdev.InputEvent, error)
}

// Keyboard reads key presses straight from an evdev node, so it works on a
// headless board with no terminal or display attached.
type Keyboard struct {
	path   string
	dev    eventReader
	closer func() error

	closeOnce sync.Once
	closeErr  error
}

// Open opens the evdev node at path.  When grab is set the device is grabbed
// exclusively so the arrow keys don't also reach the console.
func Open(path string, grab bool) (*Keyboard, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening keyboard %s", path)
	}
	fmt.Printf("Keyboard: opened %s (%s)\n", path, dev.Name)
	if grab {
		if err := dev.Grab(); err != nil {
			_ = dev.File.Close()
			return nil, errors.Wrapf(err, "grabbing keyboard %s", path)
		}
	}
	return &Keyboard{
		path: path,
		dev:  dev,
		closer: func() error {
			if grab {
				_ = dev.Release()
			}
			return dev.File.Close()
		},
	}, nil
}

// KeyToken maps one evdev event to a token.  Only key-down events count;
// releases and auto-repeat are dropped.
func KeyToken(ev *evdev.InputEvent) (input.Token, bool) {
	if ev.Type != evdev.EV_KEY {
		return input.TokenNone, false
	}
	if ev.Value != int32(evdev.KeyDown) {
		return input.TokenNone, false
	}
	t, ok := keyTokens[int(ev.Code)]
	return t, ok
}

func (k *Keyboard) Name() string {
	return "keyboard " + k.path
}

func (k *Keyboard) Run(ctx context.Context, out chan<- input.Token) error {
	for ctx.Err() == nil {
		ev, err := k.dev.ReadOne()
		if err != nil {
			return errors.Wrapf(err, "reading keyboard %s", k.path)
		}
		t, ok := KeyToken(ev)
		if !ok {
			continue
		}
		if err := input.Send(ctx, out, t); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Close releases the grab and closes the device.  Safe to call more than
// once, and from another goroutine to unblock Run.
func (k *Keyboard) Close() error {
	k.closeOnce.Do(func() {
		if k.closer != nil {
			k.closeErr = k.closer()
		}
	})
	return k.closeErr
}
