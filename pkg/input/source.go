package input

import (
	"context"
	"fmt"
)

// Source produces tokens from some input device until it fails, runs out of
// input or ctx is cancelled.
type Source interface {
	Name() string
	// Run sends tokens to out in the order the device delivered them.  It
	// returns nil when the input is exhausted.
	Run(ctx context.Context, out chan<- Token) error
	Close() error
}

// Pump starts src in a background goroutine and returns the channel it feeds
// plus a channel that receives the source's final error.  The token channel is
// closed once the source has stopped.
func Pump(ctx context.Context, src Source) (<-chan Token, <-chan error) {
	tokens := make(chan Token)
	done := make(chan error, 1)
	go func() {
		defer close(tokens)
		defer src.Close()
		err := src.Run(ctx, tokens)
		if err != nil && ctx.Err() == nil {
			fmt.Printf("Input %s failed: %v\n", src.Name(), err)
		}
		done <- err
	}()
	return tokens, done
}

// Send delivers t to out unless ctx is cancelled first.
func Send(ctx context.Context, out chan<- Token, t Token) error {
	select {
	case out <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
