package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Console reads one command per line, for driving the car over ssh or from
// a script when no keyboard is attached.
//
//    w, up       motor faster
//    s, down     motor slower / reverse
//    a, left     steer left
//    d, right    steer right
//    <enter>     stop the motor (also "stop")
//    q, quit     quit
type Console struct {
	r io.Reader
}

func NewConsole(r io.Reader) *Console {
	return &Console{r: r}
}

var consoleWords = map[string]Token{
	"":      TokenStop,
	"stop":  TokenStop,
	"w":     TokenUp,
	"up":    TokenUp,
	"s":     TokenDown,
	"down":  TokenDown,
	"a":     TokenLeft,
	"left":  TokenLeft,
	"d":     TokenRight,
	"right": TokenRight,
	"q":     TokenQuit,
	"quit":  TokenQuit,
}

// ConsoleToken maps one input line to a token.
func ConsoleToken(line string) (Token, bool) {
	t, ok := consoleWords[strings.ToLower(strings.TrimSpace(line))]
	return t, ok
}

func (c *Console) Name() string {
	return "console"
}

func (c *Console) Run(ctx context.Context, out chan<- Token) error {
	scanner := bufio.NewScanner(c.r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		t, ok := ConsoleToken(line)
		if !ok {
			fmt.Printf("Console: ignoring %q\n", line)
			continue
		}
		if err := Send(ctx, out, t); err != nil {
			return err
		}
	}
	return errors.Wrap(scanner.Err(), "reading console")
}

func (c *Console) Close() error {
	return nil
}
