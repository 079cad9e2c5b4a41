package input

import (
	"fmt"
	"strings"
)

// Token is a single discrete teleoperation command.
type Token uint8

const (
	TokenNone Token = iota
	TokenUp
	TokenDown
	TokenLeft
	TokenRight
	TokenStop
	TokenQuit
)

var tokenNames = map[Token]string{
	TokenUp:    "up",
	TokenDown:  "down",
	TokenLeft:  "left",
	TokenRight: "right",
	TokenStop:  "stop",
	TokenQuit:  "quit",
}

func (t Token) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// ParseToken maps a token name back to its Token. Returns TokenNone, false
// for anything it doesn't recognise.
func ParseToken(s string) (Token, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range tokenNames {
		if name == s {
			return t, true
		}
	}
	return TokenNone, false
}
