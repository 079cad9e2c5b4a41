package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/config"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/input"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/setup"
)

var CLI struct {
	Config string `short:"c" help:"YAML config file." type:"path"`
	Input  string `short:"i" help:"Input: keyboard, joystick or console.  Defaults to the config's."`
	Device string `short:"d" help:"Input device node."`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("keytests"),
		kong.Description("Print the tokens the configured input produces."))

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Println("Bad config:", err)
		os.Exit(2)
	}
	if CLI.Input != "" {
		cfg.Input = CLI.Input
	}
	if CLI.Device != "" {
		cfg.Keyboard.Device = CLI.Device
		cfg.Joystick.Device = CLI.Device
	}

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	src, err := setup.Input(ctx, cfg, os.Stdin)
	if err != nil {
		fmt.Println("Failed to open input:", err)
		os.Exit(1)
	}
	tokens, done := input.Pump(ctx, src)
	for t := range tokens {
		fmt.Printf("%s: %v\n", src.Name(), t)
		if t == input.TokenQuit {
			fmt.Println("(quit; still listening, Ctrl-C to exit)")
		}
	}
	fmt.Printf("Input finished: %v\n", <-done)
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancelFunc()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}
