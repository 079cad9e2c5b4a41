package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/config"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/input"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/screen"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/setup"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/sound"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/teleop"
)

var CLI struct {
	Config      string `short:"c" help:"YAML config file." type:"path"`
	Backend     string `help:"Hardware backend: periph, rpio or dummy."`
	Input       string `short:"i" help:"Input: keyboard, joystick or console."`
	Device      string `short:"d" help:"Input device node, for keyboard or joystick input."`
	Verbose     bool   `short:"v" help:"Echo every token."`
	DryRun      bool   `help:"Use the dummy backend; no pins are touched."`
	PrintConfig bool   `help:"Print the effective config and exit."`
}

func main() {
	fmt.Print("---- teleop ----\n\n")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	kong.Parse(&CLI,
		kong.Name("teleop"),
		kong.Description("Drive the car's steering servo and motor from the keyboard."))

	cfg, err := loadConfig()
	if err != nil {
		fmt.Println("Bad config:", err)
		os.Exit(2)
	}
	if CLI.PrintConfig {
		data, err := cfg.Marshal()
		if err != nil {
			fmt.Println("Failed to render config:", err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
		return
	}

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	registerSignalHandlers(cancel)

	if err := run(ctx, cfg); err != nil {
		fmt.Println("teleop failed:", err)
		os.Exit(1)
	}
	fmt.Println("Bye")
}

// loadConfig layers the command line over the config file and environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, err
	}
	if CLI.Backend != "" {
		cfg.Backend = CLI.Backend
	}
	if CLI.Input != "" {
		cfg.Input = CLI.Input
	}
	if CLI.Device != "" {
		switch cfg.Input {
		case config.InputKeyboard:
			cfg.Keyboard.Device = CLI.Device
		case config.InputJoystick:
			cfg.Joystick.Device = CLI.Device
		}
	}
	if CLI.Verbose {
		cfg.Verbose = true
	}
	if CLI.DryRun {
		cfg.Backend = config.BackendDummy
		cfg.Steering.Backend = ""
	}
	return cfg, cfg.Validate()
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancelFunc()
		// Give the loop time to stop the motor, then insist.
		time.Sleep(2 * time.Second)
		os.Exit(1)
	}()
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	player := sound.NewPlayer()
	defer player.Close()

	src, err := setup.Input(ctx, cfg, os.Stdin)
	if err != nil {
		return errors.Wrap(err, "opening input")
	}
	driver, err := setup.Driver(cfg)
	if err != nil {
		_ = src.Close()
		return errors.Wrap(err, "opening outputs")
	}

	loop := teleop.New(driver)
	loop.Verbose = cfg.Verbose

	screenDone := make(chan struct{})
	if cfg.Screen.Device != "" {
		scr := screen.New()
		if cfg.Backend == config.BackendDummy {
			scr.SetNotice("DRY RUN")
		}
		loop.OnUpdate = scr.Publish
		go func() {
			defer close(screenDone)
			scr.Loop(ctx, cfg.Screen.Device)
		}()
	} else {
		close(screenDone)
	}

	fmt.Printf("Driving from %s; arrows steer and set speed, Enter stops, Esc quits.\n", src.Name())
	tokens, inputDone := input.Pump(ctx, src)
	player.Play(cfg.Sound.Start)

	err = loop.Run(ctx, tokens)

	player.PlayAndWait(cfg.Sound.Stop, time.Second)
	cancel()
	<-screenDone

	if errors.Cause(err) == teleop.ErrInputClosed {
		// The source has finished; find out whether it failed or just ran dry.
		ierr := <-inputDone
		if ierr != nil && errors.Cause(ierr) != io.EOF {
			return errors.Wrapf(ierr, "input %s", src.Name())
		}
		return nil
	}
	// Unblock the reader goroutine; it may be parked in a read.
	_ = src.Close()
	return err
}
