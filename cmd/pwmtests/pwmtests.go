package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/config"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/setup"
)

var CLI struct {
	Config  string  `short:"c" help:"YAML config file." type:"path"`
	Backend string  `help:"Hardware backend: periph, rpio, pca9685 or dummy.  Defaults to the config's."`
	Hz      float64 `default:"50" help:"PWM frequency for newly opened pins."`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("pwmtests"),
		kong.Description("Poke PWM and digital pins by hand, e.g. to find the servo end points."))

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Println("Bad config:", err)
		os.Exit(2)
	}
	backend := cfg.Backend
	if CLI.Backend != "" {
		backend = CLI.Backend
	}
	host, err := setup.Host(cfg, backend)
	if err != nil {
		fmt.Println("Failed to open", backend, err)
		os.Exit(1)
	}

	b := &bench{host: host, pwms: map[int]hardware.PWM{}, digitals: map[int]hardware.Digital{}}
	defer b.close()

	fmt.Printf(
		`Commands:
    p <pin> <duty%%>   # Set PWM duty on a pin (opened at %vHz on first use)
    d <pin> <0|1>     # Drive a digital pin low or high
    q                 # Halt every pin and quit

Servo angle a is duty a/18+2: 2.0 = 0 degrees, 7.0 = centre, 12.0 = 180.
`, CLI.Hz)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}
		if quit := b.exec(strings.Fields(line)); quit {
			return
		}
	}
}

type bench struct {
	host     hardware.Host
	pwms     map[int]hardware.PWM
	digitals map[int]hardware.Digital
}

func (b *bench) exec(parts []string) (quit bool) {
	if len(parts) == 0 {
		return false
	}
	switch parts[0] {
	case "q":
		return true
	case "p", "d":
		if len(parts) < 3 {
			fmt.Println("Not enough parameters")
			return false
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			fmt.Println("Expected int, not ", parts[1])
			return false
		}
		if parts[0] == "p" {
			v, err := strconv.ParseFloat(parts[2], 64)
			if err != nil {
				fmt.Println("Expected float, not ", parts[2])
				return false
			}
			b.setPWM(n, v)
		} else {
			b.setDigital(n, parts[2] == "1")
		}
	default:
		fmt.Println("Unknown command", parts[0])
	}
	return false
}

func (b *bench) setPWM(pin int, duty float64) {
	if _, ok := b.digitals[pin]; ok {
		fmt.Println("Pin", pin, "is in use as a digital output")
		return
	}
	p, ok := b.pwms[pin]
	if !ok {
		var err error
		p, err = b.host.PWM(pin, CLI.Hz)
		if err != nil {
			fmt.Println("Failed to open PWM: ", err)
			return
		}
		b.pwms[pin] = p
	}
	fmt.Printf("Setting PWM %d to %v%%\n", pin, duty)
	if err := p.SetDutyPercent(duty); err != nil {
		fmt.Println("Failed to set duty: ", err)
	}
}

func (b *bench) setDigital(pin int, high bool) {
	if _, ok := b.pwms[pin]; ok {
		fmt.Println("Pin", pin, "is in use as a PWM output")
		return
	}
	p, ok := b.digitals[pin]
	if !ok {
		var err error
		p, err = b.host.Digital(pin)
		if err != nil {
			fmt.Println("Failed to open digital pin: ", err)
			return
		}
		b.digitals[pin] = p
	}
	fmt.Printf("Setting pin %d to %v\n", pin, high)
	if err := p.Out(high); err != nil {
		fmt.Println("Failed to write pin: ", err)
	}
}

func (b *bench) close() {
	for n, p := range b.pwms {
		if err := p.Halt(); err != nil {
			fmt.Println("Failed to halt PWM", n, err)
		}
	}
	for n, p := range b.digitals {
		if err := p.Halt(); err != nil {
			fmt.Println("Failed to halt pin", n, err)
		}
	}
	if err := b.host.Close(); err != nil {
		fmt.Println("Failed to close", b.host.Name(), err)
	}
}
