package config

import (
	"fmt"
	"io/ioutil"
	"reflect"
	"strconv"

	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/drive"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/hardware"
)

const (
	BackendPeriph  = "periph"
	BackendRpio    = "rpio"
	BackendDummy   = "dummy"
	BackendPCA9685 = "pca9685"

	InputKeyboard = "keyboard"
	InputJoystick = "joystick"
	InputConsole  = "console"
)

type Keyboard struct {
	Device string `yaml:"device" env:"TELEOP_KEYBOARD_DEVICE"`
	Grab   bool   `yaml:"grab" env:"TELEOP_KEYBOARD_GRAB"`
}

type Joystick struct {
	Device string `yaml:"device" env:"JOYSTICK_DEVICE"`
}

// I2CAddr is a 7-bit bus address.  In the environment it may be written in
// any Go integer syntax, so TELEOP_PCA9685_ADDR=0x40 works.
type I2CAddr int

func parseI2CAddr(s string) (interface{}, error) {
	v, err := strconv.ParseInt(s, 0, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "bad I2C address %q", s)
	}
	return I2CAddr(v), nil
}

var envParsers = map[reflect.Type]env.ParserFunc{
	reflect.TypeOf(I2CAddr(0)): parseI2CAddr,
}

type PCA9685 struct {
	Device string  `yaml:"device" env:"TELEOP_PCA9685_DEVICE"`
	Addr   I2CAddr `yaml:"addr" env:"TELEOP_PCA9685_ADDR"`
}

type Steering struct {
	// Backend overrides the top-level backend for the servo only.  The
	// only sensible value is pca9685; empty means same as the motor.
	Backend string  `yaml:"backend" env:"TELEOP_STEERING_BACKEND"`
	Pin     int     `yaml:"pin" env:"TELEOP_STEERING_PIN"`
	Hz      float64 `yaml:"hz" env:"TELEOP_STEERING_HZ"`
	PCA9685 PCA9685 `yaml:"pca9685"`
}

type Motor struct {
	Enable int     `yaml:"enable" env:"TELEOP_MOTOR_ENABLE_PIN"`
	Hz     float64 `yaml:"hz" env:"TELEOP_MOTOR_HZ"`
	In1    int     `yaml:"in1" env:"TELEOP_MOTOR_IN1_PIN"`
	In2    int     `yaml:"in2" env:"TELEOP_MOTOR_IN2_PIN"`
}

type Sound struct {
	Start string `yaml:"start" env:"TELEOP_SOUND_START"`
	Stop  string `yaml:"stop" env:"TELEOP_SOUND_STOP"`
}

type Screen struct {
	Device string `yaml:"device" env:"TELEOP_SCREEN_DEVICE"`
}

type Config struct {
	Backend  string   `yaml:"backend" env:"TELEOP_BACKEND"`
	Input    string   `yaml:"input" env:"TELEOP_INPUT"`
	Keyboard Keyboard `yaml:"keyboard"`
	Joystick Joystick `yaml:"joystick"`
	Steering Steering `yaml:"steering"`
	Motor    Motor    `yaml:"motor"`
	Sound    Sound    `yaml:"sound"`
	Screen   Screen   `yaml:"screen"`
	Verbose  bool     `yaml:"verbose" env:"TELEOP_VERBOSE"`
}

// Default is the stock wiring: servo on BCM 27, L298N ENA/IN1/IN2 on BCM
// 19/26/13.
func Default() *Config {
	return &Config{
		Backend: BackendPeriph,
		Input:   InputKeyboard,
		Keyboard: Keyboard{
			Device: "/dev/input/event0",
			Grab:   true,
		},
		Joystick: Joystick{
			Device: "/dev/input/js0",
		},
		Steering: Steering{
			Pin: 27,
			Hz:  drive.DefaultSteeringHz,
			PCA9685: PCA9685{
				Device: "/dev/i2c-1",
				Addr:   0x40,
			},
		},
		Motor: Motor{
			Enable: 19,
			Hz:     drive.DefaultMotorHz,
			In1:    26,
			In2:    13,
		},
	}
}

// Load builds the configuration from the defaults, then the YAML file at
// path (skipped if path is empty), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading config")
		}
		if err := Parse(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", path)
		}
	}
	if err := env.ParseWithFuncs(cfg, envParsers); err != nil {
		return nil, errors.Wrap(err, "reading environment")
	}
	return cfg, nil
}

// Parse overlays YAML onto cfg; fields missing from data keep their value.
func Parse(data []byte, cfg *Config) error {
	return yaml.UnmarshalStrict(data, cfg)
}

// Marshal renders the configuration as YAML, e.g. to print the effective
// settings.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// SteeringBackend is the backend that owns the servo channel.
func (c *Config) SteeringBackend() string {
	if c.Steering.Backend == "" {
		return c.Backend
	}
	return c.Steering.Backend
}

// Pins converts the wiring to what drive.Open wants.
func (c *Config) Pins() drive.Pins {
	return drive.Pins{
		Steering:   c.Steering.Pin,
		SteeringHz: c.Steering.Hz,
		Enable:     c.Motor.Enable,
		MotorHz:    c.Motor.Hz,
		In1:        c.Motor.In1,
		In2:        c.Motor.In2,
	}
}

type ValidationError struct {
	Field   string
	Problem string
}

func (err ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", err.Field, err.Problem)
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPeriph, BackendRpio, BackendDummy:
	default:
		return ValidationError{"backend", fmt.Sprintf("unknown backend %q", c.Backend)}
	}
	switch c.Steering.Backend {
	case "", BackendPeriph, BackendRpio, BackendDummy, BackendPCA9685:
	default:
		return ValidationError{"steering.backend", fmt.Sprintf("unknown backend %q", c.Steering.Backend)}
	}
	switch c.Input {
	case InputKeyboard, InputJoystick, InputConsole:
	default:
		return ValidationError{"input", fmt.Sprintf("unknown input %q", c.Input)}
	}

	if c.Steering.Hz <= 0 {
		return ValidationError{"steering.hz", "must be positive"}
	}
	if c.Motor.Hz <= 0 {
		return ValidationError{"motor.hz", "must be positive"}
	}

	pins := map[int]string{}
	claim := func(field string, pin int) error {
		if pin < 0 {
			return ValidationError{field, "must not be negative"}
		}
		if other, ok := pins[pin]; ok {
			return ValidationError{field, fmt.Sprintf("pin %d already used by %s", pin, other)}
		}
		pins[pin] = field
		return nil
	}
	if err := claim("motor.enable", c.Motor.Enable); err != nil {
		return err
	}
	if err := claim("motor.in1", c.Motor.In1); err != nil {
		return err
	}
	if err := claim("motor.in2", c.Motor.In2); err != nil {
		return err
	}
	if c.SteeringBackend() == c.Backend {
		if err := claim("steering.pin", c.Steering.Pin); err != nil {
			return err
		}
	} else if c.Steering.Pin < 0 {
		return ValidationError{"steering.pin", "must not be negative"}
	}

	if err := c.validateRpioPWM(); err != nil {
		return err
	}

	if c.SteeringBackend() == BackendPCA9685 {
		if a := c.Steering.PCA9685.Addr; a < 0x03 || a > 0x77 {
			return ValidationError{"steering.pca9685.addr", fmt.Sprintf("%#x is not a 7-bit I2C address", int(a))}
		}
		if c.Steering.Pin > 15 {
			return ValidationError{"steering.pin", "PCA9685 channel must be 0-15"}
		}
		if c.Steering.PCA9685.Device == "" {
			return ValidationError{"steering.pca9685.device", "required"}
		}
	}
	return nil
}

// rpio only has hardware PWM on two channels, each reachable from two pins.
func (c *Config) validateRpioPWM() error {
	channels := map[int]string{}
	check := func(field string, pin int) error {
		ch, ok := hardware.RpioPWMChannel(pin)
		if !ok {
			return ValidationError{field, fmt.Sprintf("rpio has no hardware PWM on pin %d (use 12, 13, 18 or 19)", pin)}
		}
		if other, ok := channels[ch]; ok {
			return ValidationError{field, fmt.Sprintf("pin %d shares rpio PWM channel %d with %s", pin, ch, other)}
		}
		channels[ch] = field
		return nil
	}
	if c.Backend == BackendRpio {
		if err := check("motor.enable", c.Motor.Enable); err != nil {
			return err
		}
	}
	if c.SteeringBackend() == BackendRpio {
		if err := check("steering.pin", c.Steering.Pin); err != nil {
			return err
		}
	}
	return nil
}
