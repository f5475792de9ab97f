package options

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*GpioOptions)(nil)

// Restart modes used after a fatal session failure or a firmware install.
const (
	RestartModeExit   = "exit"
	RestartModeReboot = "reboot"
)

// GpioOptions describes the door switch input and the opener relay.
type GpioOptions struct {
	Chip       string `json:"chip" mapstructure:"chip"`
	SensorLine int    `json:"sensor-line" mapstructure:"sensor-line"`
	RelayLine  int    `json:"relay-line" mapstructure:"relay-line"`

	// OpenLevel is the input level, "high" or "low", meaning the door is open.
	OpenLevel string `json:"open-level" mapstructure:"open-level"`

	// RelayActiveLevel is the output level, "high" or "low", that energizes the relay.
	RelayActiveLevel string `json:"relay-active-level" mapstructure:"relay-active-level"`

	PulseDuration time.Duration `json:"pulse-duration" mapstructure:"pulse-duration"`

	// RestartMode is exit or reboot.
	RestartMode string `json:"restart-mode" mapstructure:"restart-mode"`
}

func NewGpioOptions() *GpioOptions {
	return &GpioOptions{
		Chip:             "gpiochip0",
		SensorLine:       4,
		RelayLine:        12,
		OpenLevel:        "high",
		RelayActiveLevel: "low",
		PulseDuration:    time.Second,
		RestartMode:      RestartModeExit,
	}
}

func (o *GpioOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.Chip == "" {
		errs = append(errs, errors.New("gpio chip is required"))
	}
	if o.SensorLine < 0 || o.RelayLine < 0 {
		errs = append(errs, errors.New("gpio lines must not be negative"))
	}
	if o.SensorLine == o.RelayLine {
		errs = append(errs, fmt.Errorf("gpio sensor and relay lines must differ, both are %d", o.SensorLine))
	}
	if !validLevel(o.OpenLevel) {
		errs = append(errs, fmt.Errorf("gpio open level %q must be high or low", o.OpenLevel))
	}
	if !validLevel(o.RelayActiveLevel) {
		errs = append(errs, fmt.Errorf("gpio relay active level %q must be high or low", o.RelayActiveLevel))
	}
	if o.PulseDuration <= 0 {
		errs = append(errs, errors.New("gpio pulse duration must be positive"))
	}
	if o.RestartMode != RestartModeExit && o.RestartMode != RestartModeReboot {
		errs = append(errs, fmt.Errorf("unsupported restart mode %q (exit, reboot)", o.RestartMode))
	}

	return errs
}

func validLevel(s string) bool {
	return s == "high" || s == "low"
}

func (o *GpioOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Chip, "gpio.chip", o.Chip, "GPIO character device chip name.")
	fs.IntVar(&o.SensorLine, "gpio.sensor-line", o.SensorLine, "Line offset of the door position switch.")
	fs.IntVar(&o.RelayLine, "gpio.relay-line", o.RelayLine, "Line offset of the opener relay.")
	fs.StringVar(&o.OpenLevel, "gpio.open-level", o.OpenLevel, "Input level that means the door is open: high or low.")
	fs.StringVar(&o.RelayActiveLevel, "gpio.relay-active-level", o.RelayActiveLevel, "Output level that energizes the relay: high or low.")
	fs.DurationVar(&o.PulseDuration, "gpio.pulse-duration", o.PulseDuration, "How long the relay is held active per command.")
	fs.StringVar(&o.RestartMode, "gpio.restart-mode", o.RestartMode, "Restart action after a fatal failure or firmware install: exit or reboot.")
}
