package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*LoopOptions)(nil)

// LoopOptions controls the cadence of the control loop.
type LoopOptions struct {
	TickInterval time.Duration `json:"tick-interval" mapstructure:"tick-interval"`

	// PeriodicInterval is the number of ticks between heartbeat reports.
	PeriodicInterval int `json:"periodic-interval" mapstructure:"periodic-interval"`
}

func NewLoopOptions() *LoopOptions {
	return &LoopOptions{
		TickInterval:     2 * time.Second,
		PeriodicInterval: 30,
	}
}

func (o *LoopOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.TickInterval <= 0 {
		errs = append(errs, errors.New("loop tick interval must be positive"))
	}
	if o.PeriodicInterval < 1 {
		errs = append(errs, errors.New("loop periodic interval must be at least 1 tick"))
	}

	return errs
}

func (o *LoopOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.TickInterval, "loop.tick-interval", o.TickInterval, "Sleep between control loop iterations.")
	fs.IntVar(&o.PeriodicInterval, "loop.periodic-interval", o.PeriodicInterval, "Ticks between periodic status reports.")
}
