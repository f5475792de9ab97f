package options

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*LinkOptions)(nil)

// Association modes.
const (
	LinkModeNmcli  = "nmcli"
	LinkModeStatic = "static"
)

// LinkOptions describes how the device joins the network.
type LinkOptions struct {
	// Mode selects the association backend: nmcli or static.
	Mode      string `json:"mode" mapstructure:"mode"`
	Interface string `json:"interface" mapstructure:"interface"`
	SSID      string `json:"ssid" mapstructure:"ssid"`
	PSK       string `json:"psk" mapstructure:"psk"`
	Hostname  string `json:"hostname" mapstructure:"hostname"`

	// RetryInterval is the pause between association attempts.
	RetryInterval time.Duration `json:"retry-interval" mapstructure:"retry-interval"`

	// AttemptTimeout bounds one association attempt.
	AttemptTimeout time.Duration `json:"attempt-timeout" mapstructure:"attempt-timeout"`
}

func NewLinkOptions() *LinkOptions {
	return &LinkOptions{
		Mode:           LinkModeNmcli,
		Interface:      "wlan0",
		SSID:           "Briarhill",
		PSK:            "12221222",
		Hostname:       "GarageDoorSensor",
		RetryInterval:  500 * time.Millisecond,
		AttemptTimeout: 30 * time.Second,
	}
}

func (o *LinkOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	switch o.Mode {
	case LinkModeNmcli:
		if o.SSID == "" {
			errs = append(errs, errors.New("link ssid is required in nmcli mode"))
		}
	case LinkModeStatic:
	default:
		errs = append(errs, fmt.Errorf("unsupported link mode %q (nmcli, static)", o.Mode))
	}
	if o.Interface == "" {
		errs = append(errs, errors.New("link interface is required"))
	}
	if o.RetryInterval <= 0 {
		errs = append(errs, errors.New("link retry interval must be positive"))
	}
	if o.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("link attempt timeout must be positive"))
	}

	return errs
}

func (o *LinkOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Mode, "link.mode", o.Mode, "Network association backend: nmcli (WiFi via NetworkManager) or static (pre-associated interface).")
	fs.StringVar(&o.Interface, "link.interface", o.Interface, "Network interface carrying the link.")
	fs.StringVar(&o.SSID, "link.ssid", o.SSID, "WiFi network name to associate with.")
	fs.StringVar(&o.PSK, "link.psk", o.PSK, "WiFi pre-shared key.")
	fs.StringVar(&o.Hostname, "link.hostname", o.Hostname, "Hostname announced to the network.")
	fs.DurationVar(&o.RetryInterval, "link.retry-interval", o.RetryInterval, "Pause between association attempts.")
	fs.DurationVar(&o.AttemptTimeout, "link.attempt-timeout", o.AttemptTimeout, "Upper bound of a single association attempt.")
}
