package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*OtaOptions)(nil)

// OtaOptions configures where firmware images arrive and where they are installed.
type OtaOptions struct {
	// SpoolDir is watched for uploaded images. Empty disables the spool source.
	SpoolDir string `json:"spool-dir" mapstructure:"spool-dir"`

	// InstallPath is where an accepted image is written.
	InstallPath string `json:"install-path" mapstructure:"install-path"`

	// PullEvery is how many polls pass between two checks of the S3 source.
	PullEvery int `json:"pull-every" mapstructure:"pull-every"`

	// ChunkSize is the number of bytes copied per poll.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// RequestTimeout bounds every network step of an image source: a check
	// for a new image, opening it and reading one chunk.
	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout"`

	// RestartOnEnd restarts the process after a completed install.
	RestartOnEnd bool `json:"restart-on-end" mapstructure:"restart-on-end"`
}

func NewOtaOptions() *OtaOptions {
	return &OtaOptions{
		SpoolDir:       "/var/lib/garage-agent/ota",
		InstallPath:    "/var/lib/garage-agent/firmware.bin",
		PullEvery:      150,
		ChunkSize:      64 * 1024,
		RequestTimeout: 5 * time.Second,
		RestartOnEnd:   true,
	}
}

func (o *OtaOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.InstallPath == "" {
		errs = append(errs, errors.New("ota install path is required"))
	}
	if o.PullEvery < 1 {
		errs = append(errs, errors.New("ota pull-every must be at least 1"))
	}
	if o.ChunkSize < 512 {
		errs = append(errs, errors.New("ota chunk size must be at least 512 bytes"))
	}
	if o.RequestTimeout <= 0 {
		errs = append(errs, errors.New("ota request timeout must be positive"))
	}

	return errs
}

func (o *OtaOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.SpoolDir, "ota.spool-dir", o.SpoolDir, "Directory watched for uploaded firmware images (*.bin). Empty disables it.")
	fs.StringVar(&o.InstallPath, "ota.install-path", o.InstallPath, "Destination of an accepted firmware image.")
	fs.IntVar(&o.PullEvery, "ota.pull-every", o.PullEvery, "Loop iterations between two checks of the S3 firmware object.")
	fs.IntVar(&o.ChunkSize, "ota.chunk-size", o.ChunkSize, "Bytes copied per loop iteration while an image is received.")
	fs.DurationVar(&o.RequestTimeout, "ota.request-timeout", o.RequestTimeout, "Upper bound of one firmware source request or chunk read.")
	fs.BoolVar(&o.RestartOnEnd, "ota.restart-on-end", o.RestartOnEnd, "Restart after a firmware image is installed.")
}
