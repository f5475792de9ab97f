package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/garage-agent/internal/garageagent"
	"github.com/autopeer-io/garage-agent/pkg/app"
	"github.com/autopeer-io/garage-agent/pkg/log"
	"github.com/autopeer-io/garage-agent/pkg/options"
)

type AgentOptions struct {
	MqttOptions *options.MqttOptions `json:"mqtt" mapstructure:"mqtt"`
	LinkOptions *options.LinkOptions `json:"link" mapstructure:"link"`
	GpioOptions *options.GpioOptions `json:"gpio" mapstructure:"gpio"`
	LoopOptions *options.LoopOptions `json:"loop" mapstructure:"loop"`
	OtaOptions  *options.OtaOptions  `json:"ota" mapstructure:"ota"`
	S3Options   *options.S3Options   `json:"s3" mapstructure:"s3"`
	HttpOptions *options.HttpOptions `json:"http" mapstructure:"http"`
	Log         *log.Options         `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*AgentOptions)(nil)

func NewAgentOptions() *AgentOptions {
	o := &AgentOptions{
		MqttOptions: options.NewMqttOptions(),
		LinkOptions: options.NewLinkOptions(),
		GpioOptions: options.NewGpioOptions(),
		LoopOptions: options.NewLoopOptions(),
		OtaOptions:  options.NewOtaOptions(),
		S3Options:   options.NewS3Options(),
		HttpOptions: options.NewHttpOptions(),
		Log:         log.NewOptions(),
	}

	return o
}

func (o *AgentOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.LinkOptions.AddFlags(fss.FlagSet("link"))
	o.GpioOptions.AddFlags(fss.FlagSet("gpio"))
	o.LoopOptions.AddFlags(fss.FlagSet("loop"))
	o.OtaOptions.AddFlags(fss.FlagSet("ota"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

// Complete announces the device hostname in syslog unless one is set.
func (o *AgentOptions) Complete() error {
	if o.Log.Syslog != nil && o.Log.Syslog.Hostname == "" {
		o.Log.Syslog.Hostname = o.LinkOptions.Hostname
	}
	return nil
}

func (o *AgentOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.LinkOptions.Validate()...)
	errs = append(errs, o.GpioOptions.Validate()...)
	errs = append(errs, o.LoopOptions.Validate()...)
	errs = append(errs, o.OtaOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *AgentOptions) Config() (*garageagent.Config, error) {
	return &garageagent.Config{
		MqttOptions: o.MqttOptions,
		LinkOptions: o.LinkOptions,
		GpioOptions: o.GpioOptions,
		LoopOptions: o.LoopOptions,
		OtaOptions:  o.OtaOptions,
		S3Options:   o.S3Options,
		HttpOptions: o.HttpOptions,
	}, nil
}
