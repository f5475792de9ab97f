package garageagent

import (
	"fmt"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/garage-agent/internal/garageagent/command"
	"github.com/autopeer-io/garage-agent/internal/garageagent/core"
	"github.com/autopeer-io/garage-agent/internal/garageagent/hal"
	"github.com/autopeer-io/garage-agent/internal/garageagent/link"
	"github.com/autopeer-io/garage-agent/internal/garageagent/ota"
	"github.com/autopeer-io/garage-agent/internal/garageagent/report"
	"github.com/autopeer-io/garage-agent/internal/garageagent/sensor"
	"github.com/autopeer-io/garage-agent/internal/garageagent/server"
	"github.com/autopeer-io/garage-agent/internal/garageagent/session"
	"github.com/autopeer-io/garage-agent/internal/garageagent/wifi"
	"github.com/autopeer-io/garage-agent/pkg/log"
	"github.com/autopeer-io/garage-agent/pkg/mqtt"
	"github.com/autopeer-io/garage-agent/pkg/options"
)

// Config is the validated, frozen configuration of one agent.
type Config struct {
	MqttOptions *options.MqttOptions
	LinkOptions *options.LinkOptions
	GpioOptions *options.GpioOptions
	LoopOptions *options.LoopOptions
	OtaOptions  *options.OtaOptions
	S3Options   *options.S3Options
	HttpOptions *options.HttpOptions
}

// NewAgent builds the hardware, transport and control components.
func (cfg *Config) NewAgent() (*Agent, error) {
	logger := log.WithName("garage-agent")

	openLevel, err := core.ParseLevel(cfg.GpioOptions.OpenLevel)
	if err != nil {
		return nil, err
	}
	relayLevel, err := core.ParseLevel(cfg.GpioOptions.RelayActiveLevel)
	if err != nil {
		return nil, err
	}

	systemHAL, err := hal.New(hal.Config{
		Chip:             cfg.GpioOptions.Chip,
		SensorLine:       cfg.GpioOptions.SensorLine,
		RelayLine:        cfg.GpioOptions.RelayLine,
		RelayActiveLevel: relayLevel,
		RestartMode:      cfg.GpioOptions.RestartMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init hal: %w", err)
	}

	mqttClient, err := mqtt.NewClient(cfg.MqttOptions.ToClientConfig())
	if err != nil {
		_ = systemHAL.Close()
		return nil, fmt.Errorf("failed to init mqtt client: %w", err)
	}

	updates, err := cfg.newUpdateChannel(logger.WithName("ota"))
	if err != nil {
		_ = systemHAL.Close()
		return nil, fmt.Errorf("failed to init update channel: %w", err)
	}

	clk := clock.RealClock{}
	topics := cfg.MqttOptions.Topics()
	commands := command.New(topics.Command, systemHAL, cfg.GpioOptions.PulseDuration, clk, logger.WithName("command"))

	a := &Agent{
		hal: systemHAL,
		link: link.New(
			cfg.newAssociator(logger.WithName("wifi")),
			cfg.LinkOptions.RetryInterval,
			cfg.LinkOptions.AttemptTimeout,
			logger.WithName("link"),
		),
		session: session.New(
			mqttClient,
			topics,
			cfg.MqttOptions.QoS,
			cfg.MqttOptions.InboxSize,
			commands.Handle,
			logger.WithName("session"),
		),
		sampler:         sensor.New(systemHAL, openLevel),
		scheduler:       report.New(cfg.LoopOptions.PeriodicInterval),
		updates:         updates,
		clock:           clk,
		logger:          logger,
		statusTopic:     topics.Status,
		tick:            cfg.LoopOptions.TickInterval,
		restartOnUpdate: cfg.OtaOptions.RestartOnEnd,
	}
	if cfg.HttpOptions.Addr != "" {
		a.server = server.NewServer(cfg.HttpOptions, a.Ready, logger.WithName("http"))
	}
	return a, nil
}

func (cfg *Config) newAssociator(logger log.Logger) core.Associator {
	o := cfg.LinkOptions
	if o.Mode == options.LinkModeStatic {
		return wifi.NewStatic(o.Interface)
	}
	return wifi.NewNmcli(o.Interface, o.SSID, o.PSK, o.Hostname, logger)
}

func (cfg *Config) newUpdateChannel(logger log.Logger) (*ota.Channel, error) {
	var sources []ota.Source
	if cfg.OtaOptions.SpoolDir != "" {
		sources = append(sources, ota.NewSpool(cfg.OtaOptions.SpoolDir, logger.WithName("spool")))
	}
	if cfg.S3Options.Enabled() {
		s3, err := ota.NewS3(cfg.S3Options, cfg.OtaOptions.PullEvery, cfg.OtaOptions.RequestTimeout, cfg.OtaOptions.InstallPath, logger.WithName("s3"))
		if err != nil {
			return nil, err
		}
		sources = append(sources, s3)
	}
	return ota.NewChannel(cfg.OtaOptions.InstallPath, cfg.OtaOptions.ChunkSize, cfg.OtaOptions.RequestTimeout, logger, sources...), nil
}
