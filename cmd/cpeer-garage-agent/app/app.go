package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/garage-agent/cmd/cpeer-garage-agent/app/options"
	"github.com/autopeer-io/garage-agent/internal/garageagent"
	"github.com/autopeer-io/garage-agent/pkg/app"
	"github.com/autopeer-io/garage-agent/pkg/log"
)

const (
	commandName = "cpeer-garage-agent"
	commandDesc = `The garage agent watches the garage door switch, reports its state
to an MQTT broker and pulses the opener relay when a command arrives.`
)

func NewApp() *app.App {
	opts := options.NewAgentOptions()
	application := app.NewApp(
		commandName,
		"Launch the garage door agent",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.AgentOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		defer log.Sync()

		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		agent, err := cfg.NewAgent()
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}
		defer agent.Close()

		err = agent.Run(ctx)
		if garageagent.NeedsRestart(err) {
			log.Error(err, "Agent stopped")
			if rerr := agent.Restart(); rerr != nil {
				return fmt.Errorf("restart after %w: %w", err, rerr)
			}
		}
		return err
	}
}
