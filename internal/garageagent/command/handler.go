// Package command turns inbound command messages into relay pulses.
package command

import (
	"context"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/garage-agent/internal/pkg/metrics"
	"github.com/autopeer-io/garage-agent/pkg/log"
	"github.com/autopeer-io/garage-agent/pkg/mqtt"
	"github.com/autopeer-io/garage-agent/pkg/mqtt/topic"
)

// Relay drives the opener relay.
type Relay interface {
	SetRelay(active bool) error
}

// Handler pulses the relay for every message on the command topic. The
// payload is not interpreted.
type Handler struct {
	topic  string
	relay  Relay
	pulse  time.Duration
	clock  clock.Clock
	logger log.Logger
}

func New(commandTopic string, relay Relay, pulse time.Duration, clk clock.Clock, logger log.Logger) *Handler {
	return &Handler{
		topic:  commandTopic,
		relay:  relay,
		pulse:  pulse,
		clock:  clk,
		logger: logger,
	}
}

// Handle dispatches one inbound message. Messages on other topics are ignored.
func (h *Handler) Handle(ctx context.Context, msg mqtt.Message) {
	h.logger.Info("Got MQTT Message", "topic", msg.Topic)

	if !topic.Matches(h.topic, msg.Topic) {
		metrics.Commands.WithLabelValues("ignored").Inc()
		return
	}
	if err := h.Pulse(); err != nil {
		metrics.Commands.WithLabelValues("failed").Inc()
		return
	}
	metrics.Commands.WithLabelValues("pulse").Inc()
}

// Pulse holds the relay active for the configured duration and releases it.
// It blocks for the whole pulse. Relay errors are logged and not retried.
func (h *Handler) Pulse() error {
	if err := h.relay.SetRelay(true); err != nil {
		h.logger.Error(err, "Failed to activate relay")
		return err
	}
	h.clock.Sleep(h.pulse)
	if err := h.relay.SetRelay(false); err != nil {
		h.logger.Error(err, "Failed to release relay")
		return err
	}
	h.logger.Debug("Relay pulsed", "duration", h.pulse)
	return nil
}
