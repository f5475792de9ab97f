// Package session keeps the broker session that carries reports and commands.
package session

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/autopeer-io/garage-agent/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/garage-agent/internal/pkg/util/fsm"
	"github.com/autopeer-io/garage-agent/pkg/log"
	"github.com/autopeer-io/garage-agent/pkg/mqtt"
	"github.com/autopeer-io/garage-agent/pkg/mqtt/topic"
)

// Session health states and the events moving between them.
const (
	StateConnected    = "connected"
	StateDisconnected = "disconnected"

	EventConnect = "connect"
	EventDrop    = "drop"
)

// Handler consumes one inbound message.
type Handler func(ctx context.Context, msg mqtt.Message)

// Supervisor owns the session health state on top of a link that the caller
// keeps up.
type Supervisor struct {
	client    mqtt.Client
	topics    topic.Set
	qos       int
	inboxSize int
	handler   Handler
	logger    log.Logger

	fsm *fsm.FSM
}

// New returns a Supervisor in the disconnected state.
func New(client mqtt.Client, topics topic.Set, qos, inboxSize int, handler Handler, logger log.Logger) *Supervisor {
	s := &Supervisor{
		client:    client,
		topics:    topics,
		qos:       qos,
		inboxSize: inboxSize,
		handler:   handler,
		logger:    logger,
	}
	s.fsm = fsm.NewFSM(
		StateDisconnected,
		fsm.Events{
			{Name: EventConnect, Src: []string{StateDisconnected}, Dst: StateConnected},
			{Name: EventDrop, Src: []string{StateConnected}, Dst: StateDisconnected},
		},
		fsm.Callbacks{
			"enter_" + StateConnected: fsmutil.WrapEvent(s.onConnected),
			"enter_" + StateDisconnected: func(ctx context.Context, e *fsm.Event) {
				metrics.SessionConnected.Set(0)
			},
		},
	)
	return s
}

func (s *Supervisor) onConnected(ctx context.Context, e *fsm.Event) error {
	metrics.SessionConnected.Set(1)
	s.logger.Info("MQTT Connected", "statusTopic", s.topics.Status)
	return nil
}

// State returns the current session health.
func (s *Supervisor) State() string {
	return s.fsm.Current()
}

// IsConnected reports whether the session is healthy without blocking.
func (s *Supervisor) IsConnected() bool {
	return s.fsm.Is(StateConnected) && s.client.IsConnected()
}

// EnsureConnected makes a single connection attempt when the session is down.
// On success the command topic is subscribed and the hello message is
// published. A failed connect or subscribe returns a *FatalError.
func (s *Supervisor) EnsureConnected(ctx context.Context) error {
	if s.IsConnected() {
		return nil
	}
	if s.fsm.Is(StateConnected) {
		// The transport dropped underneath us.
		s.teardown(ctx)
	}

	if err := s.client.Connect(ctx); err != nil {
		metrics.SessionConnects.WithLabelValues("failed").Inc()
		s.logger.Error(err, "MQTT connect failed")
		return &FatalError{Op: "connect", Err: err}
	}
	metrics.SessionConnects.WithLabelValues("success").Inc()

	if err := s.client.Subscribe(ctx, s.topics.Command, s.qos); err != nil {
		s.client.Disconnect(ctx)
		s.logger.Error(err, "MQTT subscribe failed", "topic", s.topics.Command)
		return &FatalError{Op: "subscribe", Err: err}
	}

	if err := fsmutil.Fire(ctx, s.fsm, EventConnect); err != nil {
		return fmt.Errorf("session state: %w", err)
	}

	if err := s.client.Publish(ctx, s.topics.Hello, s.qos, false, []byte(s.topics.HelloPayload)); err != nil {
		s.logger.Error(err, "Hello publish failed", "topic", s.topics.Hello)
	} else {
		s.logger.Debug("Publish ok", "topic", s.topics.Hello)
	}
	return nil
}

// Publish sends payload on topic, connecting first if needed. A publish
// failure tears the session down so the next call reconnects.
func (s *Supervisor) Publish(ctx context.Context, t string, payload []byte) error {
	if err := s.EnsureConnected(ctx); err != nil {
		return err
	}

	s.logger.Debug("Sending payload", "topic", t, "payload", string(payload))
	if err := s.client.Publish(ctx, t, s.qos, false, payload); err != nil {
		s.logger.Error(err, "Publish failed", "topic", t)
		s.teardown(ctx)
		return err
	}
	s.logger.Debug("Publish ok", "topic", t)
	return nil
}

// PollInbound reconnects if needed and then hands the messages buffered so
// far, at most the inbox size, to the handler.
func (s *Supervisor) PollInbound(ctx context.Context) error {
	if !s.IsConnected() {
		s.logger.Info("MQTT Disconnected")
		if err := s.EnsureConnected(ctx); err != nil {
			return err
		}
	}

	s.client.Poll(s.inboxSize, func(m mqtt.Message) {
		s.handler(ctx, m)
	})
	return nil
}

// Close ends the session.
func (s *Supervisor) Close(ctx context.Context) {
	s.teardown(ctx)
}

func (s *Supervisor) teardown(ctx context.Context) {
	s.client.Disconnect(ctx)
	if err := fsmutil.Fire(ctx, s.fsm, EventDrop); err != nil && s.fsm.Is(StateConnected) {
		s.logger.Error(err, "Failed to record session drop")
	}
}
