package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/autopeer-io/garage-agent/pkg/log"
	"github.com/autopeer-io/garage-agent/pkg/mqtt"
	"github.com/autopeer-io/garage-agent/pkg/mqtt/mqtttest"
	"github.com/autopeer-io/garage-agent/pkg/mqtt/topic"
)

const statusTopic = "/sensors/doors/garage"

type recorder struct {
	msgs []mqtt.Message
}

func (r *recorder) handle(ctx context.Context, m mqtt.Message) {
	r.msgs = append(r.msgs, m)
}

func newSupervisor(c *mqtttest.Client, inbox int) (*Supervisor, *recorder, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := &recorder{}
	s := New(c, topic.NewSet("GarageDoorSensor"), 0, inbox, r.handle, log.NewFromZap(zap.New(core)))
	return s, r, logs
}

func TestEnsureConnectedSubscribesAndAnnounces(t *testing.T) {
	c := &mqtttest.Client{}
	s, _, logs := newSupervisor(c, 4)

	if err := s.EnsureConnected(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !s.IsConnected() || s.State() != StateConnected {
		t.Fatalf("IsConnected() = %v, State() = %s", s.IsConnected(), s.State())
	}
	if len(c.Subscriptions) != 1 || c.Subscriptions[0] != "/controls/garagedoor" {
		t.Errorf("Subscriptions = %v", c.Subscriptions)
	}
	hello := c.PublishedOn("sensors/hello")
	if len(hello) != 1 || hello[0] != "hello from GarageDoorSensor" {
		t.Errorf("hello publications = %v", hello)
	}
	if logs.FilterMessage("MQTT Connected").Len() != 1 {
		t.Error("missing MQTT Connected event")
	}

	// A second call while connected does nothing.
	if err := s.EnsureConnected(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.Connects != 1 {
		t.Errorf("Connects = %d, want 1", c.Connects)
	}
}

func TestEnsureConnectedFailureIsFatal(t *testing.T) {
	refused := errors.New("connection refused")
	c := &mqtttest.Client{ConnectErr: refused}
	s, _, _ := newSupervisor(c, 4)

	err := s.EnsureConnected(context.Background())
	if !IsFatal(err) {
		t.Fatalf("EnsureConnected() error = %v, want fatal", err)
	}
	if !errors.Is(err, refused) {
		t.Errorf("fatal error does not wrap the cause: %v", err)
	}
	if c.Connects != 1 {
		t.Errorf("Connects = %d, want exactly one attempt", c.Connects)
	}
	if s.State() != StateDisconnected {
		t.Errorf("State() = %s", s.State())
	}
}

func TestSubscribeFailureIsFatal(t *testing.T) {
	c := &mqtttest.Client{SubscribeErr: mqtt.ErrSubscribeFailed}
	s, _, _ := newSupervisor(c, 4)

	if err := s.EnsureConnected(context.Background()); !IsFatal(err) {
		t.Fatalf("EnsureConnected() error = %v, want fatal", err)
	}
	if c.IsConnected() {
		t.Error("client should be disconnected after a failed subscribe")
	}
}

func TestHelloFailureIsNotFatal(t *testing.T) {
	c := &mqtttest.Client{PublishErr: mqtt.ErrPublishFailed, FailPublishOn: "sensors/hello"}
	s, _, logs := newSupervisor(c, 4)

	if err := s.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("EnsureConnected() error = %v", err)
	}
	if !s.IsConnected() {
		t.Error("session should stay connected")
	}
	if logs.FilterMessage("Hello publish failed").Len() != 1 {
		t.Error("hello failure not logged")
	}
}

func TestPublishFailureTearsDown(t *testing.T) {
	c := &mqtttest.Client{}
	s, _, _ := newSupervisor(c, 4)
	ctx := context.Background()

	if err := s.Publish(ctx, statusTopic, []byte(`{"GarageDoor":"open"}`)); err != nil {
		t.Fatal(err)
	}

	c.PublishErr = mqtt.ErrPublishFailed
	c.FailPublishOn = statusTopic
	if err := s.Publish(ctx, statusTopic, []byte(`{"GarageDoor":"closed"}`)); err == nil {
		t.Fatal("Publish() should fail")
	} else if IsFatal(err) {
		t.Fatalf("publish failure must not be fatal: %v", err)
	}
	if s.State() != StateDisconnected || s.IsConnected() {
		t.Fatalf("State() = %s after publish failure", s.State())
	}

	// The next publish reconnects through EnsureConnected.
	c.PublishErr = nil
	if err := s.Publish(ctx, statusTopic, []byte(`{"GarageDoor":"closed"}`)); err != nil {
		t.Fatal(err)
	}
	if c.Connects != 2 {
		t.Errorf("Connects = %d, want 2", c.Connects)
	}
	if got := c.PublishedOn(statusTopic); len(got) != 2 {
		t.Errorf("status publications = %v", got)
	}
}

func TestPollInboundReconnectsAndDrains(t *testing.T) {
	c := &mqtttest.Client{}
	s, r, logs := newSupervisor(c, 2)
	ctx := context.Background()

	if err := s.PollInbound(ctx); err != nil {
		t.Fatal(err)
	}
	if c.Connects != 1 || logs.FilterMessage("MQTT Disconnected").Len() != 1 {
		t.Fatalf("Connects = %d", c.Connects)
	}

	for i := 0; i < 3; i++ {
		c.Deliver("/controls/garagedoor", fmt.Sprint(i))
	}
	if err := s.PollInbound(ctx); err != nil {
		t.Fatal(err)
	}
	if len(r.msgs) != 2 {
		t.Fatalf("handled %d messages, want inbox size 2", len(r.msgs))
	}

	c.Drop()
	if err := s.PollInbound(ctx); err != nil {
		t.Fatal(err)
	}
	if c.Connects != 2 {
		t.Errorf("Connects = %d, want reconnect after drop", c.Connects)
	}
	if len(r.msgs) != 3 {
		t.Errorf("handled %d messages, want 3", len(r.msgs))
	}
}

func TestPollInboundFatal(t *testing.T) {
	c := &mqtttest.Client{ConnectErr: mqtt.ErrConnectionFailed}
	s, _, _ := newSupervisor(c, 2)

	if err := s.PollInbound(context.Background()); !IsFatal(err) {
		t.Fatalf("PollInbound() error = %v, want fatal", err)
	}
}
