package command

import (
	"context"
	"errors"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/garage-agent/pkg/log"
	"github.com/autopeer-io/garage-agent/pkg/mqtt"
)

type relayCall struct {
	active bool
	at     time.Time
}

type fakeRelay struct {
	clock *clocktesting.FakeClock
	calls []relayCall
	err   error
}

func (r *fakeRelay) SetRelay(active bool) error {
	r.calls = append(r.calls, relayCall{active: active, at: r.clock.Now()})
	return r.err
}

func newHandler() (*Handler, *fakeRelay, *clocktesting.FakeClock) {
	clk := clocktesting.NewFakeClock(time.Unix(0, 0))
	relay := &fakeRelay{clock: clk}
	return New("/controls/garagedoor", relay, time.Second, clk, log.NewNopLogger()), relay, clk
}

func TestCommandTopicPulsesOnce(t *testing.T) {
	for _, payload := range []string{"", "open", `{"anything":true}`} {
		h, relay, _ := newHandler()
		h.Handle(context.Background(), mqtt.Message{Topic: "/controls/garagedoor", Payload: []byte(payload)})

		if len(relay.calls) != 2 {
			t.Fatalf("payload %q: %d relay calls, want 2", payload, len(relay.calls))
		}
		if !relay.calls[0].active || relay.calls[1].active {
			t.Errorf("payload %q: relay sequence %+v, want active then idle", payload, relay.calls)
		}
		if held := relay.calls[1].at.Sub(relay.calls[0].at); held != time.Second {
			t.Errorf("payload %q: relay held %s, want 1s", payload, held)
		}
	}
}

func TestOtherTopicsIgnored(t *testing.T) {
	for _, tp := range []string{"/controls/garagedoor/extra", "controls/garagedoor", "sensors/hello", "/controls/other"} {
		h, relay, _ := newHandler()
		h.Handle(context.Background(), mqtt.Message{Topic: tp, Payload: []byte("x")})
		if len(relay.calls) != 0 {
			t.Errorf("topic %q triggered %d relay calls", tp, len(relay.calls))
		}
	}
}

func TestRelayErrorNotRetried(t *testing.T) {
	h, relay, _ := newHandler()
	relay.err = errors.New("line busy")

	if err := h.Pulse(); err == nil {
		t.Fatal("Pulse() should surface the relay error")
	}
	if len(relay.calls) != 1 {
		t.Errorf("relay calls = %d, want 1", len(relay.calls))
	}
}
