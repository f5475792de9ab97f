package mqtt

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *ClientConfig
		wantErr bool
	}{
		{"nil config", nil, true},
		{"missing broker", &ClientConfig{ClientID: "a"}, true},
		{"bad scheme", &ClientConfig{BrokerURL: "http://host:1883", ClientID: "a"}, true},
		{"missing client id", &ClientConfig{BrokerURL: "tcp://host:1883"}, true},
		{"bad protocol", &ClientConfig{BrokerURL: "tcp://host:1883", ClientID: "a", ProtocolVersion: 3}, true},
		{"v5 default", &ClientConfig{BrokerURL: "tcp://host:1883", ClientID: "a"}, false},
		{"v311", &ClientConfig{BrokerURL: "tcp://host:1883", ClientID: "a", ProtocolVersion: ProtocolV311}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewClientSelectsProtocol(t *testing.T) {
	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://host:1883", ClientID: "a", ProtocolVersion: ProtocolV311})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*v311Client); !ok {
		t.Errorf("NewClient() returned %T, want *v311Client", c)
	}

	c, err = NewClient(&ClientConfig{BrokerURL: "tcp://host:1883", ClientID: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*pahoClient); !ok {
		t.Errorf("NewClient() returned %T, want *pahoClient", c)
	}
}

func TestConnectRefused(t *testing.T) {
	for _, version := range []int{ProtocolV5, ProtocolV311} {
		t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
			c, err := NewClient(&ClientConfig{
				BrokerURL:       "tcp://127.0.0.1:1",
				ClientID:        "test",
				ProtocolVersion: version,
				ConnectTimeout:  time.Second,
			})
			if err != nil {
				t.Fatal(err)
			}
			err = c.Connect(context.Background())
			if !errors.Is(err, ErrConnectionFailed) {
				t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
			}
			if c.IsConnected() {
				t.Error("IsConnected() = true after failed connect")
			}
			// Disconnect on a closed client is a no-op.
			c.Disconnect(context.Background())
		})
	}
}

func TestOperationsRequireSession(t *testing.T) {
	for _, version := range []int{ProtocolV5, ProtocolV311} {
		t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
			c, err := NewClient(&ClientConfig{BrokerURL: "tcp://127.0.0.1:1", ClientID: "test", ProtocolVersion: version})
			if err != nil {
				t.Fatal(err)
			}
			ctx := context.Background()
			if err := c.Publish(ctx, "/sensors/doors/garage", 0, false, []byte("OPEN")); !errors.Is(err, ErrNotConnected) {
				t.Errorf("Publish() error = %v, want ErrNotConnected", err)
			}
			if err := c.Subscribe(ctx, "/controls/garagedoor", 0); !errors.Is(err, ErrNotConnected) {
				t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
			}
			if err := c.Publish(ctx, "", 0, false, nil); !errors.Is(err, ErrInvalidTopic) {
				t.Errorf("Publish(\"\") error = %v, want ErrInvalidTopic", err)
			}
			if err := c.Subscribe(ctx, "t", 3); !errors.Is(err, ErrInvalidQoS) {
				t.Errorf("Subscribe(qos=3) error = %v, want ErrInvalidQoS", err)
			}
		})
	}
}

func TestInboxDropsWhenFull(t *testing.T) {
	b := newInbox(2)
	for i := 0; i < 3; i++ {
		b.push(Message{Topic: fmt.Sprintf("t%d", i)})
	}

	var got []string
	n := b.poll(10, func(m Message) { got = append(got, m.Topic) })
	if n != 2 {
		t.Fatalf("poll() = %d, want 2", n)
	}
	if got[0] != "t0" || got[1] != "t1" {
		t.Errorf("poll() delivered %v, want [t0 t1]", got)
	}
	if n := b.poll(10, func(Message) {}); n != 0 {
		t.Errorf("second poll() = %d, want 0", n)
	}
}

func TestInboxPollRespectsMax(t *testing.T) {
	b := newInbox(4)
	for i := 0; i < 4; i++ {
		b.push(Message{Topic: "t"})
	}
	if n := b.poll(3, func(Message) {}); n != 3 {
		t.Errorf("poll(3) = %d, want 3", n)
	}
	if n := b.poll(3, func(Message) {}); n != 1 {
		t.Errorf("poll(3) = %d, want 1", n)
	}
}

func TestPollDrainsInbox(t *testing.T) {
	c := &v311Client{cfg: &ClientConfig{}, inbox: newInbox(1)}
	c.inbox.push(Message{Topic: "/controls/garagedoor", Payload: []byte("x")})

	var got Message
	c.Poll(1, func(m Message) { got = m })
	if got.Topic != "/controls/garagedoor" || string(got.Payload) != "x" {
		t.Errorf("Poll() delivered %+v", got)
	}
}
