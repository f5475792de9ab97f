package mqtt

import (
	"context"
)

// Message is one inbound publication parked in the client's inbox.
type Message struct {
	Topic   string
	Payload []byte
}

// Client defines the session-level contract the agent needs from a broker
// connection. Unlike an auto-reconnecting manager it performs exactly one
// handshake per Connect call and never reconnects on its own, so the caller
// owns the recovery policy.
//
// Inbound messages are not delivered through callbacks: they are buffered in a
// fixed-size inbox and handed out by Poll on the caller's goroutine.
type Client interface {
	// Connect performs a single connection handshake bounded by the configured timeout.
	Connect(ctx context.Context) error

	// Disconnect closes the session. It is safe to call on a closed client.
	Disconnect(ctx context.Context)

	// IsConnected reports whether the transport still considers the session open.
	IsConnected() bool

	// Subscribe sends a SUBSCRIBE for the topic filter and waits for the acknowledgement.
	Subscribe(ctx context.Context, topic string, qos int) error

	// Publish sends a message and waits for the acknowledgement the QoS requires.
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Poll hands at most max buffered messages to fn without blocking and
	// returns how many were delivered.
	Poll(max int, fn func(Message)) int
}
