// Package mqtttest provides an in-memory mqtt.Client for tests.
package mqtttest

import (
	"context"
	"sync"

	"github.com/autopeer-io/garage-agent/pkg/mqtt"
)

// Publication is a message recorded by Client.Publish.
type Publication struct {
	Topic   string
	QoS     int
	Retain  bool
	Payload string
}

// Client records calls and lets tests script failures and inbound messages.
type Client struct {
	mu sync.Mutex

	// ConnectErr, SubscribeErr and PublishErr are returned by the matching
	// calls while non-nil.
	ConnectErr   error
	SubscribeErr error
	PublishErr   error

	// FailPublishOn makes Publish fail only for this topic.
	FailPublishOn string

	connected bool
	inbox     []mqtt.Message

	Connects      int
	Disconnects   int
	Subscriptions []string
	Published     []Publication
}

var _ mqtt.Client = (*Client)(nil)

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Connects++
	if c.ConnectErr != nil {
		return c.ConnectErr
	}
	c.connected = true
	return nil
}

func (c *Client) Disconnect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Disconnects++
	c.connected = false
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Drop simulates the transport losing the connection.
func (c *Client) Drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func (c *Client) Subscribe(ctx context.Context, topic string, qos int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return mqtt.ErrNotConnected
	}
	if c.SubscribeErr != nil {
		return c.SubscribeErr
	}
	c.Subscriptions = append(c.Subscriptions, topic)
	return nil
}

func (c *Client) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return mqtt.ErrNotConnected
	}
	if c.PublishErr != nil && (c.FailPublishOn == "" || c.FailPublishOn == topic) {
		return c.PublishErr
	}
	c.Published = append(c.Published, Publication{Topic: topic, QoS: qos, Retain: retain, Payload: string(payload)})
	return nil
}

// Deliver queues an inbound message for the next Poll.
func (c *Client) Deliver(topic string, payload string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox = append(c.inbox, mqtt.Message{Topic: topic, Payload: []byte(payload)})
}

func (c *Client) Poll(max int, fn func(mqtt.Message)) int {
	c.mu.Lock()
	n := len(c.inbox)
	if n > max {
		n = max
	}
	batch := c.inbox[:n]
	c.inbox = c.inbox[n:]
	c.mu.Unlock()

	for _, m := range batch {
		fn(m)
	}
	return n
}

// PublishedOn returns the payloads published on topic, in order.
func (c *Client) PublishedOn(topic string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, p := range c.Published {
		if p.Topic == topic {
			out = append(out, p.Payload)
		}
	}
	return out
}
