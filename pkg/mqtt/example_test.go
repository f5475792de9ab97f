package mqtt_test

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/garage-agent/pkg/log"
	"github.com/autopeer-io/garage-agent/pkg/mqtt"
	"github.com/autopeer-io/garage-agent/pkg/mqtt/topic"
)

// ExampleClient shows the session lifecycle the garage agent drives: a single
// connect attempt, subscribe, publish, and draining the inbox from the
// caller's own loop.
func ExampleClient() {
	cfg := &mqtt.ClientConfig{
		BrokerURL:       "tcp://192.168.0.161:1883",
		ClientID:        "GarageDoorSensor",
		ProtocolVersion: mqtt.ProtocolV5,
		KeepAlive:       60,
		ConnectTimeout:  5 * time.Second,
		InboxSize:       16,
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "Failed to create MQTT client")
		return
	}

	// Connect does not retry. A failure is left to the caller.
	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		log.Error(err, "Failed to connect")
		return
	}
	defer client.Disconnect(ctx)

	topics := topic.NewSet(cfg.ClientID)
	if err := client.Subscribe(ctx, topics.Command, 0); err != nil {
		log.Error(err, "Failed to subscribe", "topic", topics.Command)
		return
	}
	if err := client.Publish(ctx, topics.Status, 0, false, []byte("OPEN")); err != nil {
		log.Error(err, "Failed to publish message", "topic", topics.Status)
	}

	// Messages received in the background wait in the inbox until polled.
	client.Poll(8, func(m mqtt.Message) {
		fmt.Printf("Received message on topic %s: %s\n", m.Topic, string(m.Payload))
	})
}
