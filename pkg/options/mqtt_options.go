package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/garage-agent/pkg/mqtt"
	"github.com/autopeer-io/garage-agent/pkg/mqtt/topic"
)

var _ IOptions = (*MqttOptions)(nil)

// MqttOptions contains configuration for MQTT client and topics.
type MqttOptions struct {
	Broker   string `json:"broker" mapstructure:"broker"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	ClientID string `json:"client-id" mapstructure:"client-id"`

	// ProtocolVersion is 5 for MQTT v5 or 4 for MQTT 3.1.1.
	ProtocolVersion int `json:"protocol-version" mapstructure:"protocol-version"`

	// Client behavior
	KeepAlive        time.Duration `json:"keep-alive" mapstructure:"keep-alive"`
	ConnectTimeout   time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	OperationTimeout time.Duration `json:"operation-timeout" mapstructure:"operation-timeout"`
	SessionExpiry    uint32        `json:"session-expiry" mapstructure:"session-expiry"`
	CleanStart       bool          `json:"clean-start" mapstructure:"clean-start"`
	QoS              int           `json:"qos" mapstructure:"qos"`
	InboxSize        int           `json:"inbox-size" mapstructure:"inbox-size"`

	// InsecureSkipVerify controls whether a client verifies the server's certificate chain and host name.
	// This should be used only for testing.
	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`

	// Topics. An empty hello payload is derived from the client ID.
	StatusTopic  string `json:"status-topic" mapstructure:"status-topic"`
	CommandTopic string `json:"command-topic" mapstructure:"command-topic"`
	HelloTopic   string `json:"hello-topic" mapstructure:"hello-topic"`
	HelloPayload string `json:"hello-payload" mapstructure:"hello-payload"`
}

// NewMqttOptions creates a new MqttOptions with default values.
func NewMqttOptions() *MqttOptions {
	return &MqttOptions{
		Broker:           "tcp://192.168.0.161:1883",
		ClientID:         "GarageDoorSensor",
		ProtocolVersion:  mqtt.ProtocolV5,
		KeepAlive:        15 * time.Second,
		ConnectTimeout:   5 * time.Second,
		OperationTimeout: 5 * time.Second,
		CleanStart:       true,
		QoS:              0,
		InboxSize:        16,
		StatusTopic:      topic.DefaultStatus,
		CommandTopic:     topic.DefaultCommand,
		HelloTopic:       topic.DefaultHello,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *MqttOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	cfg := o.ToClientConfig()
	if err := cfg.Validate(); err != nil {
		errors = append(errors, fmt.Errorf("mqtt: %w", err))
	}
	if o.QoS < 0 || o.QoS > 2 {
		errors = append(errors, mqtt.ErrInvalidQoS)
	}
	if o.KeepAlive < time.Second {
		errors = append(errors, fmt.Errorf("mqtt keep-alive must be at least 1s, got %s", o.KeepAlive))
	}
	errors = append(errors, o.Topics().Validate()...)

	return errors
}

// AddFlags adds flags for MqttOptions to the specified FlagSet.
func (o *MqttOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Broker, "mqtt.broker", o.Broker, "The URL of the MQTT broker (tcp://, ssl:// or mqtts://).")
	fs.StringVar(&o.Username, "mqtt.username", o.Username, "The username for MQTT authentication.")
	fs.StringVar(&o.Password, "mqtt.password", o.Password, "The password for MQTT authentication.")
	fs.StringVar(&o.ClientID, "mqtt.client-id", o.ClientID, "Client ID announced to the broker.")
	fs.IntVar(&o.ProtocolVersion, "mqtt.protocol-version", o.ProtocolVersion, "MQTT protocol version: 5 or 4 (3.1.1).")

	fs.DurationVar(&o.KeepAlive, "mqtt.keep-alive", o.KeepAlive, "MQTT Keep Alive interval.")
	fs.DurationVar(&o.ConnectTimeout, "mqtt.connect-timeout", o.ConnectTimeout, "Timeout for the single MQTT connection attempt.")
	fs.DurationVar(&o.OperationTimeout, "mqtt.operation-timeout", o.OperationTimeout, "Timeout for each publish or subscribe round trip.")
	fs.Uint32Var(&o.SessionExpiry, "mqtt.session-expiry", o.SessionExpiry, "MQTT Session Expiry Interval in seconds (v5 only).")
	fs.BoolVar(&o.CleanStart, "mqtt.clean-start", o.CleanStart, "Discard any previous broker session state on connect.")
	fs.IntVar(&o.QoS, "mqtt.qos", o.QoS, "QoS used for status publishes and the command subscription.")
	fs.IntVar(&o.InboxSize, "mqtt.inbox-size", o.InboxSize, "Capacity of the inbound message buffer. Excess messages are dropped.")
	fs.BoolVar(&o.InsecureSkipVerify, "mqtt.insecure-skip-verify", o.InsecureSkipVerify, "If true, skips the TLS certificate verification.")

	// Topics
	fs.StringVar(&o.StatusTopic, "mqtt.status-topic", o.StatusTopic, "Topic door state reports are published to.")
	fs.StringVar(&o.CommandTopic, "mqtt.command-topic", o.CommandTopic, "Topic whose messages pulse the relay.")
	fs.StringVar(&o.HelloTopic, "mqtt.hello-topic", o.HelloTopic, "Topic the greeting is published to after each connect.")
	fs.StringVar(&o.HelloPayload, "mqtt.hello-payload", o.HelloPayload, "Greeting payload. Defaults to \"hello from <client-id>\".")
}

// Topics returns the topic set described by the options.
func (o *MqttOptions) Topics() topic.Set {
	payload := o.HelloPayload
	if payload == "" {
		payload = topic.HelloPayload(o.ClientID)
	}
	return topic.Set{
		Status:       o.StatusTopic,
		Command:      o.CommandTopic,
		Hello:        o.HelloTopic,
		HelloPayload: payload,
	}
}

func (o *MqttOptions) ToClientConfig() *mqtt.ClientConfig {
	return &mqtt.ClientConfig{
		BrokerURL:          o.Broker,
		Username:           o.Username,
		Password:           o.Password,
		ClientID:           o.ClientID,
		ProtocolVersion:    o.ProtocolVersion,
		KeepAlive:          uint16(o.KeepAlive.Seconds()),
		SessionExpiry:      o.SessionExpiry,
		ConnectTimeout:     o.ConnectTimeout,
		OperationTimeout:   o.OperationTimeout,
		CleanStart:         o.CleanStart,
		InsecureSkipVerify: o.InsecureSkipVerify,
		InboxSize:          o.InboxSize,
	}
}
