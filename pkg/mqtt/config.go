package mqtt

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Protocol versions understood by NewClient.
const (
	ProtocolV311 = 4
	ProtocolV5   = 5
)

const maxQoS = 2

// ClientConfig holds the configuration for creating a new MQTT Client.
type ClientConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// ProtocolVersion selects the wire protocol: ProtocolV5 or ProtocolV311.
	ProtocolVersion int

	// KeepAlive in seconds. Default is 60.
	KeepAlive uint16

	// ConnectTimeout bounds the handshake. Default is 5s.
	ConnectTimeout time.Duration

	// OperationTimeout bounds each publish and subscribe round trip. Default is 5s.
	OperationTimeout time.Duration

	// SessionExpiry is the MQTT v5 session expiry interval in seconds.
	SessionExpiry uint32

	// CleanStart asks the broker to discard any previous session state.
	CleanStart bool

	// InsecureSkipVerify disables TLS certificate verification for ssl:// and mqtts:// brokers.
	InsecureSkipVerify bool

	// InboxSize is the capacity of the inbound message buffer. Default is 16.
	InboxSize int
}

func setDefaultConfig(cfg *ClientConfig) {
	if cfg.ProtocolVersion == 0 {
		cfg.ProtocolVersion = ProtocolV5
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = 5 * time.Second
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 60
	}
	if cfg.InboxSize == 0 {
		cfg.InboxSize = 16
	}
}

// Validate checks if the configuration is valid.
func (c *ClientConfig) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker url is required")
	}
	u, err := url.Parse(c.BrokerURL)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "tcp", "mqtt", "ssl", "tls", "mqtts":
	default:
		return fmt.Errorf("unsupported broker scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("broker url %q has no host", c.BrokerURL)
	}
	if c.ClientID == "" {
		return errors.New("client id is required")
	}
	if c.ProtocolVersion != ProtocolV5 && c.ProtocolVersion != ProtocolV311 {
		return fmt.Errorf("unsupported protocol version %d", c.ProtocolVersion)
	}
	if c.InboxSize < 1 {
		return errors.New("inbox size must be positive")
	}
	return nil
}

func validateTopicQoS(topic string, qos int) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos < 0 || qos > maxQoS {
		return ErrInvalidQoS
	}
	return nil
}

func usesTLS(u *url.URL) bool {
	switch u.Scheme {
	case "ssl", "tls", "mqtts":
		return true
	}
	return false
}
