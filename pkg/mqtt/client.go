package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/eclipse/paho.golang/paho"

	"github.com/autopeer-io/garage-agent/pkg/log"
)

// NewClient creates a new MQTT client implementing the Client interface.
// The wire protocol is picked from cfg.ProtocolVersion.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mqtt config is required")
	}

	setDefaultConfig(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	if cfg.ProtocolVersion == ProtocolV311 {
		return newV311Client(cfg), nil
	}

	return &pahoClient{
		cfg:   cfg,
		inbox: newInbox(cfg.InboxSize),
	}, nil
}

// pahoClient speaks MQTT v5 through the low-level paho client. Each Connect
// dials a fresh network connection and builds a fresh paho.Client, because a
// paho.Client cannot be reused once its connection has dropped.
type pahoClient struct {
	cfg   *ClientConfig
	inbox *inbox

	mu        sync.Mutex
	cli       *paho.Client
	connected atomic.Bool
}

func (c *pahoClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cli != nil {
		_ = c.cli.Disconnect(&paho.Disconnect{ReasonCode: 0})
		c.cli = nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	cli := paho.NewClient(paho.ClientConfig{
		ClientID:           c.cfg.ClientID,
		Conn:               conn,
		PacketTimeout:      c.cfg.OperationTimeout,
		OnClientError:      c.onClientError,
		OnServerDisconnect: c.onServerDisconnect,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			c.router,
		},
	})
	cli.SetErrorLogger(pahoLogger{component: "paho"})

	cp := &paho.Connect{
		KeepAlive:  c.cfg.KeepAlive,
		ClientID:   c.cfg.ClientID,
		CleanStart: c.cfg.CleanStart,
	}
	if c.cfg.Username != "" {
		cp.Username = c.cfg.Username
		cp.UsernameFlag = true
	}
	if c.cfg.Password != "" {
		cp.Password = []byte(c.cfg.Password)
		cp.PasswordFlag = true
	}
	if c.cfg.SessionExpiry > 0 {
		expiry := c.cfg.SessionExpiry
		cp.Properties = &paho.ConnectProperties{SessionExpiryInterval: &expiry}
	}

	ack, err := cli.Connect(ctx, cp)
	if err != nil {
		_ = conn.Close()
		if ack != nil && ack.Properties != nil && ack.Properties.ReasonString != "" {
			return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, ack.Properties.ReasonString, err)
		}
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.cli = cli
	c.connected.Store(true)
	go c.watch(cli)

	log.Debug("MQTT v5 session established", "broker", c.cfg.BrokerURL, "clientID", c.cfg.ClientID)
	return nil
}

// watch clears the connected flag once the given client's connection ends.
func (c *pahoClient) watch(cli *paho.Client) {
	<-cli.Done()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cli == cli {
		c.connected.Store(false)
	}
}

func (c *pahoClient) dial(ctx context.Context) (net.Conn, error) {
	u, _ := url.Parse(c.cfg.BrokerURL) // Already validated
	host := u.Host
	if u.Port() == "" {
		if usesTLS(u) {
			host = net.JoinHostPort(u.Hostname(), "8883")
		} else {
			host = net.JoinHostPort(u.Hostname(), "1883")
		}
	}

	if usesTLS(u) {
		d := &tls.Dialer{Config: &tls.Config{
			ServerName:         u.Hostname(),
			InsecureSkipVerify: c.cfg.InsecureSkipVerify,
		}}
		return d.DialContext(ctx, "tcp", host)
	}

	var d net.Dialer
	return d.DialContext(ctx, "tcp", host)
}

func (c *pahoClient) Disconnect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected.Store(false)
	if c.cli == nil {
		return
	}
	_ = c.cli.Disconnect(&paho.Disconnect{ReasonCode: 0})
	c.cli = nil
	log.Debug("MQTT v5 session closed")
}

func (c *pahoClient) IsConnected() bool {
	return c.connected.Load()
}

func (c *pahoClient) current() (*paho.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cli == nil || !c.connected.Load() {
		return nil, ErrNotConnected
	}
	return c.cli, nil
}

func (c *pahoClient) Subscribe(ctx context.Context, topic string, qos int) error {
	if err := validateTopicQoS(topic, qos); err != nil {
		return err
	}
	cli, err := c.current()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.OperationTimeout)
	defer cancel()

	ack, err := cli.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{
			{Topic: topic, QoS: byte(qos)},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}
	for _, code := range ack.Reasons {
		if code >= 0x80 {
			return fmt.Errorf("%w: %s: reason code 0x%02x", ErrSubscribeFailed, topic, code)
		}
	}
	return nil
}

func (c *pahoClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	if err := validateTopicQoS(topic, qos); err != nil {
		return err
	}
	cli, err := c.current()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.OperationTimeout)
	defer cancel()

	resp, err := cli.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     byte(qos),
		Retain:  retain,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	if resp != nil && resp.ReasonCode >= 0x80 {
		return fmt.Errorf("%w: %s: reason code 0x%02x", ErrPublishFailed, topic, resp.ReasonCode)
	}
	return nil
}

func (c *pahoClient) Poll(max int, fn func(Message)) int {
	return c.inbox.poll(max, fn)
}

// --- Internal Callbacks ---

func (c *pahoClient) onClientError(err error) {
	c.connected.Store(false)
	log.Error(err, "MQTT Client internal error")
}

func (c *pahoClient) onServerDisconnect(d *paho.Disconnect) {
	c.connected.Store(false)
	reason := ""
	if d.Properties != nil {
		reason = d.Properties.ReasonString
	}
	log.Warn("MQTT Server requested disconnect", "code", d.ReasonCode, "reason", reason)
}

// router copies the inbound publication into the inbox.
func (c *pahoClient) router(p paho.PublishReceived) (bool, error) {
	payload := make([]byte, len(p.Packet.Payload))
	copy(payload, p.Packet.Payload)
	c.inbox.push(Message{Topic: p.Packet.Topic, Payload: payload})
	return true, nil // Always acknowledge reception
}
