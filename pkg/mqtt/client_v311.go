package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/autopeer-io/garage-agent/pkg/log"
)

var pahoLoggerOnce sync.Once

// v311Client speaks MQTT 3.1.1 for brokers that predate v5. The paho library
// is configured with reconnects disabled so the caller keeps the policy.
type v311Client struct {
	cfg   *ClientConfig
	inbox *inbox

	mu  sync.Mutex
	cli pahomqtt.Client
}

func newV311Client(cfg *ClientConfig) *v311Client {
	pahoLoggerOnce.Do(func() {
		pahomqtt.ERROR = pahoLogger{component: "paho.mqtt"}
		pahomqtt.CRITICAL = pahoLogger{component: "paho.mqtt"}
	})
	return &v311Client{
		cfg:   cfg,
		inbox: newInbox(cfg.InboxSize),
	}
}

func (c *v311Client) options() *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetProtocolVersion(ProtocolV311).
		SetKeepAlive(time.Duration(c.cfg.KeepAlive) * time.Second).
		SetCleanSession(c.cfg.CleanStart).
		SetConnectTimeout(c.cfg.ConnectTimeout).
		SetWriteTimeout(c.cfg.OperationTimeout).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetOrderMatters(false).
		SetTLSConfig(&tls.Config{InsecureSkipVerify: c.cfg.InsecureSkipVerify}).
		SetDefaultPublishHandler(c.router).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			log.Error(err, "MQTT connection lost")
		})
	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
	}
	if c.cfg.Password != "" {
		opts.SetPassword(c.cfg.Password)
	}
	return opts
}

func (c *v311Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cli != nil {
		c.cli.Disconnect(0)
		c.cli = nil
	}

	cli := pahomqtt.NewClient(c.options())
	if err := wait(ctx, cli.Connect(), c.cfg.ConnectTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.cli = cli
	log.Debug("MQTT v3.1.1 session established", "broker", c.cfg.BrokerURL, "clientID", c.cfg.ClientID)
	return nil
}

func (c *v311Client) Disconnect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cli == nil {
		return
	}
	c.cli.Disconnect(250)
	c.cli = nil
	log.Debug("MQTT v3.1.1 session closed")
}

func (c *v311Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cli != nil && c.cli.IsConnectionOpen()
}

func (c *v311Client) current() (pahomqtt.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cli == nil || !c.cli.IsConnectionOpen() {
		return nil, ErrNotConnected
	}
	return c.cli, nil
}

func (c *v311Client) Subscribe(ctx context.Context, topic string, qos int) error {
	if err := validateTopicQoS(topic, qos); err != nil {
		return err
	}
	cli, err := c.current()
	if err != nil {
		return err
	}

	token := cli.Subscribe(topic, byte(qos), nil)
	if err := wait(ctx, token, c.cfg.OperationTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}
	if st, ok := token.(*pahomqtt.SubscribeToken); ok {
		if code, found := st.Result()[topic]; found && code >= 0x80 {
			return fmt.Errorf("%w: %s: rejected by broker", ErrSubscribeFailed, topic)
		}
	}
	return nil
}

func (c *v311Client) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	if err := validateTopicQoS(topic, qos); err != nil {
		return err
	}
	cli, err := c.current()
	if err != nil {
		return err
	}

	if err := wait(ctx, cli.Publish(topic, byte(qos), retain, payload), c.cfg.OperationTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

func (c *v311Client) Poll(max int, fn func(Message)) int {
	return c.inbox.poll(max, fn)
}

func (c *v311Client) router(_ pahomqtt.Client, m pahomqtt.Message) {
	payload := make([]byte, len(m.Payload()))
	copy(payload, m.Payload())
	c.inbox.push(Message{Topic: m.Topic(), Payload: payload})
}

// wait blocks until the token completes, the timeout expires or ctx is done.
func wait(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return context.DeadlineExceeded
	case <-ctx.Done():
		return ctx.Err()
	}
}
