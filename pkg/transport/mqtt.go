package transport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/tribeca/tribeca-go/pkg/log"
	"github.com/tribeca/tribeca-go/pkg/wire"
)

// MQTTConfig configures an MQTTDialer.
type MQTTConfig struct {
	// Broker URL, e.g. tcp://localhost:1883.
	Broker string

	// ClientID prefix; a per-connection suffix is appended.
	ClientID string

	// Prefix is the first topic level for every envelope (default: tribeca).
	Prefix string

	// QoS for subscriptions and publishes (default: 1).
	QoS byte

	// ConnectTimeout bounds the broker handshake (default: 10s).
	ConnectTimeout time.Duration

	// KeepAlive is the MQTT keep-alive period (default: 15s).
	KeepAlive time.Duration

	// WriteTimeout bounds how long Send waits for the broker to accept a
	// publish (default: 5s).
	WriteTimeout time.Duration
}

// MQTTClient is the subset of mqtt.Client the transport uses.
type MQTTClient interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token
}

// MQTTDialer connects to the authority through an MQTT broker.
type MQTTDialer struct {
	config MQTTConfig

	// NewClient builds the broker client. Defaults to mqtt.NewClient.
	NewClient func(opts *mqtt.ClientOptions) MQTTClient

	// ProtocolLogger receives frame events (optional).
	ProtocolLogger log.Logger

	// Logger receives operational messages (optional).
	Logger *slog.Logger
}

// NewMQTTDialer creates a dialer for config.Broker.
func NewMQTTDialer(config MQTTConfig) *MQTTDialer {
	if config.ClientID == "" {
		config.ClientID = "tribeca"
	}
	if config.Prefix == "" {
		config.Prefix = "tribeca"
	}
	if config.QoS == 0 {
		config.QoS = 1
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.KeepAlive <= 0 {
		config.KeepAlive = 15 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	return &MQTTDialer{
		config: config,
		NewClient: func(opts *mqtt.ClientOptions) MQTTClient {
			return mqtt.NewClient(opts)
		},
	}
}

// MQTTTopic returns the broker topic carrying envelopes of kind for topic.
func MQTTTopic(prefix, topic string, kind wire.Kind) string {
	return prefix + "/" + topic + "/" + strings.ToLower(kind.String())
}

// ParseMQTTTopic splits a broker topic produced by MQTTTopic.
func ParseMQTTTopic(prefix, brokerTopic string) (string, wire.Kind, bool) {
	rest, ok := strings.CutPrefix(brokerTopic, prefix+"/")
	if !ok {
		return "", 0, false
	}
	i := strings.LastIndexByte(rest, '/')
	if i <= 0 {
		return "", 0, false
	}
	topic, seg := rest[:i], rest[i+1:]
	for k := wire.KindSubscribe; k <= wire.KindFire; k++ {
		if strings.ToLower(k.String()) == seg {
			return topic, k, true
		}
	}
	return "", 0, false
}

// Dial connects to the broker and subscribes to the authority's branches.
func (d *MQTTDialer) Dial(ctx context.Context, recv Receiver) (Conn, error) {
	id := uuid.NewString()
	c := &mqttConn{
		id:       id,
		broker:   d.config.Broker,
		prefix:   d.config.Prefix,
		qos:      d.config.QoS,
		timeout:  d.config.WriteTimeout,
		recv:     recv,
		protocol: log.OrNoop(d.ProtocolLogger),
		logger:   d.Logger,
		end:      newEndSignal(),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(d.config.Broker).
		SetClientID(d.config.ClientID + "-" + id[:8]).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectTimeout(d.config.ConnectTimeout).
		SetKeepAlive(d.config.KeepAlive).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			c.connectionLost(err)
		})

	c.client = d.NewClient(opts)

	if err := waitToken(ctx, c.client.Connect()); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", d.config.Broker, err)
	}

	filters := map[string]byte{
		MQTTTopic(c.prefix, "+", wire.KindSnapshot): c.qos,
		MQTTTopic(c.prefix, "+", wire.KindUpdate):   c.qos,
	}
	if err := waitToken(ctx, c.client.SubscribeMultiple(filters, c.handle)); err != nil {
		c.client.Disconnect(250)
		return nil, fmt.Errorf("subscribe on %s: %w", d.config.Broker, err)
	}

	return c, nil
}

func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

type mqttConn struct {
	id     string
	broker string
	prefix string
	qos    byte
	client MQTTClient

	timeout time.Duration
	recv   Receiver

	protocol log.Logger
	logger   *slog.Logger

	end *endSignal
}

func (c *mqttConn) ID() string            { return c.id }
func (c *mqttConn) RemoteAddr() string    { return c.broker }
func (c *mqttConn) Done() <-chan struct{} { return c.end.Done() }
func (c *mqttConn) Err() error            { return c.end.Err() }

// Send publishes env on its broker topic and waits for the broker, at most
// WriteTimeout. A publish the broker has not accepted by then returns
// ErrWriteTimeout; paho may still deliver it later.
func (c *mqttConn) Send(env *wire.Envelope) error {
	if c.end.ended() {
		return ErrConnectionClosed
	}

	data, err := wire.EncodeEnvelope(env)
	if err != nil {
		return err
	}

	token := c.client.Publish(MQTTTopic(c.prefix, env.Topic, env.Kind), c.qos, false, data)
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("publish %s: %w", env.Topic, ErrWriteTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", env.Topic, err)
	}

	c.logFrame(log.DirectionOut, env.Topic, data)
	return nil
}

// Close disconnects from the broker.
func (c *mqttConn) Close() error {
	if c.end.end(ErrConnectionClosed) {
		c.client.Disconnect(250)
	}
	return nil
}

func (c *mqttConn) connectionLost(err error) {
	if c.end.end(fmt.Errorf("%w: %v", ErrConnectionClosed, err)) && c.logger != nil {
		c.logger.Info("mqtt connection lost", "conn_id", c.id, "error", err)
	}
}

func (c *mqttConn) handle(_ mqtt.Client, msg mqtt.Message) {
	if c.end.ended() {
		return
	}

	topic, kind, ok := ParseMQTTTopic(c.prefix, msg.Topic())
	if !ok {
		return
	}
	c.logFrame(log.DirectionIn, topic, msg.Payload())

	env, err := wire.DecodeEnvelope(msg.Payload())
	if err != nil || env.Topic != topic || env.Kind != kind {
		if c.logger != nil {
			c.logger.Warn("dropping invalid envelope", "conn_id", c.id, "broker_topic", msg.Topic(), "error", err)
		}
		return
	}
	c.recv(env)
}

func (c *mqttConn) logFrame(dir log.Direction, topic string, data []byte) {
	c.protocol.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		RemoteAddr:   c.broker,
		Topic:        topic,
		Frame:        log.NewFrameEvent(data),
	})
}

var (
	_ Dialer     = (*MQTTDialer)(nil)
	_ Conn       = (*mqttConn)(nil)
	_ MQTTClient = mqtt.Client(nil)
)
