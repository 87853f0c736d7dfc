package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tribeca/tribeca-go/pkg/log"
	"github.com/tribeca/tribeca-go/pkg/wire"
)

// DefaultMaxMessageSize bounds a single inbound envelope.
const DefaultMaxMessageSize = 1 << 20

// WebSocketConfig configures a WebSocketDialer.
type WebSocketConfig struct {
	// URL of the authority endpoint, e.g. ws://localhost:3000/ws.
	URL string

	// HandshakeTimeout bounds the opening handshake (default: 10s).
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each frame write (default: 5s).
	WriteTimeout time.Duration

	// MaxMessageSize bounds inbound messages (default: 1 MiB).
	MaxMessageSize int64

	KeepAlive KeepAliveConfig

	// Header is sent with the opening handshake.
	Header http.Header
}

// WebSocketDialer connects to the authority over a WebSocket.
type WebSocketDialer struct {
	config WebSocketConfig

	// ProtocolLogger receives frame and ping/pong events (optional).
	ProtocolLogger log.Logger

	// Logger receives operational messages (optional).
	Logger *slog.Logger
}

// NewWebSocketDialer creates a dialer for config.URL.
func NewWebSocketDialer(config WebSocketConfig) *WebSocketDialer {
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 10 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	config.KeepAlive = config.KeepAlive.withDefaults()
	return &WebSocketDialer{config: config}
}

// Dial opens the WebSocket and starts reading.
func (d *WebSocketDialer) Dial(ctx context.Context, recv Receiver) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.config.HandshakeTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, d.config.URL, d.config.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.config.URL, err)
	}
	ws.SetReadLimit(d.config.MaxMessageSize)

	c := &wsConn{
		id:       uuid.NewString(),
		url:      d.config.URL,
		ws:       ws,
		config:   d.config,
		recv:     recv,
		protocol: log.OrNoop(d.ProtocolLogger),
		logger:   d.Logger,
		end:      newEndSignal(),
	}
	c.start()
	return c, nil
}

type wsConn struct {
	id     string
	url    string
	ws     *websocket.Conn
	config WebSocketConfig
	recv   Receiver

	protocol log.Logger
	logger   *slog.Logger

	writeMu   sync.Mutex
	keepAlive *KeepAlive
	end       *endSignal
}

func (c *wsConn) ID() string            { return c.id }
func (c *wsConn) RemoteAddr() string    { return c.url }
func (c *wsConn) Done() <-chan struct{} { return c.end.Done() }
func (c *wsConn) Err() error            { return c.end.Err() }

func (c *wsConn) start() {
	c.keepAlive = NewKeepAlive(c.config.KeepAlive, c.sendPing, func() {
		c.debug("keep-alive timeout", "missed", c.keepAlive.MissedPongs())
		c.shutdown(ErrKeepAliveTimeout)
	})

	c.ws.SetPongHandler(func(appData string) error {
		if len(appData) == 4 {
			c.logControl(log.DirectionIn, log.ControlMsgPong, nil)
			c.keepAlive.PongReceived(binary.BigEndian.Uint32([]byte(appData)))
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-c.end.Done()
		cancel()
	}()

	c.keepAlive.Start(ctx)
	go c.readLoop()
}

// Send writes env as one binary message.
func (c *wsConn) Send(env *wire.Envelope) error {
	if c.end.ended() {
		return ErrConnectionClosed
	}

	data, err := wire.EncodeEnvelope(env)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		// A write deadline cannot be recovered on a websocket
		c.shutdown(fmt.Errorf("write: %w", err))
		return err
	}

	c.logFrame(log.DirectionOut, data)
	return nil
}

// Close sends a normal close frame and tears the connection down.
func (c *wsConn) Close() error {
	if c.end.ended() {
		return nil
	}

	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.config.WriteTimeout))
	c.writeMu.Unlock()

	code := websocket.CloseNormalClosure
	c.logControl(log.DirectionOut, log.ControlMsgClose, &code)
	c.shutdown(ErrConnectionClosed)
	return nil
}

func (c *wsConn) shutdown(err error) {
	if c.end.end(err) {
		c.keepAlive.Stop()
		c.ws.Close()
	}
}

func (c *wsConn) sendPing(seq uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], seq)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteControl(websocket.PingMessage, buf[:], time.Now().Add(c.config.WriteTimeout)); err != nil {
		return err
	}
	c.logControl(log.DirectionOut, log.ControlMsgPing, nil)
	return nil
}

func (c *wsConn) readLoop() {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				code := ce.Code
				c.logControl(log.DirectionIn, log.ControlMsgClose, &code)
				c.shutdown(fmt.Errorf("%w: peer closed (%d)", ErrConnectionClosed, ce.Code))
				return
			}
			c.shutdown(fmt.Errorf("read: %w", err))
			return
		}
		if mt != websocket.BinaryMessage {
			c.debug("ignoring non-binary message", "type", mt)
			continue
		}

		c.logFrame(log.DirectionIn, data)

		env, err := wire.DecodeEnvelope(data)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("dropping invalid envelope", "conn_id", c.id, "error", err)
			}
			c.protocol.Log(log.Event{
				Timestamp:    time.Now(),
				ConnectionID: c.id,
				Direction:    log.DirectionIn,
				Layer:        log.LayerWire,
				Category:     log.CategoryError,
				Error:        &log.ErrorEventData{Layer: log.LayerWire, Message: err.Error(), Context: "decode envelope"},
			})
			continue
		}
		c.recv(env)
	}
}

// logFrame records a raw frame. The topic is peeked from the header so
// topic filters also match transport events.
func (c *wsConn) logFrame(dir log.Direction, data []byte) {
	_, topic, _ := wire.PeekTopic(data)
	c.protocol.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		RemoteAddr:   c.url,
		Topic:        topic,
		Frame:        log.NewFrameEvent(data),
	})
}

func (c *wsConn) logControl(dir log.Direction, typ log.ControlMsgType, code *int) {
	c.protocol.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryControl,
		RemoteAddr:   c.url,
		ControlMsg:   &log.ControlMsgEvent{Type: typ, CloseCode: code},
	})
}

func (c *wsConn) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, append([]any{"conn_id", c.id}, args...)...)
	}
}

var (
	_ Dialer = (*WebSocketDialer)(nil)
	_ Conn   = (*wsConn)(nil)
)
