package log

import (
	"time"

	"github.com/tribeca/tribeca-go/pkg/wire"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the connection (UUID), empty between connections.
	ConnectionID string `cbor:"2,keyasint"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// LocalRole indicates which side recorded the event.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address or broker URL.
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Topic the event relates to, if any.
	Topic string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Envelope    *EnvelopeEvent    `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	ControlMsg  *ControlMsgEvent  `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the connection layer (frames, ping/pong).
	LayerTransport Layer = 0
	// LayerWire is the envelope layer.
	LayerWire Layer = 1
	// LayerMessaging is the subscription and connection-monitor layer.
	LayerMessaging Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerMessaging:
		return "MESSAGING"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryControl Category = 1
	CategoryState   Category = 2
	CategoryError   Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role indicates which side of the connection recorded the event.
type Role uint8

const (
	RoleClient    Role = 0
	RoleAuthority Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "CLIENT"
	case RoleAuthority:
		return "AUTHORITY"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MaxFrameData is the number of frame bytes kept in a FrameEvent.
const MaxFrameData = 256

// NewFrameEvent builds a FrameEvent, truncating data to MaxFrameData.
func NewFrameEvent(data []byte) *FrameEvent {
	fe := &FrameEvent{Size: len(data)}
	if len(data) > MaxFrameData {
		fe.Data = append([]byte(nil), data[:MaxFrameData]...)
		fe.Truncated = true
	} else {
		fe.Data = append([]byte(nil), data...)
	}
	return fe
}

// EnvelopeEvent captures an envelope at the wire layer.
type EnvelopeEvent struct {
	Kind  wire.Kind `cbor:"1,keyasint"`
	Topic string    `cbor:"2,keyasint"`

	// PayloadSize is the encoded payload size in bytes.
	PayloadSize int `cbor:"3,keyasint"`

	// Payload is the decoded payload in generic CBOR form.
	Payload any `cbor:"4,keyasint,omitempty"`
}

// NewEnvelopeEvent summarizes env. The payload is decoded generically so
// the log stays readable without knowing the topic's Go type.
func NewEnvelopeEvent(env *wire.Envelope) *EnvelopeEvent {
	ee := &EnvelopeEvent{
		Kind:        env.Kind,
		Topic:       env.Topic,
		PayloadSize: len(env.Payload),
	}
	if len(env.Payload) > 0 {
		var v any
		if err := wire.Unmarshal(env.Payload, &v); err == nil {
			ee.Payload = v
		}
	}
	return ee
}

// StateChangeEvent captures connection and subscription lifecycle events.
type StateChangeEvent struct {
	Entity StateEntity `cbor:"1,keyasint"`

	OldState string `cbor:"2,keyasint,omitempty"`
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection is the shared connection.
	StateEntityConnection StateEntity = 0
	// StateEntitySubscription is a topic subscription on the authority.
	StateEntitySubscription StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	default:
		return "UNKNOWN"
	}
}

// ControlMsgEvent captures transport keep-alive and close messages.
type ControlMsgEvent struct {
	Type ControlMsgType `cbor:"1,keyasint"`

	// CloseCode is the close code for close messages.
	CloseCode *int `cbor:"2,keyasint,omitempty"`
}

// ControlMsgType indicates the type of control message.
type ControlMsgType uint8

const (
	ControlMsgPing  ControlMsgType = 0
	ControlMsgPong  ControlMsgType = 1
	ControlMsgClose ControlMsgType = 2
)

// String returns the control message type name.
func (c ControlMsgType) String() string {
	switch c {
	case ControlMsgPing:
		return "PING"
	case ControlMsgPong:
		return "PONG"
	case ControlMsgClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Context describes what was being done, e.g. "onUpdate callback".
	Context string `cbor:"3,keyasint,omitempty"`
}
