package wire

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	// ErrInvalidEnvelope is returned for envelopes that fail validation.
	ErrInvalidEnvelope = errors.New("invalid envelope")

	// ErrPayloadMismatch is returned when a payload cannot be decoded into
	// the type the receiver expects.
	ErrPayloadMismatch = errors.New("payload does not match topic type")
)

// Envelope is the unit exchanged on the connection.
type Envelope struct {
	Kind    Kind            `cbor:"1,keyasint"`
	Topic   string          `cbor:"2,keyasint"`
	Payload cbor.RawMessage `cbor:"3,keyasint,omitempty"`
}

// Validate checks the envelope's kind, topic and payload presence.
func (e *Envelope) Validate() error {
	if !e.Kind.IsValid() {
		return fmt.Errorf("%w: kind %d", ErrInvalidEnvelope, e.Kind)
	}
	if e.Topic == "" {
		return fmt.Errorf("%w: empty topic", ErrInvalidEnvelope)
	}
	if e.Kind.HasPayload() && len(e.Payload) == 0 {
		return fmt.Errorf("%w: %s on %q without payload", ErrInvalidEnvelope, e.Kind, e.Topic)
	}
	if !e.Kind.HasPayload() && len(e.Payload) != 0 {
		return fmt.Errorf("%w: %s on %q with payload", ErrInvalidEnvelope, e.Kind, e.Topic)
	}
	return nil
}

func (e *Envelope) String() string {
	return fmt.Sprintf("%s %s (%d bytes)", e.Kind, e.Topic, len(e.Payload))
}

// NewSubscribe builds a snapshot request for topic.
func NewSubscribe(topic string) *Envelope {
	return &Envelope{Kind: KindSubscribe, Topic: topic}
}

// NewUpdate builds an update carrying v.
func NewUpdate(topic string, v any) (*Envelope, error) {
	return withPayload(KindUpdate, topic, v)
}

// NewFire builds a fire carrying v.
func NewFire(topic string, v any) (*Envelope, error) {
	return withPayload(KindFire, topic, v)
}

// NewSnapshot builds a snapshot carrying values. A nil slice is sent as an
// empty array.
func NewSnapshot[T any](topic string, values []T) (*Envelope, error) {
	if values == nil {
		values = []T{}
	}
	return withPayload(KindSnapshot, topic, values)
}

// NewRawSnapshot builds a snapshot from already-encoded elements.
func NewRawSnapshot(topic string, items []cbor.RawMessage) (*Envelope, error) {
	if items == nil {
		items = []cbor.RawMessage{}
	}
	return withPayload(KindSnapshot, topic, items)
}

func withPayload(kind Kind, topic string, v any) (*Envelope, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload for %q: %w", kind, topic, err)
	}
	return &Envelope{Kind: kind, Topic: topic, Payload: data}, nil
}

// DecodePayload decodes a single-value payload into a fresh T.
func DecodePayload[T any](e *Envelope) (T, error) {
	var v T
	if err := strictDecMode.Unmarshal(e.Payload, &v); err != nil {
		return v, fmt.Errorf("%w: %s on %q into %T: %v", ErrPayloadMismatch, e.Kind, e.Topic, v, err)
	}
	return v, nil
}

// DecodeSnapshot decodes a snapshot payload into a fresh slice of T.
// A null payload decodes to an empty slice.
func DecodeSnapshot[T any](e *Envelope) ([]T, error) {
	var vs []T
	if err := strictDecMode.Unmarshal(e.Payload, &vs); err != nil {
		return nil, fmt.Errorf("%w: snapshot on %q into %T: %v", ErrPayloadMismatch, e.Topic, vs, err)
	}
	if vs == nil {
		vs = []T{}
	}
	return vs, nil
}

// SnapshotItems splits a snapshot payload into its raw elements.
func SnapshotItems(e *Envelope) ([]cbor.RawMessage, error) {
	var items []cbor.RawMessage
	if err := Unmarshal(e.Payload, &items); err != nil {
		return nil, fmt.Errorf("%w: snapshot on %q is not an array: %v", ErrInvalidEnvelope, e.Topic, err)
	}
	return items, nil
}
