package log

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Capture files are a plain concatenation of CBOR-encoded Events. The
// modes below are shared by the writer and every reader of such a file.
var (
	// eventEnc writes events deterministically: canonical key order and
	// definite lengths only. Timestamps are RFC 3339 strings with
	// nanosecond precision.
	eventEnc cbor.EncMode

	// eventDec is lenient. Duplicate map keys are accepted quietly,
	// indefinite lengths are allowed, and unknown fields are skipped.
	eventDec cbor.DecMode
)

func init() {
	eventEnc = mustEncMode(cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	})
	eventDec = mustDecMode(cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	})
}

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: invalid CBOR encoder options: %v", err))
	}
	return mode
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	mode, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: invalid CBOR decoder options: %v", err))
	}
	return mode
}

// EncodeEvent returns the capture-file encoding of event. Event fields use
// integer keys, so a typical envelope event is a few dozen bytes plus its
// payload.
func EncodeEvent(event Event) ([]byte, error) {
	return eventEnc.Marshal(event)
}

// DecodeEvent parses one event produced by EncodeEvent. Fields this
// version does not know are skipped.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := eventDec.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// NewEncoder returns a streaming encoder that appends events to w in the
// capture-file format. It is not safe for concurrent use; FileLogger
// serializes access to its encoder.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return eventEnc.NewEncoder(w)
}

// NewDecoder returns a streaming decoder that reads consecutive events
// from r. Decode returns io.EOF after the last complete event.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return eventDec.NewDecoder(r)
}
