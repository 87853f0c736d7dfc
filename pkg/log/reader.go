package log

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events while reading a capture.
// Zero-valued fields do not constrain; an event must satisfy every field
// that is set.
type Filter struct {
	// ConnectionID matches one connection exactly. Each reconnect gets a
	// new ID.
	ConnectionID string

	// Topic matches envelope, frame and subscription events for one
	// topic name, e.g. "qp".
	Topic string

	// Direction matches inbound or outbound events.
	Direction *Direction

	// Layer matches the protocol layer (transport, wire, messaging).
	Layer *Layer

	// Category matches the event category.
	Category *Category

	// TimeStart matches events at or after this time.
	TimeStart *time.Time

	// TimeEnd matches events before this time.
	TimeEnd *time.Time
}

// Matches reports whether event satisfies every criterion set in f.
// The time range is half-open: TimeStart is inclusive, TimeEnd exclusive.
func (f *Filter) Matches(event Event) bool {
	if f.ConnectionID != "" && event.ConnectionID != f.ConnectionID {
		return false
	}
	if f.Topic != "" && event.Topic != f.Topic {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

// Reader streams events from a .mlog capture file.
// Events are decoded one at a time, so captures larger than memory can be
// read. A Reader is not safe for concurrent use.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens path and returns a Reader over all of its events.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path and returns a Reader that skips events not
// matching filter. The filter is copied; later changes to it have no
// effect.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: NewDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next event matching the filter.
// It returns io.EOF at the end of the capture. A capture cut short by a
// crash ends with a decode error instead; every event before it has
// already been returned.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}

		if r.filter.Matches(event) {
			return event, nil
		}
		// Not matched, keep reading.
	}
}

// Close closes the capture file. Next must not be called afterwards.
func (r *Reader) Close() error {
	return r.file.Close()
}
