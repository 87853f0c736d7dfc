package form

import "github.com/tribeca/tribeca-go/pkg/messaging"

// ToggleState is what a toggle button shows.
type ToggleState uint8

const (
	ToggleStateOff ToggleState = iota
	ToggleStateOn
	ToggleStatePending
)

// String returns the state name.
func (s ToggleState) String() string {
	switch s {
	case ToggleStateOff:
		return "OFF"
	case ToggleStateOn:
		return "ON"
	case ToggleStatePending:
		return "PENDING"
	default:
		return "UNKNOWN"
	}
}

// Toggle is a boolean model whose submit requests the opposite of the
// displayed value.
type Toggle struct {
	*Model[bool]
}

// NewToggle creates a toggle starting at false.
func NewToggle(sub *messaging.Subscriber[bool], fire Firer[bool], opts ...Option[bool]) *Toggle {
	opts = append(opts, WithConverter(func(d bool) bool { return !d }))
	return &Toggle{Model: New(false, sub, fire, opts...)}
}

// State returns Pending while a submit is unconfirmed, otherwise On or Off
// from the display value.
func (t *Toggle) State() ToggleState {
	switch {
	case t.Pending():
		return ToggleStatePending
	case t.Display():
		return ToggleStateOn
	default:
		return ToggleStateOff
	}
}
