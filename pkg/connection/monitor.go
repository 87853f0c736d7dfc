package connection

import (
	"fmt"
	"log/slog"
)

// State is the connectivity of the shared connection.
type State uint8

const (
	// StateDisconnected means no connection to the authority is up.
	StateDisconnected State = iota

	// StateConnected means the connection is up and requests can be sent.
	StateConnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Unregister detaches a callback. Calling it more than once is harmless.
type Unregister func()

type registration struct {
	fn     func()
	active bool
}

// Monitor holds the shared connection state and notifies registrants of
// transitions. A Monitor is confined to the event loop: every method must
// be called from it.
type Monitor struct {
	state State

	onConnect    []*registration
	onDisconnect []*registration

	logger *slog.Logger
}

// Transition moves a monitor to a new state and broadcasts it. Only the
// monitor's owner holds one.
type Transition func(State)

// NewMonitor creates a monitor in StateDisconnected together with the
// function that drives it. logger receives recovered callback panics and
// may be nil.
func NewMonitor(logger *slog.Logger) (*Monitor, Transition) {
	m := &Monitor{logger: logger}
	return m, m.transition
}

// State returns the current state.
func (m *Monitor) State() State {
	return m.state
}

// Connected reports whether the state is StateConnected.
func (m *Monitor) Connected() bool {
	return m.state == StateConnected
}

// OnConnect registers fn for every transition into StateConnected. If the
// monitor is already connected, fn runs before OnConnect returns.
func (m *Monitor) OnConnect(fn func()) Unregister {
	return m.register(&m.onConnect, fn, StateConnected)
}

// OnDisconnect registers fn for every transition into StateDisconnected.
// If the monitor is already disconnected, fn runs before OnDisconnect
// returns.
func (m *Monitor) OnDisconnect(fn func()) Unregister {
	return m.register(&m.onDisconnect, fn, StateDisconnected)
}

func (m *Monitor) register(list *[]*registration, fn func(), current State) Unregister {
	r := &registration{fn: fn, active: true}
	*list = append(*list, r)

	if m.state == current {
		m.invoke(r, current)
	}

	return func() {
		if !r.active {
			return
		}
		r.active = false
		for i, other := range *list {
			if other == r {
				*list = append((*list)[:i:i], (*list)[i+1:]...)
				break
			}
		}
	}
}

// transition moves to s and broadcasts it. Repeating the current state
// is a no-op.
func (m *Monitor) transition(s State) {
	if m.state == s {
		return
	}
	m.state = s

	list := m.onDisconnect
	if s == StateConnected {
		list = m.onConnect
	}

	// A registration made by a callback already ran from register.
	for _, r := range append([]*registration(nil), list...) {
		if m.state != s {
			return
		}
		m.invoke(r, s)
	}
}

func (m *Monitor) invoke(r *registration, s State) {
	if !r.active {
		return
	}
	defer func() {
		if p := recover(); p != nil && m.logger != nil {
			m.logger.Error("connection callback panicked",
				"state", s.String(),
				"panic", fmt.Sprint(p))
		}
	}()
	r.fn()
}
