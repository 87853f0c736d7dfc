package form

import (
	"reflect"

	"github.com/tribeca/tribeca-go/pkg/connection"
	"github.com/tribeca/tribeca-go/pkg/messaging"
)

// ErrNotConnected is returned by Submit while the connection is down.
var ErrNotConnected = connection.ErrNotConnected

// Firer sends a value to the authority. *messaging.Publisher is one.
type Firer[T any] interface {
	Fire(v T)
}

// Option configures a Model.
type Option[T any] func(*Model[T])

// WithConverter transforms the display value before it is fired.
func WithConverter[T any](fn func(T) T) Option[T] {
	return func(m *Model[T]) { m.convert = fn }
}

// WithClone sets the deep-copy function for T. Types holding slices or
// pointers need one so master and display never share memory.
func WithClone[T any](fn func(T) T) Option[T] {
	return func(m *Model[T]) { m.clone = fn }
}

// WithEqual sets the comparison used by Dirty (default: reflect.DeepEqual).
func WithEqual[T any](fn func(a, b T) bool) Option[T] {
	return func(m *Model[T]) { m.equal = fn }
}

// WithOnChange registers fn to run after every state change.
func WithOnChange[T any](fn func()) Option[T] {
	return func(m *Model[T]) { m.onChange = fn }
}

// Model is a form bound to one topic. It owns its subscription handle.
// All methods must be called on the event loop.
type Model[T any] struct {
	master    T
	display   T
	pending   bool
	connected bool

	sub  *messaging.Subscriber[T]
	fire Firer[T]

	convert  func(T) T
	clone    func(T) T
	equal    func(a, b T) bool
	onChange func()
}

// New creates a model starting at initial and binds it to sub. Every
// update, and every element of a snapshot in order, is applied with
// Update.
func New[T any](initial T, sub *messaging.Subscriber[T], fire Firer[T], opts ...Option[T]) *Model[T] {
	m := &Model[T]{
		sub:     sub,
		fire:    fire,
		convert: func(v T) T { return v },
		clone:   func(v T) T { return v },
		equal:   func(a, b T) bool { return reflect.DeepEqual(a, b) },
	}
	for _, opt := range opts {
		opt(m)
	}

	m.master = m.clone(initial)
	m.display = m.clone(initial)

	sub.RegisterSubscriber(m.Update, func(values []T) {
		for _, v := range values {
			m.Update(v)
		}
	}).
		RegisterConnectHandler(func() { m.setConnected(true) }).
		RegisterDisconnectedHandler(func() { m.setConnected(false) })

	return m
}

// Master returns the last value confirmed by the authority.
func (m *Model[T]) Master() T { return m.clone(m.master) }

// Display returns the value currently shown for editing.
func (m *Model[T]) Display() T { return m.clone(m.display) }

// Pending reports whether a submitted value awaits confirmation.
func (m *Model[T]) Pending() bool { return m.pending }

// Connected reports whether submitting is currently possible.
func (m *Model[T]) Connected() bool { return m.connected }

// Dirty reports whether the display differs from master.
func (m *Model[T]) Dirty() bool { return !m.equal(m.master, m.display) }

// Update accepts v from the authority: master and display both become v
// and any pending submit is considered confirmed.
func (m *Model[T]) Update(v T) {
	m.master = m.clone(v)
	m.display = m.clone(v)
	m.pending = false
	m.changed()
}

// SetDisplay replaces the display value.
func (m *Model[T]) SetDisplay(v T) {
	m.display = m.clone(v)
	m.changed()
}

// Edit modifies the display value in place.
func (m *Model[T]) Edit(fn func(*T)) {
	fn(&m.display)
	m.changed()
}

// Submit fires the converted display value and marks the model pending.
// While disconnected it returns ErrNotConnected and changes nothing.
//
// A submit the authority never confirms leaves Pending true until the
// next update on the topic.
func (m *Model[T]) Submit() error {
	if !m.connected {
		return ErrNotConnected
	}
	m.pending = true
	m.fire.Fire(m.convert(m.clone(m.display)))
	m.changed()
	return nil
}

// Reset discards local edits. Pending is left as is.
func (m *Model[T]) Reset() {
	m.display = m.clone(m.master)
	m.changed()
}

// Dispose tears down the model's subscription handle.
func (m *Model[T]) Dispose() {
	m.sub.Disconnect()
}

func (m *Model[T]) setConnected(v bool) {
	m.connected = v
	m.changed()
}

func (m *Model[T]) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}
