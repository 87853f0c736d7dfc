package topic

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrUnknownTopic is returned when a topic name is not registered.
	ErrUnknownTopic = errors.New("unknown topic")

	// ErrTypeMismatch is returned when a topic is used with a payload type
	// other than the one it was registered with.
	ErrTypeMismatch = errors.New("topic payload type mismatch")
)

// Topic identifies a channel carrying values of type T.
type Topic[T any] struct {
	name string
}

// New returns a topic handle for name without registering it.
// Use Register to declare topics that handles will be built for.
func New[T any](name string) Topic[T] {
	return Topic[T]{name: name}
}

// Name returns the wire name of the topic.
func (t Topic[T]) Name() string { return t.name }

// PayloadType returns the Go type carried by the topic.
func (t Topic[T]) PayloadType() reflect.Type { return reflect.TypeFor[T]() }

func (t Topic[T]) String() string {
	return fmt.Sprintf("%s(%s)", t.name, t.PayloadType())
}

// Registry maps topic names to payload types.
type Registry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]reflect.Type),
	}
}

// Register declares a topic carrying T under name.
// Registering the same name twice is a programming error and panics.
func Register[T any](r *Registry, name string) Topic[T] {
	t := Topic[T]{name: name}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, exists := r.types[name]; exists {
		panic(fmt.Sprintf("topic: %q already registered with payload %s", name, prev))
	}
	r.types[name] = t.PayloadType()
	r.order = append(r.order, name)
	return t
}

// Lookup returns the payload type registered for name.
func (r *Registry) Lookup(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	typ, ok := r.types[name]
	return typ, ok
}

// Check verifies that name is registered with payload type typ.
func (r *Registry) Check(name string, typ reflect.Type) error {
	registered, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTopic, name)
	}
	if registered != typ {
		return fmt.Errorf("%w: %q carries %s, not %s", ErrTypeMismatch, name, registered, typ)
	}
	return nil
}

// Verify checks a typed topic against the registry.
func Verify[T any](r *Registry, t Topic[T]) error {
	return r.Check(t.Name(), t.PayloadType())
}

// Names returns every registered topic name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered topics.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}
