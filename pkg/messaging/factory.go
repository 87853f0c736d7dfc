package messaging

import (
	"context"
	"fmt"

	"github.com/tribeca/tribeca-go/pkg/topic"
)

// SubscriberFactory creates subscription handles.
type SubscriberFactory struct {
	bus *Bus
}

// NewSubscriberFactory creates a factory for handles on bus.
func NewSubscriberFactory(bus *Bus) *SubscriberFactory {
	return &SubscriberFactory{bus: bus}
}

// GetSubscriber returns a new handle for t bound to scope. It panics if t
// is not part of the bus's topic contract. Must be called on the event
// loop.
func GetSubscriber[T any](f *SubscriberFactory, scope context.Context, t topic.Topic[T]) *Subscriber[T] {
	mustVerify(f.bus, t)
	return newSubscriber(f.bus, scope, t)
}

// FireFactory creates publish handles.
type FireFactory struct {
	bus *Bus
}

// NewFireFactory creates a factory for publishers on bus.
func NewFireFactory(bus *Bus) *FireFactory {
	return &FireFactory{bus: bus}
}

// GetFire returns a new publisher for t. It panics if t is not part of the
// bus's topic contract.
func GetFire[T any](f *FireFactory, t topic.Topic[T]) *Publisher[T] {
	mustVerify(f.bus, t)
	return &Publisher[T]{bus: f.bus, topic: t}
}

func mustVerify[T any](bus *Bus, t topic.Topic[T]) {
	if err := topic.Verify(bus.registry, t); err != nil {
		panic(fmt.Errorf("messaging: %w", err))
	}
}
