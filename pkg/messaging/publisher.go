package messaging

import (
	"github.com/tribeca/tribeca-go/pkg/topic"
	"github.com/tribeca/tribeca-go/pkg/wire"
)

// Publisher sends values to the authority on one topic.
type Publisher[T any] struct {
	bus   *Bus
	topic topic.Topic[T]
}

// Topic returns the topic this handle publishes on.
func (p *Publisher[T]) Topic() topic.Topic[T] {
	return p.topic
}

// Fire sends v. There is no confirmation and no retry: when v cannot be
// sent, for example while disconnected, it is logged and dropped.
func (p *Publisher[T]) Fire(v T) {
	env, err := wire.NewFire(p.topic.Name(), v)
	if err != nil {
		p.bus.warn("fire encode failed", "topic", p.topic.Name(), "error", err)
		return
	}
	if err := p.bus.send(env); err != nil {
		p.bus.warn("fire dropped", "topic", p.topic.Name(), "error", err)
	}
}
