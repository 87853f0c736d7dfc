package messaging

import (
	"context"

	"github.com/tribeca/tribeca-go/pkg/topic"
	"github.com/tribeca/tribeca-go/pkg/wire"
)

// Subscriber is a per-topic, per-scope subscription handle. Each slot
// holds one callback; registering again replaces it. All methods must be
// called on the event loop.
type Subscriber[T any] struct {
	bus   *Bus
	topic topic.Topic[T]
	scope context.Context
	stop  func() bool

	onUpdate     func(T)
	onSnapshot   func([]T)
	onConnect    func()
	onDisconnect func()

	awaiting bool
	disposed bool
}

func newSubscriber[T any](bus *Bus, scope context.Context, t topic.Topic[T]) *Subscriber[T] {
	s := &Subscriber[T]{bus: bus, topic: t, scope: scope}
	if scope.Err() != nil {
		s.disposed = true
		return s
	}

	bus.attach(t.Name(), s)
	s.stop = context.AfterFunc(scope, func() {
		bus.exec.Post(s.Disconnect)
	})
	return s
}

// Topic returns the topic this handle delivers.
func (s *Subscriber[T]) Topic() topic.Topic[T] {
	return s.topic
}

// RegisterSubscriber sets the update and snapshot callbacks. onUpdate runs
// once per value delivered while connected. onSnapshot runs once after
// every (re)connect with the authority's full collection for the topic,
// which may be empty. Either may be nil.
func (s *Subscriber[T]) RegisterSubscriber(onUpdate func(T), onSnapshot func([]T)) *Subscriber[T] {
	s.onUpdate = onUpdate
	s.onSnapshot = onSnapshot
	return s
}

// RegisterConnectHandler sets the callback for transitions into the
// connected state. If the connection is already up, fn runs immediately.
func (s *Subscriber[T]) RegisterConnectHandler(fn func()) *Subscriber[T] {
	s.onConnect = fn
	if s.live() && s.bus.monitor.Connected() {
		s.connected()
	}
	return s
}

// RegisterDisconnectedHandler sets the callback for transitions out of the
// connected state. If the connection is already down, fn runs immediately.
func (s *Subscriber[T]) RegisterDisconnectedHandler(fn func()) *Subscriber[T] {
	s.onDisconnect = fn
	if s.live() && !s.bus.monitor.Connected() {
		s.disconnected()
	}
	return s
}

// Disconnect tears the handle down. No callback fires afterwards. Calling
// it again does nothing.
func (s *Subscriber[T]) Disconnect() {
	if s.disposed {
		return
	}
	s.disposed = true
	if s.stop != nil {
		s.stop()
	}

	s.onUpdate = nil
	s.onSnapshot = nil
	s.onConnect = nil
	s.onDisconnect = nil

	s.bus.detach(s.topic.Name(), s)
}

// Disposed reports whether the handle has been torn down, either
// explicitly or because its scope ended.
func (s *Subscriber[T]) Disposed() bool {
	return !s.live()
}

func (s *Subscriber[T]) live() bool {
	return !s.disposed && s.scope.Err() == nil
}

func (s *Subscriber[T]) awaitingSnapshot() bool { return s.awaiting }
func (s *Subscriber[T]) setAwaiting(v bool)     { s.awaiting = v }

func (s *Subscriber[T]) connected() {
	if fn := s.onConnect; fn != nil {
		s.bus.guard(s.topic.Name(), "connect", fn)
	}
}

func (s *Subscriber[T]) disconnected() {
	if fn := s.onDisconnect; fn != nil {
		s.bus.guard(s.topic.Name(), "disconnect", fn)
	}
}

func (s *Subscriber[T]) snapshot(env *wire.Envelope) {
	fn := s.onSnapshot
	if fn == nil {
		return
	}
	values, err := wire.DecodeSnapshot[T](env)
	if err != nil {
		s.bus.violation(s.topic.Name(), err)
		return
	}
	s.bus.guard(s.topic.Name(), "snapshot", func() { fn(values) })
}

func (s *Subscriber[T]) update(env *wire.Envelope) {
	fn := s.onUpdate
	if fn == nil {
		return
	}
	v, err := wire.DecodePayload[T](env)
	if err != nil {
		s.bus.violation(s.topic.Name(), err)
		return
	}
	s.bus.guard(s.topic.Name(), "update", func() { fn(v) })
}
