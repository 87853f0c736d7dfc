package messaging

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tribeca/tribeca-go/pkg/connection"
	"github.com/tribeca/tribeca-go/pkg/eventloop"
	"github.com/tribeca/tribeca-go/pkg/log"
	"github.com/tribeca/tribeca-go/pkg/topic"
	"github.com/tribeca/tribeca-go/pkg/wire"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*wire.Envelope
	err  error
}

func (s *fakeSender) Send(env *wire.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, env)
	return nil
}

// subscribes counts Subscribe requests for name.
func (s *fakeSender) subscribes(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, env := range s.sent {
		if env.Kind == wire.KindSubscribe && env.Topic == name {
			n++
		}
	}
	return n
}

func (s *fakeSender) fires() []*wire.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*wire.Envelope
	for _, env := range s.sent {
		if env.Kind == wire.KindFire {
			out = append(out, env)
		}
	}
	return out
}

type eventRecorder struct {
	events []log.Event
}

func (r *eventRecorder) Log(e log.Event) { r.events = append(r.events, e) }

func (r *eventRecorder) errors() []log.Event {
	var out []log.Event
	for _, e := range r.events {
		if e.Category == log.CategoryError {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	t        *testing.T
	loop     *eventloop.Loop
	bus      *Bus
	setState connection.Transition
	sender   *fakeSender
	protocol *eventRecorder
	subs     *SubscriberFactory
	fires    *FireFactory
}

func newHarness(t *testing.T, cfg BusConfig) *harness {
	loop := eventloop.New(eventloop.Config{})
	monitor, setState := connection.NewMonitor(nil)
	sender := &fakeSender{}
	protocol := &eventRecorder{}
	cfg.ProtocolLogger = protocol

	bus := NewBus(loop, monitor, sender, cfg)
	return &harness{
		t:        t,
		loop:     loop,
		bus:      bus,
		setState: setState,
		sender:   sender,
		protocol: protocol,
		subs:     NewSubscriberFactory(bus),
		fires:    NewFireFactory(bus),
	}
}

func (h *harness) connect()    { h.setState(connection.StateConnected) }
func (h *harness) disconnect() { h.setState(connection.StateDisconnected) }

func deliverSnapshot[T any](h *harness, t topic.Topic[T], values ...T) {
	env, err := wire.NewSnapshot(t.Name(), values)
	require.NoError(h.t, err)
	h.bus.Deliver(env)
	h.loop.Drain()
}

func deliverUpdate[T any](h *harness, t topic.Topic[T], v T) {
	env, err := wire.NewUpdate(t.Name(), v)
	require.NoError(h.t, err)
	h.bus.Deliver(env)
	h.loop.Drain()
}
