package messaging

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tribeca/tribeca-go/pkg/connection"
	"github.com/tribeca/tribeca-go/pkg/eventloop"
	"github.com/tribeca/tribeca-go/pkg/log"
	"github.com/tribeca/tribeca-go/pkg/topic"
	"github.com/tribeca/tribeca-go/pkg/wire"
)

// ErrContractViolation marks a payload that does not match its topic's type.
var ErrContractViolation = errors.New("topic contract violation")

// Subscription states reported to the protocol log.
const (
	subscriptionPending = "PENDING"
	subscriptionActive  = "ACTIVE"
)

// Sender writes envelopes to the authority. connection.Manager is one.
type Sender interface {
	Send(env *wire.Envelope) error
}

// BusConfig configures a Bus.
type BusConfig struct {
	// Registry holds the topic contract (default: topic.Default()).
	Registry *topic.Registry

	// Logger receives operational messages. If nil, nothing is logged.
	Logger *slog.Logger

	// ProtocolLogger receives envelope, subscription and callback error
	// events (optional).
	ProtocolLogger log.Logger

	// OnContractViolation is called with an error wrapping
	// ErrContractViolation. The default panics with an
	// *eventloop.FatalError. If it returns, the offending delivery is
	// skipped.
	OnContractViolation func(err error)
}

// Bus routes envelopes between the connection and the handles. It is
// confined to its event loop: apart from Deliver, every method must be
// called on the loop, and NewBus must run on the loop or before it starts.
type Bus struct {
	exec     eventloop.Executor
	monitor  *connection.Monitor
	sender   Sender
	registry *topic.Registry

	logger      *slog.Logger
	protocol    log.Logger
	onViolation func(error)

	topics map[string]*topicState

	// Topics in the order their first handle was created
	order []*topicState
}

type topicState struct {
	name    string
	handles []handle

	// A Subscribe request is outstanding
	snapshotPending bool
}

// handle is the type-erased view of a Subscriber the Bus works with.
type handle interface {
	live() bool
	awaitingSnapshot() bool
	setAwaiting(bool)
	connected()
	disconnected()
	snapshot(env *wire.Envelope)
	update(env *wire.Envelope)
}

// NewBus creates a bus that sends through sender and follows monitor.
func NewBus(exec eventloop.Executor, monitor *connection.Monitor, sender Sender, cfg BusConfig) *Bus {
	if cfg.Registry == nil {
		cfg.Registry = topic.Default()
	}
	if cfg.OnContractViolation == nil {
		cfg.OnContractViolation = func(err error) {
			panic(&eventloop.FatalError{Err: err})
		}
	}

	b := &Bus{
		exec:        exec,
		monitor:     monitor,
		sender:      sender,
		registry:    cfg.Registry,
		logger:      cfg.Logger,
		protocol:    log.OrNoop(cfg.ProtocolLogger),
		onViolation: cfg.OnContractViolation,
		topics:      make(map[string]*topicState),
	}

	monitor.OnConnect(b.onConnect)
	monitor.OnDisconnect(b.onDisconnect)
	return b
}

// Monitor returns the connection monitor the bus follows.
func (b *Bus) Monitor() *connection.Monitor {
	return b.monitor
}

// Registry returns the topic contract.
func (b *Bus) Registry() *topic.Registry {
	return b.registry
}

// Deliver queues an inbound envelope for dispatch. It may be called from
// any goroutine and is the receiver handed to connection.Manager.Run.
func (b *Bus) Deliver(env *wire.Envelope) {
	b.exec.Post(func() { b.dispatch(env) })
}

// Handles returns the number of live handles on topic name.
func (b *Bus) Handles(name string) int {
	ts, ok := b.topics[name]
	if !ok {
		return 0
	}
	n := 0
	for _, h := range ts.handles {
		if h.live() {
			n++
		}
	}
	return n
}

func (b *Bus) attach(name string, h handle) {
	ts, ok := b.topics[name]
	if !ok {
		ts = &topicState{name: name}
		b.topics[name] = ts
		b.order = append(b.order, ts)
	}
	ts.handles = append(ts.handles, h)

	if b.monitor.Connected() {
		h.setAwaiting(true)
		b.requestSnapshot(ts)
	}
}

func (b *Bus) detach(name string, h handle) {
	ts, ok := b.topics[name]
	if !ok {
		return
	}
	for i, other := range ts.handles {
		if other == h {
			ts.handles = append(ts.handles[:i:i], ts.handles[i+1:]...)
			return
		}
	}
}

func (b *Bus) onConnect() {
	for _, ts := range b.order {
		ts.snapshotPending = false
	}
	// Handles created by a connect handler already ran their own handler
	// on registration, so only the handles present now are notified.
	current := b.liveHandles()
	for _, h := range current {
		h.setAwaiting(true)
	}
	for _, h := range current {
		if h.live() && b.monitor.Connected() {
			h.connected()
		}
	}

	for _, ts := range b.order {
		if !b.monitor.Connected() {
			return
		}
		if b.hasLive(ts) {
			b.requestSnapshot(ts)
		}
	}
}

func (b *Bus) onDisconnect() {
	for _, ts := range b.order {
		ts.snapshotPending = false
	}
	current := b.liveHandles()
	for _, h := range current {
		h.setAwaiting(false)
	}
	for _, h := range current {
		if h.live() && !b.monitor.Connected() {
			h.disconnected()
		}
	}
}

// liveHandles returns the live handles of every topic in creation order.
// Callbacks may add or remove handles while the result is walked.
func (b *Bus) liveHandles() []handle {
	var out []handle
	for _, ts := range b.order {
		for _, h := range ts.handles {
			if h.live() {
				out = append(out, h)
			}
		}
	}
	return out
}

func (b *Bus) hasLive(ts *topicState) bool {
	for _, h := range ts.handles {
		if h.live() {
			return true
		}
	}
	return false
}

// snapshotHandles copies the handle list so callbacks may add or remove
// handles while it is being walked.
func (ts *topicState) snapshotHandles() []handle {
	return append([]handle(nil), ts.handles...)
}

func (b *Bus) requestSnapshot(ts *topicState) {
	if ts.snapshotPending {
		return
	}
	if err := b.send(wire.NewSubscribe(ts.name)); err != nil {
		b.warn("subscribe request failed", "topic", ts.name, "error", err)
		return
	}
	ts.snapshotPending = true
	b.logSubscription(ts.name, "", subscriptionPending)
}

func (b *Bus) dispatch(env *wire.Envelope) {
	b.logEnvelope(log.DirectionIn, env)

	if !b.monitor.Connected() {
		b.debug("dropping envelope while disconnected", "topic", env.Topic, "kind", env.Kind.String())
		return
	}

	ts, ok := b.topics[env.Topic]
	if !ok {
		b.debug("dropping envelope for topic without handles", "topic", env.Topic)
		return
	}

	switch env.Kind {
	case wire.KindSnapshot:
		ts.snapshotPending = false
		delivered := false
		for _, h := range ts.snapshotHandles() {
			if !h.live() || !h.awaitingSnapshot() {
				continue
			}
			h.setAwaiting(false)
			h.snapshot(env)
			delivered = true
		}
		if delivered {
			b.logSubscription(ts.name, subscriptionPending, subscriptionActive)
		}

	case wire.KindUpdate:
		for _, h := range ts.snapshotHandles() {
			if h.live() && !h.awaitingSnapshot() {
				h.update(env)
			}
		}

	default:
		b.warn("unexpected envelope from authority", "topic", env.Topic, "kind", env.Kind.String())
	}
}

func (b *Bus) send(env *wire.Envelope) error {
	if err := b.sender.Send(env); err != nil {
		return err
	}
	b.logEnvelope(log.DirectionOut, env)
	return nil
}

// guard runs a consumer callback, containing any panic it raises.
func (b *Bus) guard(topicName, callback string, fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if fe, ok := r.(*eventloop.FatalError); ok {
			panic(fe)
		}

		msg := fmt.Sprint(r)
		if b.logger != nil {
			b.logger.Error("callback panicked", "topic", topicName, "callback", callback, "panic", msg)
		}
		b.protocol.Log(log.Event{
			Timestamp: time.Now(),
			Layer:     log.LayerMessaging,
			Category:  log.CategoryError,
			Topic:     topicName,
			Error: &log.ErrorEventData{
				Layer:   log.LayerMessaging,
				Message: msg,
				Context: callback + " callback",
			},
		})
	}()
	fn()
}

// violation reports a payload that does not fit its topic.
func (b *Bus) violation(topicName string, err error) {
	b.onViolation(fmt.Errorf("%w: topic %q: %w", ErrContractViolation, topicName, err))
}

func (b *Bus) logEnvelope(dir log.Direction, env *wire.Envelope) {
	b.protocol.Log(log.Event{
		Timestamp: time.Now(),
		Direction: dir,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Topic:     env.Topic,
		Envelope:  log.NewEnvelopeEvent(env),
	})
}

func (b *Bus) logSubscription(name, from, to string) {
	b.protocol.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerMessaging,
		Category:  log.CategoryState,
		Topic:     name,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySubscription,
			OldState: from,
			NewState: to,
		},
	})
}

func (b *Bus) debug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *Bus) warn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}
