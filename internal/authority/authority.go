// Package authority is an in-memory stand-in for the trading server. It
// keeps the current collection per topic, answers Subscribe with a
// snapshot, applies Fire and broadcasts the result as an Update. Tests and
// the simulator use it; it is not part of the client library.
package authority

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/tribeca/tribeca-go/pkg/wire"
)

// DefaultQueueSize is the per-session outbound buffer.
const DefaultQueueSize = 256

// ErrRejected is returned by a FireHandler to refuse a value.
var ErrRejected = errors.New("fire rejected")

// FireHandler decides what a Fire applies. It returns the value to store
// and broadcast, or an error to drop the Fire.
type FireHandler func(topic string, payload cbor.RawMessage) (cbor.RawMessage, error)

// Config configures an Authority.
type Config struct {
	// Retain is how many values each topic keeps for snapshots (default: 1).
	Retain int

	// QueueSize is the per-session outbound buffer (default: 256).
	QueueSize int

	Logger *slog.Logger
}

// Authority holds topic state and the attached sessions.
type Authority struct {
	mu       sync.Mutex
	topics   map[string]*topicStore
	sessions map[string]*Session
	onFire   FireHandler

	retain    int
	queueSize int
	logger    *slog.Logger
}

type topicStore struct {
	retain int
	values []cbor.RawMessage
}

// New creates an empty authority.
func New(cfg Config) *Authority {
	if cfg.Retain <= 0 {
		cfg.Retain = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Authority{
		topics:    make(map[string]*topicStore),
		sessions:  make(map[string]*Session),
		retain:    cfg.Retain,
		queueSize: cfg.QueueSize,
		logger:    cfg.Logger,
	}
}

// Retain sets how many values topic keeps, overriding Config.Retain.
func (a *Authority) Retain(topic string, n int) {
	if n <= 0 {
		n = 1
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	ts := a.store(topic)
	ts.retain = n
	ts.trim()
}

// OnFire installs the handler applied to every Fire. Without one, the
// fired value is stored and broadcast unchanged.
func (a *Authority) OnFire(fn FireHandler) {
	a.mu.Lock()
	a.onFire = fn
	a.mu.Unlock()
}

// Publish stores v on topic and sends it as an Update to every session
// subscribed to topic.
func (a *Authority) Publish(topic string, v any) error {
	data, err := wire.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", topic, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.apply(topic, data)
	return nil
}

// Values returns a copy of the stored collection for topic.
func (a *Authority) Values(topic string) []cbor.RawMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	ts, ok := a.topics[topic]
	if !ok {
		return nil
	}
	return append([]cbor.RawMessage(nil), ts.values...)
}

// Topics returns the names of every topic with state, sorted.
func (a *Authority) Topics() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]string, 0, len(a.topics))
	for name := range a.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sessions returns the number of attached sessions.
func (a *Authority) Sessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}

// Attach registers a new session.
func (a *Authority) Attach() *Session {
	s := &Session{
		id:         uuid.NewString(),
		out:        make(chan *wire.Envelope, a.queueSize),
		done:       make(chan struct{}),
		subscribed: make(map[string]bool),
	}

	a.mu.Lock()
	a.sessions[s.id] = s
	a.mu.Unlock()

	a.logger.Info("session attached", "session_id", s.id)
	return s
}

// Detach removes s and closes its Done channel. It is idempotent.
func (a *Authority) Detach(s *Session) {
	a.mu.Lock()
	_, ok := a.sessions[s.id]
	delete(a.sessions, s.id)
	s.close()
	a.mu.Unlock()

	if ok {
		a.logger.Info("session detached", "session_id", s.id)
	}
}

// DetachAll removes every session.
func (a *Authority) DetachAll() {
	a.mu.Lock()
	sessions := make([]*Session, 0, len(a.sessions))
	for _, s := range a.sessions {
		sessions = append(sessions, s)
	}
	a.mu.Unlock()

	for _, s := range sessions {
		a.Detach(s)
	}
}

// Receive handles one envelope from s.
func (a *Authority) Receive(s *Session, env *wire.Envelope) {
	switch env.Kind {
	case wire.KindSubscribe:
		a.subscribe(s, env.Topic)
	case wire.KindFire:
		a.fire(s, env)
	default:
		a.logger.Warn("unexpected envelope from client", "session_id", s.id, "kind", env.Kind, "topic", env.Topic)
	}
}

func (a *Authority) subscribe(s *Session, topic string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var items []cbor.RawMessage
	if ts, ok := a.topics[topic]; ok {
		items = append(items, ts.values...)
	}
	env, err := wire.NewRawSnapshot(topic, items)
	if err != nil {
		a.logger.Error("encode snapshot", "topic", topic, "error", err)
		return
	}

	// Marking and sending under the lock keeps Publish from slipping an
	// update between the snapshot and the subscription.
	s.subscribed[topic] = true
	a.send(s, env)
	a.logger.Debug("snapshot sent", "session_id", s.id, "topic", topic, "items", len(items))
}

func (a *Authority) fire(s *Session, env *wire.Envelope) {
	a.mu.Lock()
	defer a.mu.Unlock()

	payload := env.Payload
	if a.onFire != nil {
		var err error
		payload, err = a.onFire(env.Topic, env.Payload)
		if err != nil {
			a.logger.Warn("fire dropped", "session_id", s.id, "topic", env.Topic, "error", err)
			return
		}
	}
	a.apply(env.Topic, payload)
}

// apply stores data and broadcasts it. Caller holds a.mu.
func (a *Authority) apply(topic string, data cbor.RawMessage) {
	ts := a.store(topic)
	ts.values = append(ts.values, data)
	ts.trim()

	env := &wire.Envelope{Kind: wire.KindUpdate, Topic: topic, Payload: data}
	for _, s := range a.sessions {
		if s.subscribed[topic] {
			a.send(s, env)
		}
	}
}

// send queues env without blocking. A session that cannot keep up is
// dropped; its client reconnects and gets a fresh snapshot.
func (a *Authority) send(s *Session, env *wire.Envelope) {
	select {
	case s.out <- env:
	default:
		a.logger.Warn("session queue full, dropping session", "session_id", s.id)
		delete(a.sessions, s.id)
		s.close()
	}
}

func (a *Authority) store(topic string) *topicStore {
	ts, ok := a.topics[topic]
	if !ok {
		ts = &topicStore{retain: a.retain}
		a.topics[topic] = ts
	}
	return ts
}

func (ts *topicStore) trim() {
	if n := len(ts.values) - ts.retain; n > 0 {
		ts.values = append([]cbor.RawMessage(nil), ts.values[n:]...)
	}
}

// Session is one attached client.
type Session struct {
	id         string
	out        chan *wire.Envelope
	done       chan struct{}
	closeOnce  sync.Once
	subscribed map[string]bool
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Outbound delivers envelopes queued for the client.
func (s *Session) Outbound() <-chan *wire.Envelope { return s.out }

// Done is closed when the session is detached.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}
