package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/tribeca/tribeca-go/pkg/wire"
)

// Transport errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrKeepAliveTimeout = errors.New("keep-alive timeout")
	ErrWriteTimeout     = errors.New("write timeout")
)

// Receiver is called for every inbound envelope, in arrival order.
type Receiver func(env *wire.Envelope)

// Conn is an established connection to the authority.
type Conn interface {
	// ID uniquely identifies this connection (UUID).
	ID() string

	// RemoteAddr describes the peer, e.g. a URL or broker address.
	RemoteAddr() string

	// Send writes one envelope.
	Send(env *wire.Envelope) error

	// Done is closed when the connection has ended for any reason.
	Done() <-chan struct{}

	// Err returns why the connection ended, or nil while it is open.
	Err() error

	// Close ends the connection. Safe to call more than once.
	Close() error
}

// Dialer establishes connections to the authority.
type Dialer interface {
	Dial(ctx context.Context, recv Receiver) (Conn, error)
}

// endSignal records the end of a connection exactly once.
type endSignal struct {
	once sync.Once
	done chan struct{}

	mu  sync.Mutex
	err error
}

func newEndSignal() *endSignal {
	return &endSignal{done: make(chan struct{})}
}

// end stores err and closes done. It reports whether this call ended it.
func (s *endSignal) end(err error) bool {
	first := false
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
		first = true
	})
	return first
}

func (s *endSignal) Done() <-chan struct{} { return s.done }

func (s *endSignal) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *endSignal) ended() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
