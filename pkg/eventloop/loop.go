package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrClosed is returned by Call once the loop has stopped.
var ErrClosed = errors.New("event loop closed")

// FatalError is a panic value the loop does not contain. Code running on
// the loop panics with one to report a programming error that must not be
// logged and forgotten.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// Executor runs posted functions serially.
type Executor interface {
	Post(fn func())
}

// Config configures a Loop.
type Config struct {
	// Capacity is the initial queue capacity (default: 64).
	Capacity int

	// Logger receives recovered panics. If nil, they are dropped.
	Logger *slog.Logger
}

// Loop is an unbounded FIFO of functions executed one at a time.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool

	// Signals Run that the queue is non-empty
	wakeCh chan struct{}

	// Closed when Run returns
	doneCh chan struct{}

	logger *slog.Logger
}

// New creates a loop. It does nothing until Run or Drain is called.
func New(cfg Config) *Loop {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 64
	}
	return &Loop{
		queue:  make([]func(), 0, cfg.Capacity),
		wakeCh: make(chan struct{}, 1),
		doneCh: make(chan struct{}),
		logger: cfg.Logger,
	}
}

// Post queues fn. It never blocks. Functions posted after Run has
// returned are discarded.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wakeCh <- struct{}{}:
	default:
		// Already signalled
	}
}

// Len returns the number of queued functions.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Run executes posted functions until ctx is done. Pending work is
// discarded on return. Run must not be called concurrently with itself or
// with Drain.
func (l *Loop) Run(ctx context.Context) error {
	defer l.close()

	for {
		l.runPending(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wakeCh:
		}
	}
}

// Drain executes queued functions on the calling goroutine, including any
// they post, until the queue is empty. It returns how many ran.
func (l *Loop) Drain() int {
	return l.runPending(context.Background())
}

// Call posts fn and waits for it to finish. It must not be called from the
// loop itself.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})

	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrClosed
	}

	l.Post(func() {
		defer close(done)
		fn()
	})

	select {
	case <-done:
		return nil
	case <-l.doneCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) runPending(ctx context.Context) int {
	n := 0
	for ctx.Err() == nil {
		fn, ok := l.pop()
		if !ok {
			return n
		}
		l.exec(fn)
		n++
	}
	return n
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) exec(fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if fe, ok := r.(*FatalError); ok {
			panic(fe)
		}
		if l.logger != nil {
			l.logger.Error("event loop task panicked", "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

func (l *Loop) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.queue = nil
	close(l.doneCh)
}

// Done returns a channel closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.doneCh
}
