package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tribeca/tribeca-go/pkg/eventloop"
	"github.com/tribeca/tribeca-go/pkg/log"
	"github.com/tribeca/tribeca-go/pkg/transport"
	"github.com/tribeca/tribeca-go/pkg/wire"
)

// Connection errors.
var (
	ErrNotConnected   = errors.New("not connected")
	ErrAlreadyRunning = errors.New("manager already running")
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Backoff BackoffConfig

	// Logger receives operational messages. If nil, nothing is logged.
	Logger *slog.Logger

	// ProtocolLogger receives connection state changes (optional).
	ProtocolLogger log.Logger
}

// Manager keeps one connection to the authority alive and reports its
// state through a Monitor.
type Manager struct {
	dialer   transport.Dialer
	exec     eventloop.Executor
	monitor  *Monitor
	setState Transition
	backoff  *Backoff

	logger   *slog.Logger
	protocol log.Logger

	mu      sync.RWMutex
	conn    transport.Conn
	running bool
}

// NewManager creates a manager that dials through dialer and posts
// transitions onto exec.
func NewManager(dialer transport.Dialer, exec eventloop.Executor, cfg ManagerConfig) *Manager {
	monitor, setState := NewMonitor(cfg.Logger)
	return &Manager{
		dialer:   dialer,
		exec:     exec,
		monitor:  monitor,
		setState: setState,
		backoff:  NewBackoffWithConfig(cfg.Backoff),
		logger:   cfg.Logger,
		protocol: log.OrNoop(cfg.ProtocolLogger),
	}
}

// Monitor returns the monitor this manager drives.
func (m *Manager) Monitor() *Monitor {
	return m.monitor
}

// Connected reports whether a connection is currently established. Unlike
// Monitor.State it may be called from any goroutine.
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn != nil
}

// Send writes env on the current connection.
func (m *Manager) Send(env *wire.Envelope) error {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}
	return conn.Send(env)
}

// Run dials and redials until ctx is done. Every inbound envelope is
// handed to recv. Run returns ctx.Err(), or ErrAlreadyRunning if another
// Run is active.
func (m *Manager) Run(ctx context.Context, recv transport.Receiver) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	for {
		conn, err := m.dialer.Dial(ctx, recv)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !m.wait(ctx, err) {
				return ctx.Err()
			}
			continue
		}

		m.backoff.Reset()
		m.up(conn)

		select {
		case <-conn.Done():
		case <-ctx.Done():
			conn.Close()
		}

		m.down(conn)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !m.wait(ctx, conn.Err()) {
			return ctx.Err()
		}
	}
}

func (m *Manager) up(conn transport.Conn) {
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Info("connected", "conn_id", conn.ID(), "remote", conn.RemoteAddr())
	}
	m.logState(conn, StateDisconnected, StateConnected, "")
	m.exec.Post(func() { m.setState(StateConnected) })
}

func (m *Manager) down(conn transport.Conn) {
	m.mu.Lock()
	m.conn = nil
	m.mu.Unlock()

	reason := ""
	if err := conn.Err(); err != nil {
		reason = err.Error()
	}
	if m.logger != nil {
		m.logger.Info("disconnected", "conn_id", conn.ID(), "reason", reason)
	}
	m.logState(conn, StateConnected, StateDisconnected, reason)
	m.exec.Post(func() { m.setState(StateDisconnected) })
}

// wait sleeps for the next backoff delay. It returns false if ctx ended
// first.
func (m *Manager) wait(ctx context.Context, cause error) bool {
	delay := m.backoff.Next()
	if m.logger != nil {
		m.logger.Warn("reconnecting",
			"attempt", m.backoff.Attempts(),
			"delay", delay,
			"error", cause)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (m *Manager) logState(conn transport.Conn, from, to State, reason string) {
	m.protocol.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: conn.ID(),
		Layer:        log.LayerMessaging,
		Category:     log.CategoryState,
		LocalRole:    log.RoleClient,
		RemoteAddr:   conn.RemoteAddr(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: from.String(),
			NewState: to.String(),
			Reason:   reason,
		},
	})
}
