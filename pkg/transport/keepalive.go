package transport

import (
	"context"
	"sync"
	"time"
)

// Keep-alive defaults.
const (
	DefaultPingInterval   = 15 * time.Second
	DefaultPongTimeout    = 5 * time.Second
	DefaultMaxMissedPongs = 2
)

// KeepAliveConfig configures keep-alive behavior.
type KeepAliveConfig struct {
	// PingInterval is the interval between pings.
	PingInterval time.Duration `yaml:"ping_interval"`

	// PongTimeout is how long a ping may stay unanswered.
	PongTimeout time.Duration `yaml:"pong_timeout"`

	// MaxMissedPongs is the number of missed pongs before the connection
	// is considered dead.
	MaxMissedPongs int `yaml:"max_missed_pongs"`
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		PingInterval:   DefaultPingInterval,
		PongTimeout:    DefaultPongTimeout,
		MaxMissedPongs: DefaultMaxMissedPongs,
	}
}

// DetectionDelay is the longest a dead peer can go unnoticed.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	return c.PingInterval*time.Duration(c.MaxMissedPongs) + c.PongTimeout
}

func (c KeepAliveConfig) withDefaults() KeepAliveConfig {
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = DefaultPongTimeout
	}
	if c.MaxMissedPongs <= 0 {
		c.MaxMissedPongs = DefaultMaxMissedPongs
	}
	return c
}

// KeepAlive sends sequenced pings and declares the peer dead after too many
// unanswered ones.
type KeepAlive struct {
	config KeepAliveConfig

	sendPing  func(seq uint32) error
	onTimeout func()

	mu           sync.Mutex
	seq          uint32
	pendingSeq   uint32
	hasPending   bool
	lastPingTime time.Time
	missedPongs  int
	lastLatency  time.Duration

	pongCh chan uint32
	stopCh chan struct{}
	once   sync.Once
}

// NewKeepAlive creates a keep-alive monitor. sendPing transmits a ping
// carrying seq; onTimeout is called once when the peer is declared dead.
func NewKeepAlive(config KeepAliveConfig, sendPing func(seq uint32) error, onTimeout func()) *KeepAlive {
	return &KeepAlive{
		config:    config.withDefaults(),
		sendPing:  sendPing,
		onTimeout: onTimeout,
		pongCh:    make(chan uint32, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start runs the monitor until ctx is done or Stop is called.
func (ka *KeepAlive) Start(ctx context.Context) {
	go ka.loop(ctx)
}

// Stop ends monitoring. Safe to call more than once.
func (ka *KeepAlive) Stop() {
	ka.once.Do(func() { close(ka.stopCh) })
}

// PongReceived records a pong carrying seq.
func (ka *KeepAlive) PongReceived(seq uint32) {
	select {
	case ka.pongCh <- seq:
	default:
	}
}

// MissedPongs returns the current count of unanswered pings.
func (ka *KeepAlive) MissedPongs() int {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.missedPongs
}

// Latency returns the round trip of the last answered ping.
func (ka *KeepAlive) Latency() time.Duration {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.lastLatency
}

func (ka *KeepAlive) loop(ctx context.Context) {
	ticker := time.NewTicker(ka.config.PingInterval)
	defer ticker.Stop()

	ka.ping()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ka.stopCh:
			return
		case <-ticker.C:
			if ka.expired() {
				ka.Stop()
				if ka.onTimeout != nil {
					ka.onTimeout()
				}
				return
			}
			ka.ping()
		case seq := <-ka.pongCh:
			ka.pong(seq)
		}
	}
}

func (ka *KeepAlive) ping() {
	ka.mu.Lock()
	ka.seq++
	seq := ka.seq
	ka.pendingSeq = seq
	ka.hasPending = true
	ka.lastPingTime = time.Now()
	ka.mu.Unlock()

	// A failed send is caught by the pong timeout
	_ = ka.sendPing(seq)
}

// expired counts an overdue ping as missed and reports whether the limit
// has been reached.
func (ka *KeepAlive) expired() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	if ka.hasPending && time.Since(ka.lastPingTime) >= ka.config.PongTimeout {
		ka.missedPongs++
		ka.hasPending = false
	}
	return ka.missedPongs >= ka.config.MaxMissedPongs
}

func (ka *KeepAlive) pong(seq uint32) {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	// Late pongs for earlier pings are ignored
	if ka.hasPending && seq == ka.pendingSeq {
		ka.lastLatency = time.Since(ka.lastPingTime)
		ka.hasPending = false
		ka.missedPongs = 0
	}
}
