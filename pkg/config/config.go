package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tribeca/tribeca-go/pkg/connection"
	"github.com/tribeca/tribeca-go/pkg/transport"
)

// Transport names accepted in Config.Transport.
const (
	TransportWebSocket = "websocket"
	TransportMQTT      = "mqtt"
)

// Configuration errors.
var (
	ErrInvalidTransport = errors.New("invalid transport")
	ErrInvalidURL       = errors.New("invalid server url")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrMissingBroker    = errors.New("mqtt broker required")
)

// Config is the console configuration.
type Config struct {
	// Server is the authority WebSocket URL. Empty with discovery enabled
	// means "browse for one".
	Server string `yaml:"server"`

	// Transport is "websocket" or "mqtt".
	Transport string `yaml:"transport"`

	MQTT      MQTTConfig                `yaml:"mqtt"`
	Discovery DiscoveryConfig           `yaml:"discovery"`
	Backoff   connection.BackoffConfig  `yaml:"backoff"`
	KeepAlive transport.KeepAliveConfig `yaml:"keepalive"`
	Log       LogConfig                 `yaml:"log"`

	// LoopCapacity is the initial event loop queue size.
	LoopCapacity int `yaml:"loop_capacity"`
}

// MQTTConfig selects the broker used by the mqtt transport.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Prefix   string `yaml:"prefix"`
}

// DiscoveryConfig controls mDNS lookup of the authority.
type DiscoveryConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig controls operational and protocol logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Protocol is a path for the CBOR protocol capture. Empty disables it.
	Protocol string `yaml:"protocol"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server:    "ws://localhost:3000/ws",
		Transport: TransportWebSocket,
		MQTT: MQTTConfig{
			ClientID: "tribeca",
			Prefix:   "tribeca",
		},
		Discovery: DiscoveryConfig{
			Timeout: 5 * time.Second,
		},
		Backoff:      connection.DefaultBackoffConfig(),
		KeepAlive:    transport.DefaultKeepAliveConfig(),
		Log:          LogConfig{Level: "info"},
		LoopCapacity: 256,
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field combinations.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportWebSocket:
		if c.Server == "" && !c.Discovery.Enabled {
			return fmt.Errorf("%w: empty and discovery disabled", ErrInvalidURL)
		}
		if c.Server != "" {
			u, err := url.Parse(c.Server)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidURL, err)
			}
			if u.Scheme != "ws" && u.Scheme != "wss" {
				return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
			}
		}
	case TransportMQTT:
		if c.MQTT.Broker == "" {
			return ErrMissingBroker
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTransport, c.Transport)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured level. Validate has already rejected
// unknown names, so this falls back to info only for unvalidated configs.
func (c *Config) SlogLevel() slog.Level {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
	}
}
