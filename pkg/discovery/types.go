package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of a trading authority.
	ServiceType = "_tribeca._tcp"

	// Domain is the mDNS domain.
	Domain = "local"
)

// TXT record keys.
const (
	TXTKeyPath    = "path"
	TXTKeyVersion = "ver"
	TXTKeyName    = "name"
)

const (
	// DefaultPort is the authority's default WebSocket port.
	DefaultPort = 3000

	// DefaultPath is the default WebSocket endpoint path.
	DefaultPath = "/ws"

	// ProtocolVersion is the wire version advertised in TXT records.
	ProtocolVersion = 1

	// MaxInstanceNameLen is the DNS-SD limit for instance labels.
	MaxInstanceNameLen = 63

	// BrowseTimeout bounds Find when the browser config leaves it unset.
	BrowseTimeout = 5 * time.Second
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrUnsupportedVersion  = errors.New("unsupported protocol version")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
)

// AuthorityInfo is what an authority advertises about itself.
type AuthorityInfo struct {
	// Name is the instance name, e.g. the desk or host name.
	Name string

	// Port of the WebSocket listener. Zero means DefaultPort.
	Port uint16

	// Path of the WebSocket endpoint. Empty means DefaultPath.
	Path string

	// Version is the wire protocol version.
	Version int
}

// Service is an authority found on the network.
type Service struct {
	InstanceName string
	Host         string
	Port         uint16
	Path         string
	Version      int

	// Addresses are the resolved IPs, IPv4 first.
	Addresses []string
}

// URL returns the WebSocket URL of the service. The first resolved address
// wins over the host name.
func (s *Service) URL() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	path := s.Path
	if path == "" {
		path = DefaultPath
	}
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(host, strconv.Itoa(int(s.Port))), path)
}

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to one network interface.
	// Empty string means all interfaces.
	Interface string

	// TTL for the service records. Zero keeps the zeroconf default.
	TTL time.Duration
}

// BrowserConfig configures a Browser.
type BrowserConfig struct {
	// Timeout bounds Find. Default: 5 seconds.
	Timeout time.Duration

	// Interface restricts browsing to one network interface.
	Interface string
}
