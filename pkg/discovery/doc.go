// Package discovery finds the trading authority on the local network with
// mDNS/DNS-SD.
//
// An authority advertises one instance of _tribeca._tcp. The instance name
// is free text (usually the host). TXT records:
//
//	ver   wire protocol version (required, currently 1)
//	path  WebSocket endpoint path (default /ws)
//	name  display name (optional)
//
// The console browses when no server URL is configured and dials the first
// authority that answers.
package discovery
