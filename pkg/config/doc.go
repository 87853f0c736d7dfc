// Package config loads the console's YAML configuration.
//
// A file only needs the keys it changes; everything else keeps the value
// from Default. Durations use Go syntax ("15s", "1m").
//
//	server: ws://desk.local:3000/ws
//	transport: websocket
//	backoff:
//	  initial: 500ms
//	  max: 30s
//	keepalive:
//	  ping_interval: 10s
//	log:
//	  level: debug
//	  protocol: /tmp/tribeca.mlog
package config
