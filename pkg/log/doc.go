// Package log provides structured protocol capture for tribeca clients and
// the simulated authority.
//
// It is separate from operational logging (slog). Protocol capture records
// every envelope, connection transition and isolated callback failure as a
// machine-readable Event, so a session can be replayed with tribeca-log.
//
// # Basic Usage
//
//	// Development: mirror events to the console
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// Production: append to a CBOR file
//	fileLogger, _ := log.NewFileLogger("/var/log/tribeca/console.mlog")
//
//	// Both
//	logger := log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fileLogger)
//
// # Event Types
//
//   - Transport: raw frames and keep-alive control messages
//   - Wire: envelopes sent and received (EnvelopeEvent)
//   - Messaging: connection transitions (StateChangeEvent) and callback
//     failures (ErrorEventData)
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with the .mlog extension.
package log
