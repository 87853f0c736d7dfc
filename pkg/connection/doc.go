// Package connection tracks the single connection to the authority.
//
// A Monitor holds the shared connectivity state and broadcasts
// transitions to its registrants. A Manager owns the transport: it dials,
// reports the connection as Connected, waits for it to end, reports
// Disconnected and redials with exponential backoff.
//
// # Reconnection Strategy
//
// After a failed dial or a lost connection the manager waits before the
// next attempt:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s, 32s
//  3. Maximum delay: 60 seconds
//  4. Reset to 1s once a connection is established
//
// # Jitter
//
// Each delay is stretched by a random fraction of itself:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// # Confinement
//
// Monitor state belongs to the event loop. The manager never touches it
// directly; it posts transitions onto the loop, so registrants observe
// them in the same order as every other callback.
package connection
