// Package persistence keeps console state that should survive restarts:
// the last authority the console reached, the selected panel and the
// streams being watched.
//
// State is stored as JSON. A missing file is an empty state, not an error.
package persistence
