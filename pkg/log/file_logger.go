package log

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends protocol events to a .mlog capture file in the
// format read by Reader and tribeca-log.
// It is safe for concurrent use from multiple goroutines: the transport
// read loop, the event loop and keep-alive timers all log through the same
// FileLogger.
type FileLogger struct {
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
	count   int
}

// NewFileLogger opens path for appending. An existing capture is extended,
// so several console sessions can share one file; events carry their
// connection ID to tell them apart. A missing file is created with
// permissions 0644.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		file:    f,
		encoder: NewEncoder(f),
	}, nil
}

// Log appends event to the file.
// Encoding and write errors are dropped: protocol capture must never
// disturb delivery. Events logged after Close are ignored.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.encoder.Encode(event); err == nil {
		l.count++
	}
}

// Count returns the number of events successfully written by this
// FileLogger. Events already in an appended file are not counted.
func (l *FileLogger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Close closes the file. Events are written unbuffered, so nothing is
// lost. It is safe to call Close more than once; only the first call
// closes the file and reports its error.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	return l.file.Close()
}

// Compile-time interface check.
var _ Logger = (*FileLogger)(nil)
