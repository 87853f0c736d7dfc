package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// StateFile is the file name used inside a state directory.
const StateFile = "console.json"

// ConsoleState is what tribeca-console remembers between runs.
type ConsoleState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Authority is the last endpoint a connection was made to.
	Authority AuthorityRecord `json:"authority"`

	// Exchange and Pair select the panel, e.g. "Coinbase" and "BTC/USD".
	Exchange string `json:"exchange,omitempty"`
	Pair     string `json:"pair,omitempty"`

	// Watches are the stream topics printed by the console.
	Watches []string `json:"watches,omitempty"`
}

// AuthorityRecord identifies an authority endpoint.
type AuthorityRecord struct {
	URL string `json:"url,omitempty"`

	// InstanceName is the mDNS instance the URL was discovered from.
	InstanceName string `json:"instance_name,omitempty"`

	LastConnected time.Time `json:"last_connected,omitempty"`
}

// StateStore reads and writes a ConsoleState file.
type StateStore struct {
	mu   sync.Mutex
	path string
}

// NewStateStore creates a store for the file at path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// NewStateStoreInDir creates a store for StateFile inside dir.
func NewStateStoreInDir(dir string) *StateStore {
	return NewStateStore(filepath.Join(dir, StateFile))
}

// Path returns the state file path.
func (s *StateStore) Path() string {
	return s.path
}

// Save persists state, stamping its version and save time.
func (s *StateStore) Save(state *ConsoleState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Ensure parent directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	state.SavedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Replace atomically.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the state. It returns nil, nil if the file doesn't exist.
func (s *StateStore) Load() (*ConsoleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &ConsoleState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}
	if state.Version > StateVersion {
		return nil, fmt.Errorf("state file version %d is newer than supported version %d", state.Version, StateVersion)
	}
	return state, nil
}

// Clear removes the state file.
func (s *StateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
