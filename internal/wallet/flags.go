package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// FlagFile persists per-connector "was connected" flags as a small JSON
// file, readable only by the current user.
type FlagFile struct {
	path string
	mu   sync.Mutex
}

// NewFlagFile returns a flag store at path. The file is created on first write.
func NewFlagFile(path string) *FlagFile {
	return &FlagFile{path: path}
}

// ConnectedFlag returns the stored flag for a connector; ok is false when
// none was ever written.
func (f *FlagFile) ConnectedFlag(connectorID string) (connected, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	connected, ok = f.load()[connectorID]
	return connected, ok
}

// SetConnectedFlag stores the flag for a connector.
func (f *FlagFile) SetConnectedFlag(connectorID string, connected bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.load()
	m[connectorID] = connected
	return f.save(m)
}

// Clear forgets all flags.
func (f *FlagFile) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := os.Remove(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// load returns the flag map, or an empty map (never nil) on any error.
func (f *FlagFile) load() map[string]bool {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return make(map[string]bool)
	}
	var m map[string]bool
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return make(map[string]bool)
	}
	return m
}

func (f *FlagFile) save(m map[string]bool) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}
