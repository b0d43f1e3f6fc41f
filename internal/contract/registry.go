package contract

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// ErrContractNotFound is returned when a contract is not found.
var ErrContractNotFound = errors.New("contract not found")

// Entry is a stored contract. Exactly one of Builtin and ABI is set.
type Entry struct {
	Name    string          `json:"name"`
	ChainID int64           `json:"chain_id"`
	Address string          `json:"address"`
	Builtin string          `json:"builtin,omitempty"`
	ABI     json.RawMessage `json:"abi,omitempty"`
}

// Contract resolves the entry's ABI and binds it to its address.
func (e *Entry) Contract() (*Contract, error) {
	if e.Builtin != "" {
		b, ok := GetBuiltin(e.Builtin)
		if !ok {
			return nil, fmt.Errorf("unknown builtin %q", e.Builtin)
		}
		return New(e.Address, b.ABI)
	}
	if len(e.ABI) == 0 {
		return nil, fmt.Errorf("contract %s has no ABI", e.Name)
	}
	parsed, err := ParseABI(e.ABI)
	if err != nil {
		return nil, err
	}
	return New(e.Address, parsed)
}

// Registry stores named contracts per chain in a JSON file.
type Registry struct {
	path      string
	contracts map[string]*Entry // key: "name@chainID"
}

// NewRegistry creates a Registry backed by a JSON file.
func NewRegistry(path string) *Registry {
	return &Registry{
		path:      path,
		contracts: make(map[string]*Entry),
	}
}

// Load reads stored contracts from disk. A missing file is not an error.
func (r *Registry) Load() error {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing %s: %w", r.path, err)
	}
	for i := range entries {
		e := &entries[i]
		r.contracts[key(e.Name, e.ChainID)] = e
	}
	return nil
}

// Save writes all contracts to disk.
func (r *Registry) Save() error {
	entries := make([]Entry, 0, len(r.contracts))
	for _, e := range r.All() {
		entries = append(entries, *e)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o600)
}

// Add adds or replaces a contract entry after checking its ABI resolves.
func (r *Registry) Add(e *Entry) error {
	if _, err := e.Contract(); err != nil {
		return err
	}
	e.Name = strings.ToLower(e.Name)
	r.contracts[key(e.Name, e.ChainID)] = e
	return nil
}

// Get returns a contract by name and chain.
func (r *Registry) Get(name string, chainID int64) (*Entry, error) {
	e, ok := r.contracts[key(strings.ToLower(name), chainID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s on chain %d", ErrContractNotFound, name, chainID)
	}
	return e, nil
}

// All returns all registered contracts ordered by name, then chain.
func (r *Registry) All() []*Entry {
	out := make([]*Entry, 0, len(r.contracts))
	for _, e := range r.contracts {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *Entry) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ChainID, b.ChainID)
	})
	return out
}

// Remove deletes a contract entry.
func (r *Registry) Remove(name string, chainID int64) error {
	k := key(strings.ToLower(name), chainID)
	if _, ok := r.contracts[k]; !ok {
		return fmt.Errorf("%w: %s on chain %d", ErrContractNotFound, name, chainID)
	}
	delete(r.contracts, k)
	return nil
}

func key(name string, chainID int64) string {
	return name + "@" + strconv.FormatInt(chainID, 10)
}
