package contract

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// BuiltinKind is an interface whose ABI ships with the binary, so users can
// talk to a contract without supplying an ABI file.
type BuiltinKind struct {
	ID          string // machine key, e.g. "erc20"
	Name        string
	Description string
	ABI         abi.ABI
}

var (
	builtinMu       sync.RWMutex
	builtinRegistry = map[string]BuiltinKind{}
)

// RegisterBuiltin adds a built-in ABI to the global registry.
// Call it from init() in the file that defines the ABI.
func RegisterBuiltin(b BuiltinKind) {
	builtinMu.Lock()
	defer builtinMu.Unlock()
	builtinRegistry[b.ID] = b
}

// mustRegisterJSON parses a JSON ABI and registers it, panicking on a
// malformed definition.
func mustRegisterJSON(id, name, description, def string) {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("contract: builtin " + id + ": " + err.Error())
	}
	RegisterBuiltin(BuiltinKind{ID: id, Name: name, Description: description, ABI: parsed})
}

// GetBuiltin returns a built-in by ID. ok is false if not found.
func GetBuiltin(id string) (BuiltinKind, bool) {
	builtinMu.RLock()
	defer builtinMu.RUnlock()
	b, ok := builtinRegistry[id]
	return b, ok
}

// AllBuiltins returns all registered built-ins sorted by ID.
func AllBuiltins() []BuiltinKind {
	builtinMu.RLock()
	out := make([]BuiltinKind, 0, len(builtinRegistry))
	for _, b := range builtinRegistry {
		out = append(out, b)
	}
	builtinMu.RUnlock()

	slices.SortFunc(out, func(a, b BuiltinKind) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
