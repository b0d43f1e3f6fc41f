package connector

import (
	"context"
	"encoding/json"
)

// Events a Host emits.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
	EventDisconnect      = "disconnect"
	EventConnect         = "connect"
)

// Handler receives the raw JSON payload of a host event.
type Handler func(payload json.RawMessage)

// ListenerID identifies a handler registered with Host.On.
type ListenerID uint64

// Host is an EIP-1193 style wallet object: a request function plus an event
// emitter. Implementations must invoke handlers without holding locks that
// On or RemoveListener need.
type Host interface {
	Request(ctx context.Context, result any, method string, params ...any) error
	On(event string, h Handler) ListenerID
	RemoveListener(event string, id ListenerID)
}

// HostLocator finds the host wallet, returning nil when none is present.
type HostLocator func() Host

// StaticHost returns a locator that always yields h.
func StaticHost(h Host) HostLocator {
	return func() Host { return h }
}
