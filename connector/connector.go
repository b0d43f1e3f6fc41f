// Package connector defines how a wallet-like provider is connected, queried and
// observed, and ships the Injected connector for EIP-1193 host wallets.
package connector

//go:generate mockgen -source=connector.go -destination=../internal/mock/connector_mock.go -package=mock

import "context"

// Data is a snapshot of what a connector currently knows. Zero values mean
// absent; an empty Account means logically disconnected.
type Data struct {
	Account  string
	ChainID  int64
	Provider Provider
}

// Connected reports whether the snapshot carries an account.
func (d Data) Connected() bool {
	return d.Account != ""
}

// EventSink receives events pushed by the wallet behind a connector.
// Connectors relay events to the sink without applying any policy.
type EventSink interface {
	AccountsChanged(accounts []string)
	// ChainChanged receives the chain id as the wallet sent it: an integer
	// kind, a json.Number, or a decimal / 0x-prefixed hex string.
	ChainChanged(chainID any)
	Disconnected()
}

// NopSink drops every event. Connectors start with it installed so that an
// event arriving before a client binds its sink is harmless.
type NopSink struct{}

func (NopSink) AccountsChanged([]string) {}
func (NopSink) ChainChanged(any)         {}
func (NopSink) Disconnected()            {}

// Connector is the capability set a Client drives.
//
// Connect is the only method allowed to prompt the user. The passive reads
// (IsConnected, Account, ChainID, Provider) never prompt.
type Connector interface {
	ID() string
	Name() string

	Connect(ctx context.Context) (Data, error)
	// Disconnect releases the provider and event subscriptions. Calling it on
	// an already disconnected connector is a no-op.
	Disconnect(ctx context.Context) error

	// Provider returns the current provider, or nil when none is available.
	Provider(ctx context.Context) (Provider, error)
	IsConnected(ctx context.Context) (bool, error)
	Account(ctx context.Context) (string, error)
	ChainID(ctx context.Context) (int64, error)

	// SetEventSink replaces the sink events are relayed to. A nil sink
	// installs NopSink.
	SetEventSink(sink EventSink)
}
