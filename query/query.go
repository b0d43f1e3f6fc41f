// Package query offers one-call helpers over a client.Client: the current
// account, balances, message signing and contract calls.
package query

import (
	"context"
	"errors"

	"github.com/Mohsinsiddi/ethquery/client"
	"github.com/Mohsinsiddi/ethquery/connector"
)

// ErrSignerUnavailable is returned when no connected, initialized account can sign.
var ErrSignerUnavailable = errors.New("signer not available")

// AccountData is a flattened view of the client state.
type AccountData struct {
	Address        string
	ChainID        int64
	IsConnected    bool
	IsConnecting   bool
	IsDisconnected bool
	IsInitialized  bool
	Provider       connector.Provider
}

// AccountFromState derives AccountData from s. Before initialization it
// reports a loading shape: connecting, with nothing else known.
func AccountFromState(s client.State) AccountData {
	if !s.IsInitialized {
		return AccountData{IsConnecting: true}
	}
	return AccountData{
		Address:        s.Account(),
		ChainID:        s.ChainID(),
		IsConnected:    s.Status == client.StatusConnected,
		IsConnecting:   s.Status.Pending(),
		IsDisconnected: s.Status == client.StatusDisconnected,
		IsInitialized:  true,
		Provider:       s.Provider(),
	}
}

// Account returns the current account view of c.
func Account(c *client.Client) AccountData {
	return AccountFromState(c.State())
}

// WatchAccount calls fn with every new account view until the returned
// function is called.
func WatchAccount(c *client.Client, fn func(AccountData)) (stop func()) {
	return c.Subscribe(func(s client.State) { fn(AccountFromState(s)) })
}

// Provider returns the provider of the current connection, or nil.
func Provider(c *client.Client) connector.Provider {
	return c.State().Provider()
}

// Signer returns a signer for the connected account. It fails unless the
// client is initialized and connected.
func Signer(c *client.Client) (*connector.Signer, error) {
	s := c.State()
	if !s.IsInitialized || s.Status != client.StatusConnected || s.Provider() == nil {
		return nil, ErrSignerUnavailable
	}
	return connector.NewSigner(s.Provider(), s.Account())
}

// Connect connects through the connector with the given id.
func Connect(ctx context.Context, c *client.Client, connectorID string) error {
	return c.Connect(ctx, connectorID)
}

// Disconnect disconnects c. It does nothing when c is not connected.
func Disconnect(ctx context.Context, c *client.Client) {
	if c.State().Status != client.StatusConnected {
		return
	}
	c.Disconnect(ctx)
}
