package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	defaultInjectedID   = "injected"
	defaultInjectedName = "Browser Wallet"
)

// Injected connects to an EIP-1193 host wallet found by a HostLocator.
//
// The host is looked up lazily on first use. When no host is present every
// passive read reports "not connected" and Connect fails with
// ErrProviderUnavailable.
type Injected struct {
	id          string
	name        string
	locate      HostLocator
	newProvider func(Host) Provider
	flags       FlagStore
	sched       Scheduler
	log         zerolog.Logger

	init singleflight.Group

	mu        sync.Mutex
	host      Host
	provider  Provider
	listeners map[string]ListenerID

	sinkMu sync.RWMutex
	sink   EventSink
}

// InjectedOption configures an Injected connector.
type InjectedOption func(*Injected)

// WithID overrides the connector id (default "injected").
func WithID(id string) InjectedOption {
	return func(c *Injected) { c.id = id }
}

// WithName overrides the human readable name.
func WithName(name string) InjectedOption {
	return func(c *Injected) { c.name = name }
}

// WithLogger sets the connector logger.
func WithLogger(l zerolog.Logger) InjectedOption {
	return func(c *Injected) { c.log = l }
}

// WithFlagStore persists the "was connected" flag in s.
func WithFlagStore(s FlagStore) InjectedOption {
	return func(c *Injected) { c.flags = s }
}

// WithScheduler sets where deferred teardown runs (default GoScheduler).
func WithScheduler(s Scheduler) InjectedOption {
	return func(c *Injected) { c.sched = s }
}

// WithProviderFactory overrides how a Host is wrapped into a Provider.
func WithProviderFactory(f func(Host) Provider) InjectedOption {
	return func(c *Injected) { c.newProvider = f }
}

// NewInjected creates a connector for the host wallet returned by locate.
func NewInjected(locate HostLocator, opts ...InjectedOption) *Injected {
	c := &Injected{
		id:          defaultInjectedID,
		name:        defaultInjectedName,
		locate:      locate,
		newProvider: func(h Host) Provider { return NewHostProvider(h) },
		sched:       GoScheduler,
		log:         zerolog.Nop(),
		sink:        NopSink{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("connector", c.id).Logger()
	return c
}

func (c *Injected) ID() string   { return c.id }
func (c *Injected) Name() string { return c.name }

func (c *Injected) SetEventSink(sink EventSink) {
	if sink == nil {
		sink = NopSink{}
	}
	c.sinkMu.Lock()
	c.sink = sink
	c.sinkMu.Unlock()
}

func (c *Injected) eventSink() EventSink {
	c.sinkMu.RLock()
	defer c.sinkMu.RUnlock()
	return c.sink
}

// initialize wraps the host and subscribes to its events. Concurrent callers
// share a single run; once a provider exists it is a no-op.
func (c *Injected) initialize() {
	if c.currentProvider() != nil {
		return
	}
	c.init.Do("init", func() (any, error) { //nolint:errcheck
		if c.currentProvider() != nil {
			return nil, nil
		}
		var host Host
		if c.locate != nil {
			host = c.locate()
		}
		if host == nil {
			c.log.Debug().Msg("no host wallet present")
			return nil, nil
		}

		ids := map[string]ListenerID{
			EventAccountsChanged: host.On(EventAccountsChanged, c.handleAccountsChanged),
			EventChainChanged:    host.On(EventChainChanged, c.handleChainChanged),
			EventDisconnect:      host.On(EventDisconnect, c.handleDisconnect),
		}
		provider := c.newProvider(host)

		c.mu.Lock()
		c.host, c.provider, c.listeners = host, provider, ids
		c.mu.Unlock()

		c.log.Debug().Msg("host wallet initialized")
		return nil, nil
	})
}

func (c *Injected) currentProvider() Provider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.provider
}

// Connect prompts the wallet for account access.
func (c *Injected) Connect(ctx context.Context) (Data, error) {
	c.initialize()
	p := c.currentProvider()
	if p == nil {
		return Data{}, ErrProviderUnavailable
	}

	accounts, err := p.RequestAccounts(ctx)
	if err != nil {
		return Data{}, wrapConnectionError(err)
	}
	if len(accounts) == 0 {
		return Data{}, &ConnectionError{Code: CodeUnauthorized, Message: "wallet returned no accounts"}
	}

	var chainID int64
	if id, err := p.ChainID(ctx); err != nil {
		c.log.Warn().Err(err).Msg("reading chain id after connect")
	} else if id.IsInt64() {
		chainID = id.Int64()
	}
	c.setFlag(true)

	c.log.Debug().Str("account", accounts[0]).Int64("chain_id", chainID).Msg("connected")
	return Data{Account: accounts[0], ChainID: chainID, Provider: p}, nil
}

// Disconnect tears the connection down. Intermediate failures are logged and
// the connector always ends with no provider and no listeners.
func (c *Injected) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	host, provider, ids := c.host, c.provider, c.listeners
	c.mu.Unlock()
	defer c.reset()

	c.setFlag(false)
	if provider == nil {
		return nil
	}

	// Listeners go first so a revoke-triggered accountsChanged does not
	// re-enter the client while it is disconnecting.
	for event, id := range ids {
		host.RemoveListener(event, id)
	}

	revoke := map[string]any{"eth_accounts": map[string]any{}}
	if err := provider.Request(ctx, nil, "wallet_revokePermissions", revoke); err != nil {
		if isUnsupported(err) {
			c.log.Debug().Msg("wallet does not support permission revocation")
		} else {
			c.log.Warn().Err(err).Msg("revoking permissions")
		}
	}

	if _, err := provider.ChainID(ctx); err != nil {
		c.log.Debug().Err(err).Msg("provider unresponsive, skipping destroy")
	} else {
		provider.Destroy()
	}

	c.log.Debug().Msg("disconnected")
	return nil
}

func (c *Injected) Provider(ctx context.Context) (Provider, error) {
	c.initialize()
	return c.currentProvider(), nil
}

func (c *Injected) IsConnected(ctx context.Context) (bool, error) {
	c.initialize()
	if c.flags != nil {
		if connected, ok := c.flags.ConnectedFlag(c.id); ok && !connected {
			return false, nil
		}
	}
	p := c.currentProvider()
	if p == nil {
		return false, nil
	}
	accounts, err := p.Accounts(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("eth_accounts probe failed")
		return false, nil
	}
	return len(accounts) > 0, nil
}

func (c *Injected) Account(ctx context.Context) (string, error) {
	c.initialize()
	p := c.currentProvider()
	if p == nil {
		return "", nil
	}
	accounts, err := p.Accounts(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("eth_accounts read failed")
		return "", nil
	}
	if len(accounts) == 0 {
		return "", nil
	}
	return accounts[0], nil
}

func (c *Injected) ChainID(ctx context.Context) (int64, error) {
	c.initialize()
	p := c.currentProvider()
	if p == nil {
		return 0, nil
	}
	id, err := p.ChainID(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("eth_chainId read failed")
		return 0, nil
	}
	if !id.IsInt64() {
		return 0, nil
	}
	return id.Int64(), nil
}

func (c *Injected) handleAccountsChanged(payload json.RawMessage) {
	var accounts []string
	if err := json.Unmarshal(payload, &accounts); err != nil {
		c.log.Warn().Err(err).Msg("malformed accountsChanged payload")
		return
	}
	c.eventSink().AccountsChanged(accounts)
}

func (c *Injected) handleChainChanged(payload json.RawMessage) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var chainID any
	if err := dec.Decode(&chainID); err != nil {
		c.log.Warn().Err(err).Msg("malformed chainChanged payload")
		return
	}
	c.eventSink().ChainChanged(chainID)
}

// handleDisconnect reacts to a disconnect pushed by the host. The flag is
// cleared at once; teardown and the sink notification run on the next turn
// because the host is still dispatching to its listeners.
func (c *Injected) handleDisconnect(json.RawMessage) {
	c.setFlag(false)
	c.sched.Defer(func() {
		c.teardown()
		c.eventSink().Disconnected()
	})
}

// teardown drops the provider and removes listeners without talking to the
// wallet.
func (c *Injected) teardown() {
	c.mu.Lock()
	host, ids := c.host, c.listeners
	c.host, c.provider, c.listeners = nil, nil, nil
	c.mu.Unlock()

	for event, id := range ids {
		host.RemoveListener(event, id)
	}
}

func (c *Injected) reset() {
	c.mu.Lock()
	c.host, c.provider, c.listeners = nil, nil, nil
	c.mu.Unlock()
}

func (c *Injected) setFlag(connected bool) {
	if c.flags == nil {
		return
	}
	if err := c.flags.SetConnectedFlag(c.id, connected); err != nil {
		c.log.Warn().Err(err).Msg("persisting connection flag")
	}
}
