package connector

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
)

const defaultPollInterval = 4 * time.Second

// RPCHost is a Host backed by a wallet's JSON-RPC endpoint (for example a
// desktop wallet listening on a local websocket).
//
// Events come from eth_subscribe when the transport supports notifications;
// otherwise eth_accounts and eth_chainId are polled and changes are emitted.
type RPCHost struct {
	client       *rpc.Client
	pollInterval time.Duration
	log          zerolog.Logger

	events Emitter

	mu   sync.Mutex
	stop context.CancelFunc
	done chan struct{}
}

// HostOption configures an RPCHost.
type HostOption func(*RPCHost)

// WithPollInterval sets the polling period used when subscriptions are unavailable.
func WithPollInterval(d time.Duration) HostOption {
	return func(h *RPCHost) {
		if d > 0 {
			h.pollInterval = d
		}
	}
}

// WithHostLogger sets the host logger.
func WithHostLogger(l zerolog.Logger) HostOption {
	return func(h *RPCHost) { h.log = l }
}

// DialHost connects to a wallet endpoint (ws://, http://, or an IPC path).
func DialHost(ctx context.Context, url string, opts ...HostOption) (*RPCHost, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewRPCHost(c, opts...), nil
}

// NewRPCHost wraps an existing rpc client.
func NewRPCHost(c *rpc.Client, opts ...HostOption) *RPCHost {
	h := &RPCHost{
		client:       c,
		pollInterval: defaultPollInterval,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *RPCHost) Request(ctx context.Context, result any, method string, params ...any) error {
	return h.client.CallContext(ctx, result, method, params...)
}

// On registers a handler and starts the event watcher if it is not running.
func (h *RPCHost) On(event string, fn Handler) ListenerID {
	id := h.events.On(event, fn)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stop == nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.stop = cancel
		h.done = make(chan struct{})
		go h.watch(ctx, h.done)
	}
	return id
}

// RemoveListener unregisters a handler. The watcher stops with the last one.
func (h *RPCHost) RemoveListener(event string, id ListenerID) {
	h.events.RemoveListener(event, id)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.events.Len() == 0 && h.stop != nil {
		h.stop()
		h.stop = nil
	}
}

// Close stops the watcher and closes the underlying client.
func (h *RPCHost) Close() {
	h.mu.Lock()
	stop, done := h.stop, h.done
	h.stop = nil
	h.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	h.client.Close()
}

func (h *RPCHost) watch(ctx context.Context, done chan struct{}) {
	defer close(done)
	if h.subscribe(ctx) {
		return
	}
	h.poll(ctx)
}

// subscribe relays wallet notifications. It returns false when the transport
// cannot deliver them.
func (h *RPCHost) subscribe(ctx context.Context) bool {
	accounts := make(chan json.RawMessage)
	chains := make(chan json.RawMessage)

	accSub, err := h.client.EthSubscribe(ctx, accounts, EventAccountsChanged)
	if err != nil {
		h.log.Debug().Err(err).Msg("event subscription unavailable, polling")
		return false
	}
	defer accSub.Unsubscribe()

	chainSub, err := h.client.EthSubscribe(ctx, chains, EventChainChanged)
	if err != nil {
		h.log.Debug().Err(err).Msg("chain subscription unavailable, polling")
		return false
	}
	defer chainSub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return true
		case p := <-accounts:
			h.events.Emit(EventAccountsChanged, p)
		case p := <-chains:
			h.events.Emit(EventChainChanged, p)
		case err := <-accSub.Err():
			h.emitDisconnect(err)
			return true
		case err := <-chainSub.Err():
			h.emitDisconnect(err)
			return true
		}
	}
}

type pollState struct {
	primed   bool
	accounts []string
	chainID  string
}

func (h *RPCHost) poll(ctx context.Context) {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	var st pollState
	for {
		h.pollOnce(ctx, &st)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *RPCHost) pollOnce(ctx context.Context, st *pollState) {
	var accounts []string
	if err := h.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		h.log.Debug().Err(err).Msg("polling eth_accounts")
		return
	}
	var chainID hexutil.Big
	if err := h.client.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
		h.log.Debug().Err(err).Msg("polling eth_chainId")
		return
	}
	chain := chainID.String()
	if accounts == nil {
		accounts = []string{}
	}

	if st.primed && !slices.Equal(st.accounts, accounts) {
		h.events.EmitJSON(EventAccountsChanged, accounts) //nolint:errcheck
	}
	if st.primed && st.chainID != chain {
		h.events.EmitJSON(EventChainChanged, chain) //nolint:errcheck
	}
	st.primed, st.accounts, st.chainID = true, accounts, chain
}

func (h *RPCHost) emitDisconnect(err error) {
	msg := "subscription closed"
	if err != nil {
		msg = err.Error()
	}
	h.events.EmitJSON(EventDisconnect, map[string]any{"code": CodeDisconnected, "message": msg}) //nolint:errcheck
}
