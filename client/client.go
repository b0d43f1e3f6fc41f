// Package client holds the connection state machine shared by everything that
// needs the wallet: one active connector, one State, many subscribers.
package client

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mohsinsiddi/ethquery/connector"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrSuperseded is returned by Connect when a later Connect or Disconnect
// call started before this one finished. The stale result is discarded.
var ErrSuperseded = errors.New("connect superseded by a newer request")

// eventTimeout bounds the provider refreshes done while handling wallet events.
const eventTimeout = 10 * time.Second

// Listener is called with the new State after every change.
type Listener func(State)

type op int

const (
	opNone op = iota
	opConnect
	opDisconnect
)

// Client owns the active connector and the connection State.
type Client struct {
	id          string
	connectors  []connector.Connector
	log         zerolog.Logger
	legacyRaces bool
	autoInit    bool
	baseCtx     context.Context

	mu       sync.Mutex
	state    State
	subs     []*subscription
	pending  []State
	draining bool
	gen      uint64
	lastOp   op

	initOnce sync.Once
	ready    chan struct{}
}

type subscription struct {
	fn     Listener
	active atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithAutoInit controls whether New starts the initial connection probe in
// the background (default true). Without it, call Init.
func WithAutoInit(on bool) Option {
	return func(c *Client) { c.autoInit = on }
}

// WithLegacyRaces drops the request-generation guard: whichever connect or
// disconnect finishes last decides the state, even if it was started first.
func WithLegacyRaces() Option {
	return func(c *Client) { c.legacyRaces = true }
}

// WithContext sets the context used for background work (initial probe and
// wallet event handling).
func WithContext(ctx context.Context) Option {
	return func(c *Client) { c.baseCtx = ctx }
}

// New creates a Client over connectors. The first connector is the default.
func New(connectors []connector.Connector, opts ...Option) *Client {
	c := &Client{
		id:         uuid.NewString(),
		connectors: slices.Clone(connectors),
		log:        zerolog.Nop(),
		autoInit:   true,
		baseCtx:    context.Background(),
		state:      State{Status: StatusDisconnected},
		ready:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("client_id", c.id).Logger()

	if c.autoInit {
		go c.Init(c.baseCtx)
	}
	return c
}

// Init runs the initial connection probe. Only the first call does any work;
// later calls return immediately.
func (c *Client) Init(ctx context.Context) {
	c.initOnce.Do(func() { c.initialize(ctx) })
}

// Ready is closed once the initial probe has finished.
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// Connectors returns the configured connectors.
func (c *Client) Connectors() []connector.Connector {
	return slices.Clone(c.connectors)
}

// State returns the current state. Check IsInitialized before treating a
// disconnected state as final.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers l for every state change and returns a function that
// removes it. Each call is its own subscription; the returned function is
// safe to call more than once.
func (c *Client) Subscribe(l Listener) (unsubscribe func()) {
	s := &subscription{fn: l}
	s.active.Store(true)

	c.mu.Lock()
	c.subs = append(c.subs, s)
	c.mu.Unlock()

	return func() {
		if !s.active.CompareAndSwap(true, false) {
			return
		}
		c.mu.Lock()
		c.subs = slices.DeleteFunc(c.subs, func(x *subscription) bool { return x == s })
		c.mu.Unlock()
	}
}

// Connect activates the connector with the given id ("" selects the first
// one) and asks it to connect. On failure the state returns to disconnected
// and the error is returned.
func (c *Client) Connect(ctx context.Context, connectorID string) error {
	conn, err := c.find(connectorID)
	if err != nil {
		return err
	}

	gen := c.begin(opConnect)
	c.apply(Connecting{})
	c.bind(conn)

	data, err := conn.Connect(ctx)
	if err != nil {
		c.log.Error().Err(err).Str("connector", conn.ID()).Msg("connection failed")
		if c.current(gen) {
			c.apply(Disconnected{})
		}
		return err
	}

	if !c.current(gen) {
		c.log.Warn().Str("connector", conn.ID()).Msg("discarding superseded connect")
		if c.supersededBy() == opDisconnect {
			if err := conn.Disconnect(ctx); err != nil {
				c.log.Error().Err(err).Msg("releasing superseded connection")
			}
		}
		return ErrSuperseded
	}

	c.log.Info().Str("connector", conn.ID()).Str("account", data.Account).Int64("chain_id", data.ChainID).Msg("connected")
	c.apply(Connected{Connector: conn, Data: data})
	return nil
}

// Disconnect releases the active connector. It never fails: connector
// errors are logged and the state is reset regardless. With no active
// connector it does nothing.
func (c *Client) Disconnect(ctx context.Context) {
	gen := c.begin(opDisconnect)
	c.disconnect(ctx, gen, nil)
}

// Provider returns the active connector's provider, or nil.
func (c *Client) Provider(ctx context.Context) (connector.Provider, error) {
	conn := c.State().Connector
	if conn == nil {
		return nil, nil
	}
	return conn.Provider(ctx)
}

func (c *Client) find(id string) (connector.Connector, error) {
	if id == "" {
		if len(c.connectors) == 0 {
			return nil, connector.ErrConnectorNotFound
		}
		return c.connectors[0], nil
	}
	for _, conn := range c.connectors {
		if conn.ID() == id {
			return conn, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", connector.ErrConnectorNotFound, id)
}

// begin starts a new explicit request and returns its generation.
func (c *Client) begin(kind op) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.lastOp = kind
	return c.gen
}

// current reports whether the request with generation gen may still write
// state. A zero generation marks wallet-driven work, which is never stale.
// Background work that must yield to any explicit request uses quiet.
func (c *Client) current(gen uint64) bool {
	if c.legacyRaces || gen == 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

// quiet reports whether no explicit connect or disconnect has started since
// the generation counter read gen.
func (c *Client) quiet(gen uint64) bool {
	if c.legacyRaces {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

// claimed reports whether a connection is active or being made.
func (c *Client) claimed() bool {
	s := c.State()
	return s.Connector != nil || s.Status.Pending()
}

func (c *Client) supersededBy() op {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOp
}

// disconnect releases the active connector. A non-nil origin restricts it to
// that connector: events from a connector that is no longer active must not
// tear down its replacement.
func (c *Client) disconnect(ctx context.Context, gen uint64, origin connector.Connector) {
	s := c.State()
	conn := s.Connector
	if origin != nil && conn != nil && conn != origin {
		c.log.Debug().Str("connector", origin.ID()).Msg("ignoring disconnect from inactive connector")
		return
	}
	if conn == nil {
		// An explicit disconnect during a connect abandons the attempt.
		if gen != 0 && s.Status.Pending() && c.current(gen) {
			c.log.Debug().Msg("disconnect: abandoning pending connect")
			c.apply(Disconnected{})
			return
		}
		c.log.Debug().Msg("disconnect: no active connector")
		return
	}

	if err := conn.Disconnect(ctx); err != nil {
		c.log.Error().Err(err).Str("connector", conn.ID()).Msg("connector disconnect failed")
	}
	if !c.current(gen) {
		return
	}
	c.log.Info().Str("connector", conn.ID()).Msg("disconnected")
	c.apply(Disconnected{})
}

func (c *Client) initialize(ctx context.Context) {
	defer close(c.ready)

	if len(c.connectors) == 0 {
		c.apply(Initialized{})
		return
	}

	// Any explicit request started while the probe runs wins over it.
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	conn := c.connectors[0]
	c.bind(conn)

	connected, err := conn.IsConnected(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("initial connection probe failed")
	}
	if connected {
		data, err := probe(ctx, conn)
		switch {
		case err != nil:
			c.log.Warn().Err(err).Msg("reading existing connection")
		case data.Account == "" || data.ChainID == 0 || data.Provider == nil:
			c.log.Debug().Msg("existing connection incomplete")
		case !c.quiet(gen) || c.claimed():
			c.log.Debug().Msg("existing connection superseded by explicit request")
		default:
			c.log.Info().Str("connector", conn.ID()).Str("account", data.Account).Msg("restored connection")
			c.apply(Restored{Connector: conn, Data: data})
			return
		}
	}
	c.apply(Initialized{})
}

// probe reads account, chain id and provider concurrently.
func probe(ctx context.Context, conn connector.Connector) (connector.Data, error) {
	var d connector.Data
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Account, err = conn.Account(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.ChainID, err = conn.ChainID(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.Provider, err = conn.Provider(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return connector.Data{}, err
	}
	return d, nil
}

// apply reduces u into the state and fans the result out to subscribers in
// the order updates were applied. An update applied while another goroutine
// (or a listener) is delivering is queued behind it.
func (c *Client) apply(u Update) State {
	c.mu.Lock()
	next := Reduce(c.state, u)
	c.state = next
	c.pending = append(c.pending, next)
	if c.draining {
		c.mu.Unlock()
		return next
	}
	c.draining = true
	delivered := false
	defer func() {
		if delivered {
			return
		}
		// A listener panicked: drop the backlog so the next update can drain.
		c.mu.Lock()
		c.draining = false
		c.pending = nil
		c.mu.Unlock()
	}()

	for len(c.pending) > 0 {
		s := c.pending[0]
		c.pending = c.pending[1:]
		subs := slices.Clone(c.subs)
		c.mu.Unlock()

		c.log.Debug().
			Str("status", s.Status.String()).
			Str("account", s.Account()).
			Int64("chain_id", s.ChainID()).
			Bool("initialized", s.IsInitialized).
			Msg("state update")
		for _, sub := range subs {
			if sub.active.Load() {
				sub.fn(s)
			}
		}

		c.mu.Lock()
	}
	// Cleared under the same lock that saw the queue empty, so an update
	// queued after this point finds no drainer and delivers itself.
	c.draining = false
	delivered = true
	c.mu.Unlock()
	return next
}

// bind installs the client's event handlers on conn. Rebinding the same
// connector replaces the previous sink.
func (c *Client) bind(conn connector.Connector) {
	conn.SetEventSink(&sink{c: c, conn: conn})
}
