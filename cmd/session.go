package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Mohsinsiddi/ethquery/client"
	"github.com/Mohsinsiddi/ethquery/connector"
	"github.com/Mohsinsiddi/ethquery/internal/chain"
	"github.com/Mohsinsiddi/ethquery/internal/config"
	"github.com/Mohsinsiddi/ethquery/internal/rpc"
	"github.com/Mohsinsiddi/ethquery/internal/ui"
	"github.com/Mohsinsiddi/ethquery/internal/wallet"
)

// openKeystore is swapped out in tests.
var openKeystore = func(dir string) (wallet.KeystoreBackend, error) {
	return wallet.OpenKeystore(dir)
}

func newWalletManager() (*wallet.Manager, error) {
	ks, err := openKeystore(cfg.Dir())
	if err != nil {
		return nil, err
	}
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeystore(ks),
	), nil
}

// session is one CLI invocation's view of the wallet: a client over the
// configured connector, initialized and ready to query.
type session struct {
	client *client.Client
	conn   connector.Connector
	chains *chain.Registry
	close  []func()
}

// openSession builds the configured connector and waits for the client's
// initial probe.
func openSession(ctx context.Context) (*session, error) {
	flags := wallet.NewFlagFile(cfg.FlagsPath())
	s := &session{chains: chain.NewRegistry()}

	var err error
	switch cfg.DefaultConnector {
	case config.ConnectorKeystore:
		s.conn, err = s.keystoreConnector(ctx, flags)
	default:
		s.conn, err = s.injectedConnector(ctx, flags)
	}
	if err != nil {
		s.Close()
		return nil, err
	}

	opts := []client.Option{
		client.WithLogger(log.Component("client")),
		client.WithAutoInit(false),
	}
	if cfg.LegacyRaces {
		opts = append(opts, client.WithLegacyRaces())
	}
	s.client = client.New([]connector.Connector{s.conn}, opts...)

	initCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()
	s.client.Init(initCtx)
	return s, nil
}

func (s *session) injectedConnector(ctx context.Context, flags connector.FlagStore) (connector.Connector, error) {
	dialCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()

	host, err := connector.DialHost(dialCtx, cfg.HostURL,
		connector.WithPollInterval(time.Duration(cfg.PollInterval)*time.Second),
		connector.WithHostLogger(log.Component("host")),
	)
	if err != nil {
		return nil, fmt.Errorf("dialing wallet at %s: %w", cfg.HostURL, err)
	}
	s.close = append(s.close, host.Close)

	return connector.NewInjected(connector.StaticHost(host),
		connector.WithFlagStore(flags),
		connector.WithLogger(log.Component("connector")),
	), nil
}

func (s *session) keystoreConnector(ctx context.Context, flags *wallet.FlagFile) (connector.Connector, error) {
	mgr, err := newWalletManager()
	if err != nil {
		return nil, err
	}
	w, err := mgr.Resolve(cfg.DefaultWallet)
	if err != nil {
		return nil, err
	}
	key, err := wallet.LoadKey(w, mgr.Keystore())
	if err != nil {
		return nil, err
	}

	algo, err := rpc.ParseAlgorithm(cfg.NodeSelection)
	if err != nil {
		return nil, err
	}
	nodeURL, err := rpc.Select(ctx, rpc.SplitURLs(cfg.NodeURL), algo)
	if err != nil {
		return nil, fmt.Errorf("selecting node from %q: %w", cfg.NodeURL, err)
	}
	log.Debug().Str("node", nodeURL).Str("selection", string(algo)).Msg("node selected")

	node, err := ethclient.DialContext(ctx, nodeURL)
	if err != nil {
		return nil, fmt.Errorf("dialing node at %s: %w", nodeURL, err)
	}

	connected, _ := flags.ConnectedFlag(config.ConnectorKeystore)
	host := wallet.NewKeyHost(key, node,
		wallet.WithApprover(approveOnTerminal),
		wallet.WithAuthorized(connected),
		wallet.WithKeyHostLogger(log.Component("keyhost")),
	)
	s.close = append(s.close, host.Close)

	return connector.NewInjected(connector.StaticHost(host),
		connector.WithID(config.ConnectorKeystore),
		connector.WithName("Keystore ("+w.Name+")"),
		connector.WithFlagStore(flags),
		connector.WithLogger(log.Component("connector")),
	), nil
}

// Close releases transports in reverse order of creation.
func (s *session) Close() {
	for i := len(s.close) - 1; i >= 0; i-- {
		s.close[i]()
	}
	s.close = nil
}

// requireAccount returns the connected account or a hint to connect first.
func (s *session) requireAccount() (string, error) {
	st := s.client.State()
	if st.Status != client.StatusConnected {
		return "", errors.New("not connected, run `ethq connect` first")
	}
	return st.Account(), nil
}

func approveOnTerminal(_ context.Context, addr common.Address) error {
	if assumeYes {
		return nil
	}
	if !ui.Confirm(os.Stdin, os.Stderr, fmt.Sprintf("Expose account %s to ethq?", addr.Hex())) {
		return errors.New("user rejected the request")
	}
	return nil
}

// errLine renders an error for the terminal.
func errLine(err error) string {
	var ce *connector.ConnectionError
	if errors.As(err, &ce) && ce.UserRejected() {
		return ui.Err("request rejected in the wallet")
	}
	return ui.Err(err.Error())
}
