package cmd

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ethquery/internal/config"
	"github.com/Mohsinsiddi/ethquery/internal/ui"
	"github.com/Mohsinsiddi/ethquery/query"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of the wallet connection",
	Long: `Show the connected account, chain and balance, updating as the wallet
switches accounts or chains, connects or disconnects.

Keyboard controls:
  d   disconnect
  q   quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		m := ui.WatchModel{
			Connector: s.conn.Name(),
			Chains:    s.chains,
			Account:   query.Account(s.client),
			Disconnect: func() tea.Msg {
				dctx, dcancel := context.WithTimeout(ctx, config.RequestTimeout)
				defer dcancel()
				query.Disconnect(dctx, s.client)
				return nil
			},
		}
		prog := tea.NewProgram(m, tea.WithContext(ctx),
			tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))

		refresh := make(chan struct{}, 1)
		stop := query.WatchAccount(s.client, func(a query.AccountData) {
			prog.Send(ui.AccountMsg(a))
			select {
			case refresh <- struct{}{}:
			default:
			}
		})
		defer stop()

		go pollWatchBalance(ctx, s, prog, refresh)

		_, err = prog.Run()
		return err
	},
}

// pollWatchBalance refreshes the connected account's balance every
// watch_interval and right after each account change.
func pollWatchBalance(ctx context.Context, s *session, prog *tea.Program, refresh <-chan struct{}) {
	interval := time.Duration(cfg.WatchInterval) * time.Second
	if interval <= 0 {
		interval = query.DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if a := query.Account(s.client); a.IsConnected {
			reqCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
			bal, err := query.Balance(reqCtx, s.client, a.Address, true)
			cancel()
			if ctx.Err() != nil {
				return
			}
			prog.Send(ui.BalanceMsg{Value: bal, Err: err, At: time.Now()})
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-refresh:
		}
	}
}
