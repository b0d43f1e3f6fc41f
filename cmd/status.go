package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ethquery/client"
	"github.com/Mohsinsiddi/ethquery/internal/config"
	"github.com/Mohsinsiddi/ethquery/internal/ui"
	"github.com/Mohsinsiddi/ethquery/query"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the wallet connection status",
	Long: `Probe the configured connector for an existing connection and print
the account and chain it exposes. Never prompts the wallet.

Examples:
  ethq status
  ethq status --connector keystore --wallet dev`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.RequestTimeout)
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		st := s.client.State()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, renderState(s, st))
		if st.Status != client.StatusConnected {
			fmt.Fprintln(out, ui.Hint("Connect with: ethq connect"))
			return nil
		}
		if st.ChainID() == 1 {
			if name, err := query.LookupName(ctx, s.client, st.Account()); err == nil {
				fmt.Fprintln(out, ui.Meta("ENS name: ")+ui.Val(name))
			} else {
				log.Debug().Err(err).Msg("reverse lookup")
			}
		}
		return nil
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to the wallet (may prompt for approval)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.ConnectTimeout)
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if s.client.State().Status == client.StatusConnected {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Info("Already connected."))
			fmt.Fprintln(cmd.OutOrStdout(), renderState(s, s.client.State()))
			return nil
		}

		spin := ui.NewSpinner(cmd.ErrOrStderr(), "Waiting for the wallet to approve…")
		if !assumeYes && cfg.DefaultConnector != config.ConnectorKeystore {
			spin.Start()
			defer spin.Stop()
		}
		start := time.Now()
		if err := query.Connect(ctx, s.client, s.conn.ID()); err != nil {
			return err
		}
		log.Debug().Dur("took", time.Since(start)).Msg("connected")

		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Connected."))
		fmt.Fprintln(cmd.OutOrStdout(), renderState(s, s.client.State()))
		return nil
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Disconnect from the wallet and forget the connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.RequestTimeout)
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if s.client.State().Status != client.StatusConnected {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Info("Not connected."))
			return nil
		}
		query.Disconnect(ctx, s.client)
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Disconnected."))
		return nil
	},
}

func renderState(s *session, st client.State) string {
	pairs := [][2]string{
		{"Connector", s.conn.Name()},
		{"Status", ui.Status(st.Status.String())},
	}
	if st.Status == client.StatusConnected {
		pairs = append(pairs,
			[2]string{"Account", ui.Addr(st.Account())},
			[2]string{"Chain", ui.ChainName(s.chains.Describe(st.ChainID()))},
		)
	}
	return ui.KeyValueBlock("Wallet", pairs)
}
