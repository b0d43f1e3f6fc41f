package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ethquery/internal/config"
	"github.com/Mohsinsiddi/ethquery/internal/price"
	"github.com/Mohsinsiddi/ethquery/internal/ui"
	"github.com/Mohsinsiddi/ethquery/query"
)

var (
	balanceWei      bool
	balanceWatch    bool
	balanceInterval time.Duration
	balanceFiat     string
)

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show the native balance of an address",
	Long: `Show the native balance of an address, read through the connected wallet.
Without an address the connected account is used. ENS names are resolved
through the wallet.

Examples:
  ethq balance
  ethq balance vitalik.eth --fiat usd
  ethq balance 0x742d35Cc6634C0532925a3b844Bc454e4438f44e --wei
  ethq balance --watch --interval 2s`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		address := ""
		if len(args) == 1 {
			resolveCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
			address, err = query.ResolveAddress(resolveCtx, s.client, args[0])
			cancel()
			if err != nil {
				return err
			}
		} else if address, err = s.requireAccount(); err != nil {
			return err
		}

		symbol, _ := s.chains.Currency(s.client.State().ChainID())
		unit := symbol
		if balanceWei {
			unit = "wei"
		}
		out := cmd.OutOrStdout()

		if !balanceWatch {
			reqCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
			defer cancel()
			bal, err := query.Balance(reqCtx, s.client, address, !balanceWei)
			if err != nil {
				return err
			}
			pairs := [][2]string{
				{"Address", ui.Addr(address)},
				{"Chain", ui.ChainName(s.chains.Describe(s.client.State().ChainID()))},
				{"Balance", ui.Val(bal) + " " + ui.Meta(unit)},
			}
			if balanceFiat != "" && !balanceWei {
				value := ui.Meta("testnet, no value")
				if c, err := s.chains.GetByChainID(s.client.State().ChainID()); err != nil || !c.Testnet {
					value = fiatValue(reqCtx, symbol, bal)
				}
				pairs = append(pairs, [2]string{"Value", value})
			}
			fmt.Fprintln(out, ui.KeyValueBlock("Balance", pairs))
			return nil
		}

		interval := balanceInterval
		if interval <= 0 {
			interval = time.Duration(cfg.PollInterval) * time.Second
		}
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("Watching %s every %s, Ctrl+C to stop", address, interval)))

		last := ""
		err = query.WatchBalance(ctx, s.client, address, !balanceWei, interval, func(bal string, err error) {
			switch {
			case err != nil:
				fmt.Fprintln(out, ui.Err(err.Error()))
			case bal != last:
				fmt.Fprintf(out, "%s  %s %s\n", ui.Meta(time.Now().Format(time.TimeOnly)), ui.Val(bal), ui.Meta(unit))
				last = bal
			}
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

// fiatValue prices amount of symbol in balanceFiat, or explains why it can't.
func fiatValue(ctx context.Context, symbol, amount string) string {
	f := price.NewFetcher(balanceFiat)
	p, err := f.Price(ctx, symbol)
	if err != nil {
		log.Debug().Err(err).Msg("price lookup")
		return ui.Meta("unavailable")
	}
	n, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return ui.Meta("unavailable")
	}
	return ui.Val(fmt.Sprintf("%.2f", n*p)) + " " + ui.Meta(strings.ToUpper(f.Currency()))
}

func init() {
	balanceCmd.Flags().BoolVar(&balanceWei, "wei", false, "print the raw wei amount")
	balanceCmd.Flags().BoolVar(&balanceWatch, "watch", false, "keep polling and print changes")
	balanceCmd.Flags().StringVar(&balanceFiat, "fiat", "", "also show the value in this currency, e.g. usd (uses CoinGecko)")
	balanceCmd.Flags().DurationVar(&balanceInterval, "interval", 0, "poll interval for --watch (default: poll_interval)")
}
