package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ethquery/connector"
	"github.com/Mohsinsiddi/ethquery/internal/chain"
	"github.com/Mohsinsiddi/ethquery/internal/config"
	"github.com/Mohsinsiddi/ethquery/internal/contract"
	"github.com/Mohsinsiddi/ethquery/internal/ui"
	"github.com/Mohsinsiddi/ethquery/query"
)

var sendNoWait bool

var sendCmd = &cobra.Command{
	Use:   "send <to> <amount>",
	Short: "Send native currency from the connected account",
	Long: `Ask the connected wallet to send <amount> of the chain's native currency
to <to>, an address or ENS name, then wait for the transaction to be mined.

Examples:
  ethq send 0x742d35Cc6634C0532925a3b844Bc454e4438f44e 0.01
  ethq send vitalik.eth 1.5 --no-wait`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.TxConfirmTimeout)
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		recipient, err := query.ResolveAddress(ctx, s.client, args[0])
		if err != nil {
			return fmt.Errorf("recipient: %w", err)
		}
		to := common.HexToAddress(recipient)

		signer, err := query.Signer(s.client)
		if err != nil {
			return fmt.Errorf("%w: run `ethq connect` first", err)
		}

		chainID := s.client.State().ChainID()
		symbol, decimals := s.chains.Currency(chainID)
		value, err := chain.ParseUnits(args[1], decimals)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.KeyValueBlock("Transfer", [][2]string{
			{"From", ui.Addr(signer.Address().Hex())},
			{"To", ui.Addr(to.Hex())},
			{"Amount", ui.Val(chain.FormatUnits(value, decimals)) + " " + ui.Meta(symbol)},
			{"Chain", ui.ChainName(s.chains.Describe(chainID))},
		}))

		hash, err := signer.SendTransaction(ctx, connector.TxRequest{
			To:    &to,
			Value: value,
			Gas:   config.GasLimitETHTransfer,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success("Submitted "+hash.Hex()))
		if sendNoWait {
			return nil
		}

		spin := ui.NewSpinner(cmd.ErrOrStderr(), "Waiting for confirmation…")
		spin.Start()
		receipt, err := contract.WaitMined(ctx, signer.Provider(), hash, receiptPollInterval())
		spin.Stop()
		if receipt != nil {
			fmt.Fprintln(out, renderReceipt(s, hash.Hex(), receipt.BlockNumber, receipt.GasUsed))
		}
		return err
	},
}

// receiptPollInterval polls at a quarter of the configured interval, at least once a second.
func receiptPollInterval() time.Duration {
	return max(time.Duration(cfg.PollInterval)*time.Second/4, time.Second)
}

func init() {
	sendCmd.Flags().BoolVar(&sendNoWait, "no-wait", false, "return after submitting, without waiting for the receipt")
}
