package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ethquery/internal/chain"
	"github.com/Mohsinsiddi/ethquery/internal/config"
	"github.com/Mohsinsiddi/ethquery/internal/contract"
	"github.com/Mohsinsiddi/ethquery/internal/ui"
	"github.com/Mohsinsiddi/ethquery/query"
)

var (
	abiFile    string
	abiBuiltin string
	abiSigs    []string
	writeValue string
)

var callCmd = &cobra.Command{
	Use:   "call <contract> <function> [args...]",
	Short: "Call a view or pure contract function",
	Long: `Call a read-only (view/pure) function through the connected wallet.

<contract> is a name saved with "ethq contract add" or a 0x address. For a
bare address the ABI comes from --abi, --sig or --builtin (default erc20).
Array arguments are written as JSON, e.g. '["0xabc…","0xdef…"]'.

Examples:
  ethq call usdc balanceOf 0xYourAddress
  ethq call 0xA0b8…eB48 decimals
  ethq call 0xC0ffee getCount --sig "function getCount() view returns (uint256)"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.RequestTimeout)
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		call, err := resolveCall(args[0], s.client.State().ChainID())
		if err != nil {
			return err
		}
		call.Method, call.Args = args[1], args[2:]

		values, err := query.ReadContract(ctx, s.client, call)
		if err != nil {
			return err
		}

		m := call.ABI.Methods[call.Method]
		pairs := make([][2]string, 0, len(values))
		for i, v := range values {
			label := fmt.Sprintf("[%d] %s", i, m.Outputs[i].Type)
			if name := m.Outputs[i].Name; name != "" {
				label = name + " " + m.Outputs[i].Type.String()
			}
			pairs = append(pairs, [2]string{label, ui.Val(contract.FormatValue(v))})
		}
		if len(pairs) == 0 {
			pairs = append(pairs, [2]string{"result", ui.Meta("(no outputs)")})
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock(m.Sig, pairs))
		return nil
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <contract> <function> [args...]",
	Short: "Send a state-changing contract call from the connected account",
	Long: `Send a transaction calling a non-view function and wait for it to be mined.

Examples:
  ethq write usdc transfer 0xRecipient 1000000
  ethq write 0xC0ffee deposit --sig "function deposit() payable" --value 0.1`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.TxConfirmTimeout)
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		call, err := resolveCall(args[0], s.client.State().ChainID())
		if err != nil {
			return err
		}
		call.Method, call.Args = args[1], args[2:]
		call.PollInterval = receiptPollInterval()
		if writeValue != "" {
			if call.Value, err = chain.ParseUnits(writeValue, 18); err != nil {
				return err
			}
		}

		spin := ui.NewSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Sending %s and waiting for the receipt…", call.Method))
		spin.Start()
		receipt, err := query.WriteContract(ctx, s.client, call)
		spin.Stop()
		if err != nil {
			if receipt != nil {
				fmt.Fprintln(cmd.OutOrStdout(), renderReceipt(s, receipt.TxHash.Hex(), receipt.BlockNumber, receipt.GasUsed))
			}
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(call.Method+" confirmed."))
		fmt.Fprintln(cmd.OutOrStdout(), renderReceipt(s, receipt.TxHash.Hex(), receipt.BlockNumber, receipt.GasUsed))
		return nil
	},
}

// resolveCall finds the address and ABI for target: a saved contract name on
// chainID, or an address with the ABI from flags.
func resolveCall(target string, chainID int64) (query.ContractCall, error) {
	if !common.IsHexAddress(target) {
		reg := contract.NewRegistry(cfg.ContractsPath())
		if err := reg.Load(); err != nil {
			return query.ContractCall{}, err
		}
		e, err := reg.Get(target, chainID)
		if err != nil {
			return query.ContractCall{}, fmt.Errorf("%w (save it with `ethq contract add`)", err)
		}
		k, err := e.Contract()
		if err != nil {
			return query.ContractCall{}, err
		}
		return query.ContractCall{Address: k.Address.Hex(), ABI: k.ABI}, nil
	}

	parsed, err := abiFromFlags()
	if err != nil {
		return query.ContractCall{}, err
	}
	return query.ContractCall{Address: target, ABI: parsed}, nil
}

func abiFromFlags() (abi.ABI, error) {
	switch {
	case abiFile != "":
		data, err := os.ReadFile(abiFile)
		if err != nil {
			return abi.ABI{}, err
		}
		return contract.ParseABI(extractABI(data))
	case len(abiSigs) > 0:
		return contract.ParseSignatures(abiSigs)
	default:
		id := abiBuiltin
		if id == "" {
			id = "erc20"
		}
		b, ok := contract.GetBuiltin(id)
		if !ok {
			return abi.ABI{}, fmt.Errorf("unknown builtin %q", id)
		}
		return b.ABI, nil
	}
}

func renderReceipt(s *session, hash string, block *big.Int, gasUsed uint64) string {
	pairs := [][2]string{
		{"Tx Hash", ui.Addr(hash)},
		{"Block", fmt.Sprint(block)},
		{"Gas Used", fmt.Sprint(gasUsed)},
	}
	if c, err := s.chains.GetByChainID(s.client.State().ChainID()); err == nil {
		if url := c.TxURL(hash); url != "" {
			pairs = append(pairs, [2]string{"Explorer", ui.Meta(url)})
		}
	}
	return ui.KeyValueBlock("Receipt", pairs)
}

func init() {
	for _, c := range []*cobra.Command{callCmd, writeCmd} {
		c.Flags().StringVar(&abiFile, "abi", "", "ABI JSON file or compiler artifact")
		c.Flags().StringVar(&abiBuiltin, "builtin", "", "built-in ABI id (default erc20)")
		c.Flags().StringArrayVar(&abiSigs, "sig", nil, `human-readable ABI line, e.g. "function f(uint256) returns (bool)"`)
		c.MarkFlagsMutuallyExclusive("abi", "builtin", "sig")
	}
	writeCmd.Flags().StringVar(&writeValue, "value", "", "ether to attach to a payable call")
}
