package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ethquery/internal/chain"
	"github.com/Mohsinsiddi/ethquery/internal/config"
	"github.com/Mohsinsiddi/ethquery/internal/contract"
	"github.com/Mohsinsiddi/ethquery/internal/manifest"
	"github.com/Mohsinsiddi/ethquery/internal/ui"
)

var contractChain string

var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "Manage named contracts for call and write",
}

var contractAddCmd = &cobra.Command{
	Use:   "add <name> <address>",
	Short: "Save a contract under a name",
	Long: `Save a contract address and its ABI so call and write can use it by name.

ABI source (pick one, default --builtin erc20):
  --abi <file>     raw ABI JSON array or a Hardhat/Foundry artifact
  --builtin <id>   a bundled ABI (see: ethq contract builtins)
  --sig <line>     human-readable ABI lines, repeatable

Examples:
  ethq contract add usdc 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48
  ethq contract add vault 0x1234… --abi ./out/Vault.sol/Vault.json --chain base
  ethq contract add counter 0xC0ffee… --sig "function count() view returns (uint256)" --chain 31337`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chainID, err := resolveChainID(contractChain)
		if err != nil {
			return err
		}
		entry := &contract.Entry{Name: args[0], ChainID: chainID, Address: args[1]}

		switch {
		case abiFile != "":
			data, err := os.ReadFile(abiFile)
			if err != nil {
				return err
			}
			entry.ABI = extractABI(data)
		case len(abiSigs) > 0:
			if entry.ABI, err = contract.SignaturesJSON(abiSigs); err != nil {
				return err
			}
		default:
			entry.Builtin = abiBuiltin
			if entry.Builtin == "" {
				entry.Builtin = "erc20"
			}
		}

		reg := contract.NewRegistry(cfg.ContractsPath())
		if err := reg.Load(); err != nil {
			return err
		}
		if err := reg.Add(entry); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}

		chains := chain.NewRegistry()
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Saved %q on %s at %s",
			entry.Name, chains.Describe(chainID), entry.Address)))
		fmt.Fprintln(cmd.OutOrStdout(), ui.Hint("Call it with: ethq call "+entry.Name+" <function> [args...]"))
		return nil
	},
}

var contractListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved contracts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := contract.NewRegistry(cfg.ContractsPath())
		if err := reg.Load(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		entries := reg.All()
		if len(entries) == 0 {
			fmt.Fprintln(out, ui.Info("No contracts saved yet."))
			fmt.Fprintln(out, ui.Hint("Add one with: ethq contract add <name> <address> --builtin erc20"))
			return nil
		}

		chains := chain.NewRegistry()
		t := ui.NewTable(
			ui.Column{Title: "Name", Width: 16},
			ui.Column{Title: "Chain", Width: 22},
			ui.Column{Title: "Address", Width: 44},
			ui.Column{Title: "ABI", Width: 14},
		)
		for _, e := range entries {
			source := "custom"
			if e.Builtin != "" {
				source = "builtin:" + e.Builtin
			}
			if k, err := e.Contract(); err == nil {
				source += fmt.Sprintf(" (%d)", len(k.ABI.Methods))
			}
			t.AddRow(e.Name, chains.Describe(e.ChainID), e.Address, source)
		}
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d contract(s) saved", len(entries))))
		return nil
	},
}

var contractRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Forget a saved contract",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chainID, err := resolveChainID(contractChain)
		if err != nil {
			return err
		}
		reg := contract.NewRegistry(cfg.ContractsPath())
		if err := reg.Load(); err != nil {
			return err
		}
		if err := reg.Remove(args[0], chainID); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Removed %q from chain %d", args[0], chainID)))
		return nil
	},
}

var contractBuiltinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "List bundled contract ABIs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t := ui.NewTable(
			ui.Column{Title: "ID", Width: 10},
			ui.Column{Title: "Name", Width: 20},
			ui.Column{Title: "Functions", Width: 10},
			ui.Column{Title: "Description", Width: 50},
		)
		for _, b := range contract.AllBuiltins() {
			t.AddRow(b.ID, b.Name, strconv.Itoa(len(b.ABI.Methods)), b.Description)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		fmt.Fprintln(cmd.OutOrStdout(), ui.Hint("Use: ethq contract add <name> <address> --builtin <id>"))
		return nil
	},
}

var contractImportCmd = &cobra.Command{
	Use:   "import <manifest>",
	Short: "Save every contract from a deployments manifest",
	Long: `Read a deployments manifest from a file or an http(s) URL and save each
deployment. Entries that cannot be used are listed and skipped.

Manifest format:
  {"contracts": {
     "usdc":  {"ethereum": {"address": "0xA0b8…", "builtin": "erc20"}},
     "vault": {"8453":     {"address": "0x1234…", "abi_url": "https://…/Vault.json"}},
     "pool":  {"base":     {"address": "0x5678…", "abi": [ … ]}}
  }}

Examples:
  ethq contract import ./deployments.json
  ethq contract import https://example.com/deployments.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.RequestTimeout)
		defer cancel()

		reg := contract.NewRegistry(cfg.ContractsPath())
		res, err := manifest.New(reg, manifest.WithLogger(log.Component("manifest"))).Import(ctx, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, k := range res.Imported {
			fmt.Fprintln(out, ui.Success("saved "+k))
		}
		for _, s := range res.Skipped {
			fmt.Fprintln(out, ui.Warn("skipped "+s))
		}
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d imported, %d skipped", len(res.Imported), len(res.Skipped))))
		return nil
	},
}

// resolveChainID accepts a chain name from the registry or a numeric id.
func resolveChainID(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("--chain is required")
	}
	id, err := chain.NewRegistry().ResolveID(s)
	if err != nil {
		return 0, fmt.Errorf("%w (see: ethq chains)", err)
	}
	return id, nil
}

// extractABI accepts a bare ABI array or a compiler artifact with an "abi" field.
func extractABI(data []byte) json.RawMessage {
	var artifact struct {
		ABI json.RawMessage `json:"abi"`
	}
	if json.Unmarshal(data, &artifact) == nil && len(artifact.ABI) > 0 {
		return artifact.ABI
	}
	return data
}

func init() {
	contractAddCmd.Flags().StringVar(&abiFile, "abi", "", "ABI JSON file or compiler artifact")
	contractAddCmd.Flags().StringVar(&abiBuiltin, "builtin", "", "built-in ABI id (default erc20)")
	contractAddCmd.Flags().StringArrayVar(&abiSigs, "sig", nil, "human-readable ABI line, repeatable")
	contractAddCmd.MarkFlagsMutuallyExclusive("abi", "builtin", "sig")

	for _, c := range []*cobra.Command{contractAddCmd, contractRemoveCmd} {
		c.Flags().StringVar(&contractChain, "chain", "ethereum", "chain name or numeric chain id")
	}

	contractCmd.AddCommand(contractAddCmd, contractImportCmd, contractListCmd, contractRemoveCmd, contractBuiltinsCmd)
}
