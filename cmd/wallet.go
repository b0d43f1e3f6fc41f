package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ethquery/internal/config"
	"github.com/Mohsinsiddi/ethquery/internal/ui"
	"github.com/Mohsinsiddi/ethquery/internal/wallet"
)

var walletKeyFlag string

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage keystore wallets for the keystore connector",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a wallet",
	Long: `Add a signing wallet from a private key, or a watch-only wallet from an
address. Only signing wallets can be exposed by the keystore connector.

Examples:
  ethq wallet add dev --key 0x4c08…
  ethq wallet add treasury 0x742d35Cc6634C0532925a3b844Bc454e4438f44e`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if walletKeyFlag != "" {
			if err := mgr.AddWithKey(name, walletKeyFlag); err != nil {
				return err
			}
			w, _ := mgr.Get(name)
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Signing wallet %q added: %s", name, ui.Addr(w.Address))))
		} else {
			if len(args) < 2 {
				return errors.New("address required for a watch-only wallet, or pass --key for a signing wallet")
			}
			if err := mgr.Add(name, args[1]); err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(args[1]))))
		}
		fmt.Fprintln(out, ui.Hint("Set as default with: ethq wallet use "+name))
		return nil
	},
}

var walletGenerateCmd = &cobra.Command{
	Use:     "generate <name>",
	Aliases: []string{"new"},
	Short:   "Generate a new signing wallet",
	Long: `Generate a new keypair and store the private key in the OS keychain.
The key is printed once.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		w, hexKey, err := mgr.Generate(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.KeyValueBlock("New Wallet", [][2]string{
			{"Name", ui.Val(w.Name)},
			{"Address", ui.Addr(w.Address)},
		}))
		fmt.Fprintln(out, ui.DangerBox(
			ui.Warn("Private key, shown only once. Never share it.")+"\n\n"+
				ui.Val(hexKey)+"\n\n"+
				ui.Hint("Store it in a password manager."),
		))
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wallets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		wallets := mgr.List()
		if len(wallets) == 0 {
			fmt.Fprintln(out, ui.Info("No wallets configured yet."))
			fmt.Fprintln(out, ui.Hint("Add one with: ethq wallet add <name> --key <private-key>"))
			return nil
		}

		t := ui.NewTable(
			ui.Column{Title: "Name", Width: 16},
			ui.Column{Title: "Address", Width: 44},
			ui.Column{Title: "Type", Width: 12},
			ui.Column{Title: "Default", Width: 8},
		)
		for _, w := range wallets {
			def := ""
			if w.IsDefault {
				def = "✓"
			}
			t.AddRow(w.Name, w.Address, w.Type, def)
		}
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d wallet(s) configured", len(wallets))))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a wallet and its stored key",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !assumeYes && !ui.Confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("Remove wallet %q and its key?", name)) {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("Cancelled."))
			return nil
		}
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		if err := mgr.Remove(name); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the wallet the keystore connector exposes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		w, err := mgr.Get(name)
		if err != nil {
			return err
		}
		if w.Type != wallet.TypeSigning {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Warn("watch-only wallets cannot sign, the keystore connector will refuse it"))
		}
		if err := mgr.SetDefault(name); err != nil {
			return err
		}

		fileCfg, err := config.LoadFile(cfgDir)
		if err != nil {
			return err
		}
		if err := fileCfg.Set("default_wallet", name); err != nil {
			return err
		}
		if err := fileCfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Default wallet set to %q.", name)))
		return nil
	},
}

func init() {
	walletAddCmd.Flags().StringVar(&walletKeyFlag, "key", "", "hex private key for a signing wallet")
	walletCmd.AddCommand(walletAddCmd, walletGenerateCmd, walletListCmd, walletRemoveCmd, walletUseCmd)
}
