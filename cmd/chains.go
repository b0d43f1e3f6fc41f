package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ethquery/internal/chain"
	"github.com/Mohsinsiddi/ethquery/internal/ui"
)

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List the chains ethq knows by name",
	Long: `List known chains. Any chain id works with the wallet; these only add
a display name, the native currency and an explorer link.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := chain.NewRegistry()
		t := ui.NewTable(
			ui.Column{Title: "Name", Width: 12},
			ui.Column{Title: "Display", Width: 18},
			ui.Column{Title: "Chain ID", Width: 10},
			ui.Column{Title: "Currency", Width: 9},
			ui.Column{Title: "Testnet", Width: 8},
		)
		for _, c := range reg.All() {
			testnet := ""
			if c.Testnet {
				testnet = "yes"
			}
			t.AddRow(c.Name, c.DisplayName, strconv.FormatInt(c.ChainID, 10), c.NativeCurrency, testnet)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		fmt.Fprintln(cmd.OutOrStdout(), ui.Meta(fmt.Sprintf("%d chains", len(reg.All()))))
		return nil
	},
}
