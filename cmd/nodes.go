package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ethquery/internal/rpc"
	"github.com/Mohsinsiddi/ethquery/internal/ui"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Benchmark the nodes in node_url",
	Long: `Ping every node listed in node_url and show which one the keystore
connector would use under the current node_selection.

Examples:
  ethq config set node_url "https://eth.llamarpc.com,https://rpc.ankr.com/eth"
  ethq nodes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		urls := rpc.SplitURLs(cfg.NodeURL)
		if len(urls) == 0 {
			return errors.New("node_url is empty")
		}
		algo, err := rpc.ParseAlgorithm(cfg.NodeSelection)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		results := rpc.Benchmark(ctx, urls)

		t := ui.NewTable(
			ui.Column{Title: "Node", Width: 40},
			ui.Column{Title: "Latency", Width: 10},
			ui.Column{Title: "Block #", Width: 12},
			ui.Column{Title: "Status", Width: 10},
		)
		for _, r := range results {
			if !r.Healthy() {
				t.AddRow(r.URL, "-", "-", "down")
				continue
			}
			t.AddRow(r.URL, fmt.Sprintf("%dms", r.Latency.Milliseconds()), strconv.FormatUint(r.BlockNumber, 10), "healthy")
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, t.Render())

		winner, err := rpc.Pick(results, algo)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("%s would use %s", algo, winner.URL)))
		return nil
	},
}
