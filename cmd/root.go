package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ethquery/internal/config"
	"github.com/Mohsinsiddi/ethquery/internal/logger"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/ethquery/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir        string
	cfg           *config.Config
	log           = logger.Nop()
	verbose       bool
	connectorFlag string
	walletFlag    string
	assumeYes     bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "ethq",
	Short: "Connect to an Ethereum wallet and query it from the terminal",
	Long: `ethq connects to a wallet, keeps track of the connected account and chain,
and lets you check balances, sign messages and call contracts through it.

Two connectors are available:
  injected   an EIP-1193 wallet endpoint (host_url), e.g. a local node with
             unlocked accounts or a wallet bridge over WebSocket
  keystore   a local key from the OS keychain, talking to node_url

The choice is persisted with: ethq config set default_connector <id>`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if connectorFlag != "" {
			cfg.DefaultConnector = connectorFlag
		}
		if walletFlag != "" {
			cfg.DefaultWallet = walletFlag
		}

		level := cfg.Level()
		if verbose {
			level = zerolog.DebugLevel
		}
		log = logger.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: "15:04:05"}, "cli", level)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errLine(err))
		os.Exit(1)
	}
}

func init() {
	// ETHQ_CONFIG_DIR overrides the --config default.
	if envDir := os.Getenv("ETHQ_CONFIG_DIR"); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.ethq)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&connectorFlag, "connector", "", "connector to use: injected or keystore")
	rootCmd.PersistentFlags().StringVar(&walletFlag, "wallet", "", "keystore wallet name")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "approve wallet prompts without asking")

	rootCmd.AddCommand(
		statusCmd,
		connectCmd,
		disconnectCmd,
		watchCmd,
		balanceCmd,
		signCmd,
		verifyCmd,
		callCmd,
		writeCmd,
		sendCmd,
		contractCmd,
		chainsCmd,
		nodesCmd,
		configCmd,
		walletCmd,
	)
}
