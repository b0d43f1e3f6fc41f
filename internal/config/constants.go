package config

import "time"

// GasLimitETHTransfer is the gas for a plain value transfer.
const GasLimitETHTransfer = uint64(21_000)

// Timeouts used by the CLI.
const (
	RequestTimeout   = 30 * time.Second // single wallet or node round trip
	ConnectTimeout   = 2 * time.Minute  // user may need to approve in the wallet
	TxConfirmTimeout = 3 * time.Minute  // transaction confirmation wait
)
