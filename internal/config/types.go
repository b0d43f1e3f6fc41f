package config

// Connector ids selectable in the config.
const (
	ConnectorInjected = "injected"
	ConnectorKeystore = "keystore"
)

// Config holds all ethq configuration. Values come from config.json in the
// config directory, overridden by ETHQ_* environment variables.
type Config struct {
	// HostURL is the wallet endpoint used by the injected connector
	// (ws://, http:// or an IPC path).
	HostURL string `json:"host_url" env:"ETHQ_HOST_URL"`
	// NodeURL is the node the keystore wallet reads from and broadcasts to.
	// A comma separated list picks one per NodeSelection.
	NodeURL       string `json:"node_url" env:"ETHQ_NODE_URL"`
	NodeSelection string `json:"node_selection" env:"ETHQ_NODE_SELECTION"` // fastest or failover
	// DefaultConnector is "injected" or "keystore".
	DefaultConnector string `json:"default_connector" env:"ETHQ_CONNECTOR"`
	// DefaultWallet names the keystore wallet to expose.
	DefaultWallet string `json:"default_wallet" env:"ETHQ_WALLET"`
	PollInterval  int    `json:"poll_interval" env:"ETHQ_POLL_INTERVAL"`   // seconds
	WatchInterval int    `json:"watch_interval" env:"ETHQ_WATCH_INTERVAL"` // seconds
	LogLevel      string `json:"log_level" env:"ETHQ_LOG_LEVEL"`
	// LegacyRaces lets the last finished connect/disconnect win, even a stale one.
	LegacyRaces bool `json:"legacy_races" env:"ETHQ_LEGACY_RACES"`

	// internal: config dir path used for Save()
	configDir string
}
