package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Mohsinsiddi/ethquery/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, config.ConnectorInjected, cfg.DefaultConnector)
	assert.Equal(t, "ws://127.0.0.1:8546", cfg.HostURL)
	assert.Equal(t, 4, cfg.PollInterval)
	assert.Equal(t, 10, cfg.WatchInterval)
	assert.Equal(t, "fastest", cfg.NodeSelection)
	assert.Equal(t, zerolog.WarnLevel, cfg.Level())
	assert.False(t, cfg.LegacyRaces)
	assert.Equal(t, dir, cfg.Dir())
}

func TestSaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadFile(dir)
	require.NoError(t, err)

	cfg.DefaultConnector = config.ConnectorKeystore
	cfg.DefaultWallet = "mywallet"
	cfg.NodeURL = "https://rpc.example"
	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, config.ConnectorKeystore, reloaded.DefaultConnector)
	assert.Equal(t, "mywallet", reloaded.DefaultWallet)
	assert.Equal(t, "https://rpc.example", reloaded.NodeURL)
}

func TestSaveRestrictivePermissions(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadFile(dir)
	require.NoError(t, err)
	require.NoError(t, cfg.Save())

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o600))

	_, err := config.Load(dir)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// environment overrides
// ---------------------------------------------------------------------------

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadFile(dir)
	require.NoError(t, err)
	cfg.HostURL = "ws://file:8546"
	cfg.DefaultWallet = "from-file"
	require.NoError(t, cfg.Save())

	t.Setenv("ETHQ_HOST_URL", "ws://env:8546")
	t.Setenv("ETHQ_POLL_INTERVAL", "1")
	t.Setenv("ETHQ_LEGACY_RACES", "true")

	got, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "ws://env:8546", got.HostURL)
	assert.Equal(t, 1, got.PollInterval)
	assert.True(t, got.LegacyRaces)
	assert.Equal(t, "from-file", got.DefaultWallet)
}

func TestLoadFileIgnoresEnv(t *testing.T) {
	t.Setenv("ETHQ_HOST_URL", "ws://env:8546")

	cfg, err := config.LoadFile(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:8546", cfg.HostURL)
}

func TestEnvBadValue(t *testing.T) {
	t.Setenv("ETHQ_POLL_INTERVAL", "soon")

	_, err := config.Load(t.TempDir())
	assert.Error(t, err)
}

func TestEnvInvalidConnector(t *testing.T) {
	t.Setenv("ETHQ_CONNECTOR", "walletconnect")

	_, err := config.Load(t.TempDir())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

// ---------------------------------------------------------------------------
// Set
// ---------------------------------------------------------------------------

func TestSet(t *testing.T) {
	cfg, err := config.LoadFile(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cfg.Set("default_connector", "keystore"))
	require.NoError(t, cfg.Set("watch_interval", "30"))
	require.NoError(t, cfg.Set("log_level", "DEBUG"))
	require.NoError(t, cfg.Set("legacy_races", "true"))
	require.NoError(t, cfg.Set("node_selection", "Failover"))

	assert.Equal(t, config.ConnectorKeystore, cfg.DefaultConnector)
	assert.Equal(t, 30, cfg.WatchInterval)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.True(t, cfg.LegacyRaces)
	assert.Equal(t, "failover", cfg.NodeSelection)
}

func TestSetRejectsBadValues(t *testing.T) {
	cfg, err := config.LoadFile(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, cfg.Set("nope", "1"), config.ErrInvalidConfig)
	assert.ErrorIs(t, cfg.Set("poll_interval", "fast"), config.ErrInvalidConfig)
	assert.ErrorIs(t, cfg.Set("poll_interval", "-1"), config.ErrInvalidConfig)
	assert.ErrorIs(t, cfg.Set("legacy_races", "maybe"), config.ErrInvalidConfig)
	assert.ErrorIs(t, cfg.Set("log_level", "loud"), config.ErrInvalidConfig)
	assert.ErrorIs(t, cfg.Set("node_selection", "random"), config.ErrInvalidConfig)
}

func TestPaths(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "wallets.json"), cfg.WalletsPath())
	assert.Equal(t, filepath.Join(dir, "session.json"), cfg.FlagsPath())
	assert.Equal(t, filepath.Join(dir, "contracts.json"), cfg.ContractsPath())
}
