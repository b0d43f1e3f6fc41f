package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"github.com/rs/zerolog"
)

const (
	defaultConnector     = ConnectorInjected
	defaultHostURL       = "ws://127.0.0.1:8546"
	defaultNodeURL       = "http://127.0.0.1:8545"
	defaultNodeSelection = "fastest"
	defaultPollInterval  = 4
	defaultWatchInterval = 10
	defaultLogLevel      = "warn"

	configFile    = "config.json"
	walletsFile   = "wallets.json"
	flagsFile     = "session.json"
	contractsFile = "contracts.json"
)

// ErrInvalidConfig is returned for values that fail validation.
var ErrInvalidConfig = errors.New("invalid config")

// Keys lists the settable config keys.
var Keys = []string{"host_url", "node_url", "node_selection", "default_connector", "default_wallet", "poll_interval", "watch_interval", "log_level", "legacy_races"}

// Load reads config from dir (or creates defaults) and applies ETHQ_*
// environment overrides. dir defaults to ~/.ethq.
func Load(dir string) (*Config, error) {
	fileCfg, err := LoadFile(dir)
	if err != nil {
		return nil, err
	}

	envCfg := &Config{}
	if err := parseEnv(envCfg); err != nil {
		return nil, err
	}

	// Earlier sources win: env over file (file already carries the defaults).
	cfg := &Config{}
	for _, src := range []*Config{envCfg, fileCfg} {
		if err := mergo.Merge(cfg, src); err != nil {
			return nil, fmt.Errorf("merging config: %w", err)
		}
	}
	cfg.configDir = fileCfg.configDir

	return cfg, cfg.validate()
}

// LoadFile reads config.json from dir over the defaults, ignoring the
// environment. Use it when the result is going to be saved.
func LoadFile(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".ethq")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.configDir = dir
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := c.validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Set assigns a config key from its string form.
func (c *Config) Set(key, value string) error {
	switch key {
	case "host_url":
		c.HostURL = value
	case "node_url":
		c.NodeURL = value
	case "node_selection":
		c.NodeSelection = strings.ToLower(value)
	case "default_connector":
		c.DefaultConnector = value
	case "default_wallet":
		c.DefaultWallet = value
	case "poll_interval", "watch_interval":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number of seconds", ErrInvalidConfig, key)
		}
		if key == "poll_interval" {
			c.PollInterval = n
		} else {
			c.WatchInterval = n
		}
	case "log_level":
		c.LogLevel = strings.ToLower(value)
	case "legacy_races":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: legacy_races must be true or false", ErrInvalidConfig)
		}
		c.LegacyRaces = b
	default:
		return fmt.Errorf("%w: unknown key %q (known: %s)", ErrInvalidConfig, key, strings.Join(Keys, ", "))
	}
	return c.validate()
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is where keystore wallet metadata lives.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// FlagsPath is where connector "was connected" flags live.
func (c *Config) FlagsPath() string {
	return filepath.Join(c.configDir, flagsFile)
}

// ContractsPath is where named contracts live.
func (c *Config) ContractsPath() string {
	return filepath.Join(c.configDir, contractsFile)
}

// Level returns the configured log level.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.WarnLevel
	}
	return lvl
}

func (c *Config) validate() error {
	var errs []error
	if !slices.Contains([]string{ConnectorInjected, ConnectorKeystore}, c.DefaultConnector) {
		errs = append(errs, fmt.Errorf("%w: default_connector %q must be %q or %q", ErrInvalidConfig, c.DefaultConnector, ConnectorInjected, ConnectorKeystore))
	}
	if !slices.Contains([]string{"fastest", "failover"}, c.NodeSelection) {
		errs = append(errs, fmt.Errorf("%w: node_selection %q must be fastest or failover", ErrInvalidConfig, c.NodeSelection))
	}
	if c.PollInterval < 0 || c.WatchInterval < 0 {
		errs = append(errs, fmt.Errorf("%w: intervals must not be negative", ErrInvalidConfig))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err))
	}
	return errors.Join(errs...)
}

func defaults(dir string) *Config {
	return &Config{
		HostURL:          defaultHostURL,
		NodeURL:          defaultNodeURL,
		NodeSelection:    defaultNodeSelection,
		DefaultConnector: defaultConnector,
		PollInterval:     defaultPollInterval,
		WatchInterval:    defaultWatchInterval,
		LogLevel:         defaultLogLevel,
		configDir:        dir,
	}
}
