// Package daemon wires the ledger engine, event store, metrics and HTTP API
// into a runnable process.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/leadfive-network/leadfive/internal/domain"
	"github.com/leadfive-network/leadfive/internal/engine"
)

// Config is the daemon configuration, loaded from ~/.leadfive/config.toml.
type Config struct {
	API    APIConfig    `toml:"api"`
	Ledger LedgerConfig `toml:"ledger"`
	Chain  ChainConfig  `toml:"chain"`
	Pools  PoolsConfig  `toml:"pools"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// LedgerConfig configures the ledger backend.
type LedgerConfig struct {
	// Mode selects the backend: "local" runs the in-memory engine with the
	// event log; "relay" serves read-only queries from a chain gateway.
	Mode string `toml:"mode"`

	// DataDir holds the event log database.
	DataDir string `toml:"data_dir"`

	// Root is the sponsorless root user address.
	Root string `toml:"root"`

	// RootTier is the package tier assigned to the root user.
	RootTier int `toml:"root_tier"`

	// Owner holds all administrative roles at startup.
	Owner string `toml:"owner"`

	// Weighting selects the pool split policy: "equal" or "team_weighted".
	Weighting string `toml:"weighting"`
}

// ChainConfig configures the relay gateway (Mode == "relay").
type ChainConfig struct {
	GatewayURL     string `toml:"gateway_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// PoolsConfig sets per-pool distribution intervals, in hours.
type PoolsConfig struct {
	LeaderIntervalHours int `toml:"leader_interval_hours"`
	ClubIntervalHours   int `toml:"club_interval_hours"`
	HelpIntervalHours   int `toml:"help_interval_hours"`

	// AutoDistribute runs the scheduler loop that distributes each pool
	// when its interval elapses.
	AutoDistribute bool `toml:"auto_distribute"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8080,
			Metrics: true,
		},
		Ledger: LedgerConfig{
			Mode:      "local",
			DataDir:   filepath.Join(home, ".leadfive"),
			Root:      "0x0000000000000000000000000000000000000001",
			RootTier:  4,
			Owner:     "0x0000000000000000000000000000000000000001",
			Weighting: "equal",
		},
		Chain: ChainConfig{
			TimeoutSeconds: 10,
		},
		Pools: PoolsConfig{
			LeaderIntervalHours: 14 * 24,
			ClubIntervalHours:   30 * 24,
			HelpIntervalHours:   7 * 24,
			AutoDistribute:      false,
		},
	}
}

// LoadConfig reads the config file at path, falling back to defaults for a
// missing file. Unset fields keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field consistency.
func (c Config) Validate() error {
	switch c.Ledger.Mode {
	case "local":
	case "relay":
		if c.Chain.GatewayURL == "" {
			return fmt.Errorf("config: relay mode requires chain.gateway_url")
		}
	default:
		return fmt.Errorf("config: unknown ledger mode %q", c.Ledger.Mode)
	}

	switch engine.PoolWeighting(c.Ledger.Weighting) {
	case engine.WeightEqual, engine.WeightTeamWeighted:
	default:
		return fmt.Errorf("config: unknown pool weighting %q", c.Ledger.Weighting)
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("config: api port %d out of range", c.API.Port)
	}
	return nil
}

// EngineConfig translates the daemon configuration into engine settings.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		Root:      domain.Address(c.Ledger.Root),
		RootTier:  c.Ledger.RootTier,
		Weighting: engine.PoolWeighting(c.Ledger.Weighting),
		DistributionIntervals: map[domain.PoolName]time.Duration{
			domain.PoolLeader: time.Duration(c.Pools.LeaderIntervalHours) * time.Hour,
			domain.PoolClub:   time.Duration(c.Pools.ClubIntervalHours) * time.Hour,
			domain.PoolHelp:   time.Duration(c.Pools.HelpIntervalHours) * time.Hour,
		},
	}
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".leadfive", "config.toml")
}
