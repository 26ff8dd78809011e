package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"stakebank/native/common"
)

type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	GenesisFile   string `toml:"GenesisFile"`
	ContractLabel string `toml:"ContractLabel"`
	Environment   string `toml:"Environment"`
	// EnableChainAPI exposes the settlement chain stand-in endpoints. Never
	// enable it outside local networks.
	EnableChainAPI bool      `toml:"EnableChainAPI"`
	Staking        Staking   `toml:"staking"`
	Pauses         Pauses    `toml:"pauses"`
	RateLimit      RateLimit `toml:"rate_limit"`
	Logging        Logging   `toml:"logging"`
	Telemetry      Telemetry `toml:"telemetry"`
	Journal        Journal   `toml:"journal"`
}

// Staking configures the settlement chain the contract delegates to.
type Staking struct {
	BondDenom        string `toml:"BondDenom"`
	UnbondingSeconds uint64 `toml:"UnbondingSeconds"`
}

// Pauses toggles module entry points off without a restart of the contract
// state.
type Pauses struct {
	Invest bool `toml:"Invest"`
	Bank   bool `toml:"Bank"`
	Token  bool `toml:"Token"`
}

// RateLimit bounds execute requests per sender.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

type Logging struct {
	Level      string `toml:"Level"`
	Format     string `toml:"Format"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

// Journal configures the event journal database. An empty driver disables
// the journal.
type Journal struct {
	Driver string `toml:"Driver"`
	DSN    string `toml:"DSN"`
}

// ModulePauses converts the pause toggles into the view consumed by the
// engines.
func (p Pauses) ModulePauses() common.Pauses {
	var paused []string
	if p.Invest {
		paused = append(paused, common.ModuleInvest)
	}
	if p.Bank {
		paused = append(paused, common.ModuleBank)
	}
	if p.Token {
		paused = append(paused, common.ModuleToken)
	}
	return common.NewPauses(paused)
}

// Default returns the configuration written when no file exists.
func Default() *Config {
	return &Config{
		ListenAddress: ":8090",
		DataDir:       "./investd-data",
		GenesisFile:   "",
		ContractLabel: "stakebank",
		Environment:   "local",
		Staking: Staking{
			BondDenom:        "ustake",
			UnbondingSeconds: 21 * 24 * 60 * 60,
		},
		RateLimit: RateLimit{RequestsPerSecond: 5, Burst: 10},
		Logging: Logging{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Telemetry: Telemetry{Endpoint: "localhost:4318", Insecure: true},
	}
}

// Load loads the configuration from the given path, writing the defaults
// there first when the file does not exist. Environment overrides are applied
// after decoding.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err := createDefault(path)
		if err != nil {
			return nil, err
		}
		ApplyEnv(cfg)
		return cfg, cfg.Validate()
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}

	ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
