package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix namespaces the environment overrides.
const EnvPrefix = "INVESTD_"

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

func lookup(name string) (string, bool) {
	value, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// ApplyEnv overrides cfg with INVESTD_* environment variables. Malformed
// numeric or boolean values are ignored.
func ApplyEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	if v, ok := lookup("LISTEN_ADDRESS"); ok {
		cfg.ListenAddress = v
	}
	if v, ok := lookup("DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := lookup("GENESIS_FILE"); ok {
		cfg.GenesisFile = v
	}
	if v, ok := lookup("CONTRACT_LABEL"); ok {
		cfg.ContractLabel = v
	}
	if v, ok := lookup("ENV"); ok {
		cfg.Environment = v
	}
	if v, ok := lookup("ENABLE_CHAIN_API"); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.EnableChainAPI = parsed
		}
	}
	if v, ok := lookup("BOND_DENOM"); ok {
		cfg.Staking.BondDenom = v
	}
	if v, ok := lookup("UNBONDING_SECONDS"); ok {
		if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Staking.UnbondingSeconds = parsed
		}
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		cfg.Logging.Format = v
	}
	if v, ok := lookup("LOG_FILE"); ok {
		cfg.Logging.File = v
	}
	if v, ok := lookup("OTEL_ENDPOINT"); ok {
		cfg.Telemetry.Endpoint = v
	}
	if v, ok := lookup("OTEL_HEADERS"); ok {
		cfg.Telemetry.Headers = v
	}
	if v, ok := lookup("OTEL_TRACES"); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.Telemetry.Traces = parsed
		}
	}
	if v, ok := lookup("JOURNAL_DRIVER"); ok {
		cfg.Journal.Driver = v
	}
	if v, ok := lookup("JOURNAL_DSN"); ok {
		cfg.Journal.DSN = v
	}
	if v, ok := lookup("PAUSE_INVEST"); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.Pauses.Invest = parsed
		}
	}
}
