package config

import (
	"fmt"
	"strings"
)

var (
	validLogLevels      = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}
	validLogFormats     = map[string]struct{}{"json": {}, "console": {}}
	validJournalDrivers = map[string]struct{}{"": {}, "postgres": {}, "sqlite": {}}
)

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: nil")
	}
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if strings.TrimSpace(c.Staking.BondDenom) == "" {
		return fmt.Errorf("staking: BondDenom required")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: values must not be negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst == 0 {
		return fmt.Errorf("rate_limit: Burst must be positive when RequestsPerSecond is set")
	}
	if _, ok := validLogLevels[strings.ToLower(c.Logging.Level)]; !ok {
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	if _, ok := validLogFormats[strings.ToLower(c.Logging.Format)]; !ok {
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}
	driver := strings.ToLower(strings.TrimSpace(c.Journal.Driver))
	if _, ok := validJournalDrivers[driver]; !ok {
		return fmt.Errorf("journal: unknown driver %q", c.Journal.Driver)
	}
	if driver != "" && strings.TrimSpace(c.Journal.DSN) == "" {
		return fmt.Errorf("journal: DSN required for driver %s", driver)
	}
	return nil
}
