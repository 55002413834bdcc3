package session

import (
	"fmt"
	"time"
)

// Defaults for Config.
const (
	DefaultIdleTTL       = 30 * time.Minute
	DefaultSweepInterval = time.Minute
	DefaultMaxScopes     = 10000
)

// Config controls scope lifetime.
type Config struct {
	// IdleTTL is how long a scope survives without an Acquire.
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
	// SweepInterval is how often the Reaper looks for idle scopes.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// MaxScopes bounds the registry; the least recently used scope is
	// evicted to make room.
	MaxScopes int `mapstructure:"max_scopes"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.IdleTTL == 0 {
		c.IdleTTL = DefaultIdleTTL
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.MaxScopes <= 0 {
		c.MaxScopes = DefaultMaxScopes
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.IdleTTL < 0 {
		return fmt.Errorf("session: idle_ttl must not be negative, got %s", c.IdleTTL)
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("session: sweep_interval must not be negative, got %s", c.SweepInterval)
	}
	if c.MaxScopes < 0 {
		return fmt.Errorf("session: max_scopes must not be negative, got %d", c.MaxScopes)
	}
	return nil
}
