package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/AmareGatie/phase4/auth/jwt"
)

// DefaultVerifyTimeout bounds a single token verification.
const DefaultVerifyTimeout = 2 * time.Second

// Config holds authentication configuration.
type Config struct {
	// JWT configures token verification.
	JWT jwt.Config `mapstructure:"jwt"`

	// VerifyTimeout bounds token verification (default: 2s).
	VerifyTimeout time.Duration `mapstructure:"verify_timeout"`

	// SkipPaths bypass the gate entirely.
	SkipPaths []string `mapstructure:"skip_paths"`
}

// ApplyDefaults sets sensible defaults.
func (c *Config) ApplyDefaults() {
	c.JWT.ApplyDefaults()
	if c.VerifyTimeout <= 0 {
		c.VerifyTimeout = DefaultVerifyTimeout
	}
	if c.SkipPaths == nil {
		c.SkipPaths = []string{"/health", "/info"}
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.JWT.Validate(); err != nil {
		return fmt.Errorf("auth.jwt: %w", err)
	}
	if c.VerifyTimeout <= 0 {
		return errors.New("auth.verify_timeout must be positive")
	}
	return nil
}

// Describe returns a one-line summary for startup logs. The secret is never
// included.
func (c *Config) Describe() string {
	line := fmt.Sprintf("JWT(%s) verify_timeout=%s", c.JWT.Method, c.VerifyTimeout)
	if c.JWT.RequireExpiry {
		line += " require_expiry"
	}
	if c.JWT.Issuer != "" {
		line += " iss=" + c.JWT.Issuer
	}
	return line
}
