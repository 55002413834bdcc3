package main

import (
	"fmt"

	"github.com/AmareGatie/phase4/auth"
	"github.com/AmareGatie/phase4/config"
	"github.com/AmareGatie/phase4/observability"
	"github.com/AmareGatie/phase4/resilience"
	"github.com/AmareGatie/phase4/server"
	"github.com/AmareGatie/phase4/session"
)

// Config is the storefront configuration.
type Config struct {
	config.ServiceConfig `mapstructure:",squash"`

	Server        server.Config             `mapstructure:"server"`
	Auth          auth.Config               `mapstructure:"auth"`
	Session       session.Config            `mapstructure:"session"`
	Streams       resilience.BulkheadConfig `mapstructure:"streams"`
	Observability observability.Config      `mapstructure:"observability"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Session.ApplyDefaults()
	if c.Streams.Name == "" {
		c.Streams.Name = "event-streams"
	}
	c.Streams.ApplyDefaults()
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return nil
}

// loadConfig reads config.yml, .env and the environment. JWT_SECRET is
// accepted for the signing secret when AUTH_JWT_SECRET is unset.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	opts := []config.LoaderOption{config.WithEnvAlias("JWT_SECRET", "auth.jwt.secret")}
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
