// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the service reads from its environment.
type Config struct {
	// Environment names the deployment target (dev, staging, production).
	Environment string `env:"CATALOG_ENV" envDefault:"dev"`

	// CommandTimeout bounds how long the bus waits for a command handler.
	CommandTimeout time.Duration `env:"CATALOG_COMMAND_TIMEOUT" envDefault:"5s"`

	// MaxDrainPasses bounds cascading event redispatch after a commit.
	MaxDrainPasses int `env:"CATALOG_MAX_DRAIN_PASSES" envDefault:"25"`

	// PostgresDSN selects the Postgres write store. Empty means the
	// in-memory engine, which is only suitable for tests and demos.
	PostgresDSN string `env:"CATALOG_POSTGRES_DSN"`

	// ViewDSN is the sqlite path for the read model.
	ViewDSN string `env:"CATALOG_VIEW_DSN" envDefault:":memory:"`
}

// Load parses the configuration from process environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.CommandTimeout <= 0 {
		return Config{}, fmt.Errorf("command timeout must be positive, got %s", cfg.CommandTimeout)
	}
	if cfg.MaxDrainPasses <= 0 {
		return Config{}, fmt.Errorf("max drain passes must be positive, got %d", cfg.MaxDrainPasses)
	}
	return cfg, nil
}
