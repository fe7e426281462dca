// Package config loads CLI configuration from SKILLCHAIN_* environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/flexigpt/skillchain-go/spec"
)

type Config struct {
	// RPCURL of the wallet bridge or node. Empty leaves the runtime without a
	// provider.
	RPCURL string `env:"SKILLCHAIN_RPC_URL"`

	// StateDir holds the badger database with the last connected address.
	// Empty keeps the record in memory.
	StateDir string `env:"SKILLCHAIN_STATE_DIR"`

	CredentialsFile    string        `env:"SKILLCHAIN_CREDENTIALS_FILE"`
	CredentialCacheTTL time.Duration `env:"SKILLCHAIN_CREDENTIAL_CACHE_TTL" envDefault:"5m"`

	ProviderTimeout time.Duration `env:"SKILLCHAIN_PROVIDER_TIMEOUT" envDefault:"30s"`
	PollInterval    time.Duration `env:"SKILLCHAIN_POLL_INTERVAL" envDefault:"4s"`

	MinLevel spec.Level `env:"SKILLCHAIN_MIN_LEVEL"`
	LogLevel slog.Level `env:"SKILLCHAIN_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates a Config.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("%w: provider timeout must be positive", spec.ErrInvalidArgument)
	}
	if c.PollInterval == 0 {
		return fmt.Errorf("%w: poll interval must be non-zero", spec.ErrInvalidArgument)
	}
	if c.CredentialCacheTTL < 0 {
		return fmt.Errorf("%w: credential cache ttl must not be negative", spec.ErrInvalidArgument)
	}
	return nil
}
