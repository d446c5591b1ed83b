package app

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/ledgerly/ledgerly/internal/inventory"
	"github.com/ledgerly/ledgerly/internal/platform/db"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:"127.0.0.1:8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	DBDriver       string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN          string `envconfig:"DB_DSN" default:"file:ledgerly.db"`
	DBMaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"0"`

	// RedisAddr is optional. Empty disables the alert cache and background jobs.
	RedisAddr string `envconfig:"REDIS_ADDR" default:""`

	AuthJWTSecret string `envconfig:"AUTH_JWT_SECRET" default:""`
	AuthIssuer    string `envconfig:"AUTH_ISSUER" default:""`

	LedgerAllowNegativeStock bool          `envconfig:"LEDGER_ALLOW_NEGATIVE_STOCK" default:"true"`
	LedgerMaxRetries         int           `envconfig:"LEDGER_MAX_RETRIES" default:"3"`
	LedgerBatchConcurrency   int           `envconfig:"LEDGER_BATCH_CONCURRENCY" default:"4"`
	AlertsCacheTTL           time.Duration `envconfig:"ALERTS_CACHE_TTL" default:"5m"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"600"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the store or ledger cannot run with.
func (c *Config) Validate() error {
	switch db.Dialect(c.DBDriver) {
	case db.SQLite, db.Postgres:
	default:
		return fmt.Errorf("config: DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("config: DB_DSN must be provided")
	}
	if c.LedgerMaxRetries < 1 {
		return fmt.Errorf("config: LEDGER_MAX_RETRIES must be at least 1")
	}
	if c.LedgerBatchConcurrency < 1 {
		return fmt.Errorf("config: LEDGER_BATCH_CONCURRENCY must be at least 1")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("config: RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Store describes how to open the relational store.
func (c *Config) Store() db.Config {
	return db.Config{
		Driver:       db.Dialect(c.DBDriver),
		DSN:          c.DBDSN,
		MaxOpenConns: c.DBMaxOpenConns,
		MaxRetries:   c.LedgerMaxRetries,
	}
}

// Ledger returns the stock ledger policy.
func (c *Config) Ledger() inventory.ServiceConfig {
	return inventory.ServiceConfig{
		AllowNegativeStock: c.LedgerAllowNegativeStock,
		BatchConcurrency:   c.LedgerBatchConcurrency,
	}
}
