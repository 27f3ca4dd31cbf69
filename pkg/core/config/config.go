// Package config loads process settings from the environment (optionally
// seeded from a .env file) and named deal presets from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"deal_underwriting/pkg/core/logging"
)

// Config holds settings shared by the API server and the CLI.
type Config struct {
	Addr               string        `env:"DEAL_ADDR" envDefault:":8080"`
	DatabaseURL        string        `env:"DATABASE_URL"`
	RedisAddr          string        `env:"REDIS_ADDR"`
	CacheDir           string        `env:"CACHE_DIR"`
	CacheTTL           time.Duration `env:"CACHE_TTL" envDefault:"24h"`
	LogDev             bool          `env:"LOG_DEV"`
	LogFile            string        `env:"LOG_FILE"`
	PresetsPath        string        `env:"PRESETS_PATH" envDefault:"config/presets.yaml"`
	SensitivityWorkers int           `env:"SENSITIVITY_WORKERS" envDefault:"0"`
	DiscountRate       float64       `env:"DISCOUNT_RATE" envDefault:"0"`
}

// CacheBackend names the result cache to use, in order of preference.
type CacheBackend string

const (
	CachePostgres CacheBackend = "postgres"
	CacheRedis    CacheBackend = "redis"
	CacheFile     CacheBackend = "file"
	CacheMemory   CacheBackend = "memory"
)

// Load reads envFiles (default ".env") into the environment, then parses
// the environment. Missing env files are fine; variables already set win.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SensitivityWorkers < 0 {
		return nil, fmt.Errorf("SENSITIVITY_WORKERS must not be negative, got %d", cfg.SensitivityWorkers)
	}
	return &cfg, nil
}

// Cache picks the backend from whichever connection settings are present.
func (c *Config) Cache() CacheBackend {
	switch {
	case c.DatabaseURL != "":
		return CachePostgres
	case c.RedisAddr != "":
		return CacheRedis
	case c.CacheDir != "":
		return CacheFile
	default:
		return CacheMemory
	}
}

// Logging maps the settings onto a logger config.
func (c *Config) Logging() logging.Config {
	lc := logging.DefaultConfig()
	lc.LogFile = c.LogFile
	lc.Development = c.LogDev
	return lc
}
