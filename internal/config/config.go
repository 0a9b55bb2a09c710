// Package config defines service configuration and how it is loaded.
//
// Values are layered: built-in defaults, then an optional YAML file named by
// CONNECTHUB_CONFIG, then CONNECTHUB_* environment variables.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Store drivers understood by the service.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory commit ingestion queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the commit-hash idempotency cache. <= 0 is unbounded.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreDriver is "memory" or "sqlite".
	StoreDriver string `koanf:"store_driver"`
	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path"`

	// MatchLimit is how many candidates a match returns by default.
	MatchLimit int `koanf:"match_limit"`
	// MaxMatchLimit caps the per-request limit.
	MaxMatchLimit int `koanf:"max_match_limit"`

	// AuthSecret signs session tokens. Empty disables token auth.
	AuthSecret string `koanf:"auth_secret"`
	// TokenTTLHours is the session token lifetime.
	TokenTTLHours int `koanf:"token_ttl_hours"`

	// RateLimitRPS and RateLimitBurst configure the /match and /ingest limiter.
	// RateLimitRPS <= 0 disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// SeedFile optionally names a YAML file of employees and projects loaded at start.
	SeedFile string `koanf:"seed_file"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":9080",
		QueueSize:      10_000,
		WorkerCount:    runtime.NumCPU(),
		DedupeSize:     100_000,
		StoreDriver:    DriverMemory,
		SQLitePath:     "connecthub.db",
		MatchLimit:     5,
		MaxMatchLimit:  50,
		AuthSecret:     "",
		TokenTTLHours:  24,
		RateLimitRPS:   0,
		RateLimitBurst: 20,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != DriverMemory && c.StoreDriver != DriverSQLite:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == DriverSQLite && strings.TrimSpace(c.SQLitePath) == "":
		return fmt.Errorf("%w: sqlite_path is required for the sqlite driver", ErrInvalidConfig)
	case c.MatchLimit < 1:
		return fmt.Errorf("%w: match_limit must be positive", ErrInvalidConfig)
	case c.MaxMatchLimit < c.MatchLimit:
		return fmt.Errorf("%w: max_match_limit must be >= match_limit", ErrInvalidConfig)
	case c.TokenTTLHours < 1:
		return fmt.Errorf("%w: token_ttl_hours must be positive", ErrInvalidConfig)
	}
	return nil
}
