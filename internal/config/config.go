// Package config defines the scoreboard configuration and its loader.
package config

import (
	"fmt"
	"strings"

	"github.com/okian/scoreboard/internal/domain/timeframe"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// StorageDriver is sqlite or memory.
	StorageDriver string `koanf:"storage_driver"`

	// SQLiteFilename locates the database file when StorageDriver is sqlite.
	SQLiteFilename string `koanf:"sqlite_filename"`

	// MaxTopLimit caps the total parameter of the ranked and recent feeds.
	MaxTopLimit int `koanf:"max_top_limit"`

	// DefaultTimeframe is used when a ranked query names no timeframe.
	DefaultTimeframe string `koanf:"default_timeframe"`

	// SubmitRatePerSec and SubmitBurst bound score submissions per client IP.
	// A non-positive rate disables the limit.
	SubmitRatePerSec float64 `koanf:"submit_rate_per_sec"`
	SubmitBurst      int     `koanf:"submit_burst"`

	// CORSAllowOrigin is sent as Access-Control-Allow-Origin.
	CORSAllowOrigin string `koanf:"cors_allow_origin"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":5000",
		StorageDriver:    DriverSQLite,
		SQLiteFilename:   "scores.db",
		MaxTopLimit:      100,
		DefaultTimeframe: timeframe.TokenAllTime,
		SubmitRatePerSec: 2,
		SubmitBurst:      10,
		CORSAllowOrigin:  "*",
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.StorageDriver) {
	case DriverSQLite:
		if strings.TrimSpace(c.SQLiteFilename) == "" {
			return fmt.Errorf("%w: sqlite_filename must not be empty", ErrInvalidConfig)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: storage_driver %q is not one of %s|%s", ErrInvalidConfig, c.StorageDriver, DriverSQLite, DriverMemory)
	}
	if c.MaxTopLimit <= 0 {
		return fmt.Errorf("%w: max_top_limit must be positive, got %d", ErrInvalidConfig, c.MaxTopLimit)
	}
	if _, err := timeframe.Parse(c.DefaultTimeframe); err != nil {
		return fmt.Errorf("%w: default_timeframe: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q is not one of text|json", ErrInvalidConfig, c.LogFormat)
	}
	if c.SubmitRatePerSec > 0 && c.SubmitBurst <= 0 {
		return fmt.Errorf("%w: submit_burst must be positive when submit_rate_per_sec is set", ErrInvalidConfig)
	}
	return nil
}
