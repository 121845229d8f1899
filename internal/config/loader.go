package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read by Load.
const (
	EnvPrefix      = "SCOREBOARD_"
	EnvConfigFile  = "SCOREBOARD_CONFIG"
	EnvLegacyDB    = "SQLITE_FILENAME"
	defaultDotenv  = ".env"
	legacyDBTarget = "sqlite_filename"
)

type loadOptions struct {
	file   string
	dotenv string
}

// LoadOption adjusts Load.
type LoadOption func(*loadOptions)

// WithFile loads the YAML file at path, taking precedence over SCOREBOARD_CONFIG.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		if path != "" {
			o.file = path
		}
	}
}

// WithDotenv reads environment defaults from path instead of ./.env.
func WithDotenv(path string) LoadOption {
	return func(o *loadOptions) {
		if path != "" {
			o.dotenv = path
		}
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) from WithFile or SCOREBOARD_CONFIG
//  3. legacy SQLITE_FILENAME
//  4. env (prefix SCOREBOARD_)
//
// A .env file, when present, only fills variables not already set in the
// process environment.
func Load(_ context.Context, opts ...LoadOption) (*Config, error) {
	o := loadOptions{dotenv: defaultDotenv}
	for _, opt := range opts {
		opt(&o)
	}

	if err := godotenv.Load(o.dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: dotenv %s: %w", ErrLoadConfig, o.dotenv, err)
	}

	k := koanf.New(".")

	path := o.file
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	legacy := env.Provider(EnvLegacyDB, ".", func(s string) string {
		if s != EnvLegacyDB {
			return ""
		}
		return legacyDBTarget
	})
	if err := k.Load(legacy, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// SCOREBOARD_MAX_TOP_LIMIT -> max_top_limit (flat keys).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal over a copy of the defaults; keys absent from every layer keep them.
	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
