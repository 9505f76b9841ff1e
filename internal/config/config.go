// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Alcove Contributors

// Package config loads gateway configuration from defaults, an optional YAML
// file, and command-line flags, in that order of precedence.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/alcove-web/alcove/internal/auth"
)

// Config holds the gateway configuration.
type Config struct {
	// HTTPAddr is the listen address for the site itself.
	HTTPAddr string `koanf:"http_addr"`

	// MetricsAddr is the listen address for metrics and health probes.
	// Empty disables the observability server.
	MetricsAddr string `koanf:"metrics_addr"`

	// DatabaseURL is the PostgreSQL connection string. Falls back to the
	// DATABASE_URL environment variable when unset.
	DatabaseURL string `koanf:"database_url"`

	// SessionSecret signs the session cookie. Falls back to the
	// SESSION_SECRET environment variable when unset. Required to serve.
	SessionSecret string `koanf:"session_secret"`

	// BcryptCost is the password hashing work factor.
	BcryptCost int `koanf:"bcrypt_cost"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log_format"`

	// AutoMigrate applies pending schema migrations at startup.
	AutoMigrate bool `koanf:"auto_migrate"`

	// Debug enables the HTTP framework's debug mode.
	Debug bool `koanf:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:    ":3000",
		MetricsAddr: "127.0.0.1:9100",
		BcryptCost:  auth.DefaultBcryptCost,
		LogFormat:   "json",
	}
}

// Load builds the configuration. path points at an optional YAML file
// (missing path is only an error when explicitly given); flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		// Flag names use dashes; config keys use underscores.
		provider := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "_"), value
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").
			With("operation", "unmarshal config").
			Wrap(err)
	}

	// Secrets come from the environment when the file and flags don't set them.
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	}

	return cfg, nil
}

// Validate checks that everything required to serve is present.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url (or DATABASE_URL) is required")
	}
	if c.SessionSecret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("session_secret (or SESSION_SECRET) is required")
	}
	if c.BcryptCost < auth.MinBcryptCost || c.BcryptCost > auth.MaxBcryptCost {
		return oops.Code("CONFIG_INVALID").
			With("bcrypt_cost", c.BcryptCost).
			Errorf("bcrypt_cost must be between %d and %d", auth.MinBcryptCost, auth.MaxBcryptCost)
	}
	return nil
}
