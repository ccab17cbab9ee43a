// Package config resolves the CLI settings from a .env file, the
// environment and an optional ormato.yaml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ridoystarlord/ormato/database"
	"github.com/ridoystarlord/ormato/dialect"
)

// DefaultFile is read by Load when no path is given.
const DefaultFile = "ormato.yaml"

// Environment variables read by Load.
const (
	EnvDatabaseURL   = "DATABASE_URL"
	EnvDialect       = "ORMATO_DIALECT"
	EnvDriver        = "ORMATO_DRIVER"
	EnvMigrationsDir = "ORMATO_MIGRATIONS_DIR"
	EnvSchema        = "ORMATO_SCHEMA"
	EnvDebug         = "ORMATO_DEBUG"
)

// Config holds the resolved settings.
type Config struct {
	DatabaseURL   string `yaml:"database_url"`
	Dialect       string `yaml:"dialect"`
	Driver        string `yaml:"driver"`
	MigrationsDir string `yaml:"migrations_dir"`
	// Schema is a YAML schema file or a directory of Go models.
	Schema string `yaml:"schema"`
	Debug  bool   `yaml:"debug"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		MigrationsDir: "migrations",
		Schema:        "schema.yaml",
	}
}

// LoadEnv loads a .env file from the working directory into the
// environment. A missing file is not an error; it reports whether one was
// found.
func LoadEnv() bool {
	return godotenv.Load() == nil
}

// Load resolves the configuration. Values come from Default, then the
// YAML file at path (DefaultFile when empty; a missing default file is
// skipped), then the environment after loading .env. The dialect is
// inferred from the database URL when not set.
func Load(path string) (Config, error) {
	cfg := Default()
	LoadEnv()

	file := path
	if file == "" {
		file = DefaultFile
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", file, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == "":
	default:
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	override(&cfg.DatabaseURL, EnvDatabaseURL)
	override(&cfg.Dialect, EnvDialect)
	override(&cfg.Driver, EnvDriver)
	override(&cfg.MigrationsDir, EnvMigrationsDir)
	override(&cfg.Schema, EnvSchema)
	if v := os.Getenv(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvDebug, err)
		}
		cfg.Debug = debug
	}

	if cfg.Dialect != "" {
		name, err := dialect.Normalize(cfg.Dialect)
		if err != nil {
			return cfg, err
		}
		cfg.Dialect = name
	} else if cfg.DatabaseURL != "" {
		name, err := dialect.FromURL(cfg.DatabaseURL)
		if err != nil {
			return cfg, err
		}
		cfg.Dialect = name
	}
	return cfg, nil
}

func override(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// DatabaseOptions returns the options for database.Open, or an error when
// no database URL is configured.
func (c Config) DatabaseOptions() (database.Options, error) {
	if c.DatabaseURL == "" {
		return database.Options{}, fmt.Errorf("%s not set (in .env, %s or environment)", EnvDatabaseURL, DefaultFile)
	}
	return database.Options{URL: c.DatabaseURL, Dialect: c.Dialect, Driver: c.Driver}, nil
}
