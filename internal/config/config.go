// Package config loads lexihash settings from flags, a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load, e.g.
// LEXIHASH_LOG_LEVEL sets log-level.
const EnvPrefix = "LEXIHASH_"

// Config holds all application configuration.
type Config struct {
	DB               string        `koanf:"db" validate:"required"`
	Listen           string        `koanf:"listen" validate:"required,hostname_port"`
	LogLevel         string        `koanf:"log-level" validate:"oneof=debug info warn error"`
	LogFormat        string        `koanf:"log-format" validate:"oneof=text json"`
	ReposDir         string        `koanf:"repos-dir" validate:"required"`
	ReminderInterval time.Duration `koanf:"reminder-interval" validate:"gte=0"`
	Seed             uint64        `koanf:"seed"`
}

// RegisterFlags adds every configuration key to fs with its default value.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML configuration file")
	fs.String("db", "lexihash.db", "Path to the SQLite database file")
	fs.String("listen", ":8080", "HTTP listen address")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("log-format", "text", "Log format (text, json)")
	fs.String("repos-dir", "repos", "Directory git sources are checked out into")
	fs.Duration("reminder-interval", time.Hour, "How often to check for due cards, 0 disables reminders")
	fs.Uint64("seed", 0, "Seed for example rotation, 0 seeds from the clock")
}

// Load builds the configuration. Values from the YAML file named by the
// config flag are overridden by LEXIHASH_* environment variables, which are
// overridden by flags set on the command line. A .env file in the working
// directory is loaded into the environment first.
func Load(fs *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	path, err := fs.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to read config flag: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Unchanged flags only fill keys no other provider set.
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", "-")
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
