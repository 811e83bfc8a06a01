// Package config loads the formdee service configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formdee/pkg/editor"
	"github.com/goliatone/go-formdee/pkg/rules"
)

// Config is the top-level configuration file.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	HTTP       HTTPConfig       `yaml:"http"`
	Editor     EditorConfig     `yaml:"editor"`
	Validation ValidationConfig `yaml:"validation"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig points at the SQLite form store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// EditorConfig configures field editing sessions.
type EditorConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// ValidationConfig tunes the rule validator.
type ValidationConfig struct {
	MatchTimeout time.Duration `yaml:"match_timeout"`
	CacheSize    int           `yaml:"cache_size"`
}

// LogConfig selects the log level and optional log file.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{DSN: "formdee.db"},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Editor: EditorConfig{Debounce: editor.DefaultDebounce},
		Validation: ValidationConfig{
			MatchTimeout: rules.DefaultMatchTimeout,
			CacheSize:    rules.DefaultCacheSize,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configPath over the defaults. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Database.DSN == "" {
		c.Database.DSN = defaults.Database.DSN
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = defaults.HTTP.Addr
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = defaults.HTTP.ReadTimeout
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = defaults.HTTP.ShutdownTimeout
	}
	if c.Editor.Debounce == 0 {
		c.Editor.Debounce = defaults.Editor.Debounce
	}
	if c.Validation.MatchTimeout == 0 {
		c.Validation.MatchTimeout = defaults.Validation.MatchTimeout
	}
	if c.Validation.CacheSize == 0 {
		c.Validation.CacheSize = defaults.Validation.CacheSize
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// Validate checks the configuration. The error lists every invalid key.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = errs.Append("database.dsn", errors.New("dsn cannot be empty"))
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = errs.Append("http.addr", errors.New("addr cannot be empty"))
	}
	for i, origin := range c.HTTP.CORSOrigins {
		if strings.TrimSpace(origin) == "" {
			errs = errs.Append(fmt.Sprintf("http.cors_origins[%d]", i), errors.New("origin cannot be empty"))
		}
	}
	if c.HTTP.ReadTimeout < 0 {
		errs = errs.Append("http.read_timeout", errors.New("must not be negative"))
	}
	if c.HTTP.ShutdownTimeout < 0 {
		errs = errs.Append("http.shutdown_timeout", errors.New("must not be negative"))
	}
	if c.Editor.Debounce < 0 {
		errs = errs.Append("editor.debounce", errors.New("must not be negative"))
	}
	if c.Validation.MatchTimeout <= 0 {
		errs = errs.Append("validation.match_timeout", errors.New("must be positive"))
	}
	if c.Validation.CacheSize < 1 {
		errs = errs.Append("validation.cache_size", errors.New("must be at least 1"))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = errs.Append("log.level", fmt.Errorf("unknown level %q", c.Log.Level))
	}

	return errs.ToError()
}

// RuleOptions converts the validation section into validator options.
func (c *Config) RuleOptions() []rules.Option {
	return []rules.Option{
		rules.WithMatchTimeout(c.Validation.MatchTimeout),
		rules.WithCacheSize(c.Validation.CacheSize),
	}
}

// EditorOptions converts the editor section into editor options.
func (c *Config) EditorOptions() []editor.Option {
	return []editor.Option{editor.WithDebounce(c.Editor.Debounce)}
}
