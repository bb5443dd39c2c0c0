// Package config loads mapgen settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/campaign-map/internal/world"
)

// ErrInvalid is returned by Validate for unusable settings.
var ErrInvalid = errors.New("invalid config")

// Config holds everything the CLI needs to generate, persist and serve maps.
type Config struct {
	Seed        string          `yaml:"seed"`
	DBPath      string          `yaml:"db_path"`
	CatalogPath string          `yaml:"catalog_path"` // empty = embedded default
	LogLevel    string          `yaml:"log_level"`
	APIPort     int             `yaml:"api_port"`
	AdminKey    string          `yaml:"admin_key"`
	Generation  world.GenConfig `yaml:"generation"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Seed:       "campaign",
		DBPath:     "data/campaigns.db",
		LogLevel:   "info",
		APIPort:    8080,
		Generation: world.DefaultGenConfig(),
	}
}

// Load reads path over the defaults, applies env overrides and validates.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from MAPGEN_* and LOG_LEVEL variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("MAPGEN_SEED"); v != "" {
		c.Seed = v
	}
	if v := os.Getenv("MAPGEN_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("MAPGEN_CATALOG"); v != "" {
		c.CatalogPath = v
	}
	if v := os.Getenv("MAPGEN_ADMIN_KEY"); v != "" {
		c.AdminKey = v
	}
	if v := os.Getenv("MAPGEN_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: MAPGEN_PORT %q: %w", ErrInvalid, v, err)
		}
		c.APIPort = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks the settings and the generation parameters.
func (c *Config) Validate() error {
	if c.Seed == "" {
		return fmt.Errorf("%w: seed is empty", ErrInvalid)
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		return fmt.Errorf("%w: api_port %d out of range", ErrInvalid, c.APIPort)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if err := c.Generation.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// SlogLevel returns the configured log level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: unknown log_level %q", ErrInvalid, s)
}
