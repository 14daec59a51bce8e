// Package config loads the stratum server configuration.
//
// Configuration lives in config.yaml under the stratum home directory
// (~/.stratum by default, STRATUM_HOME overrides). A missing file is not
// an error: every field has a default and the file only overrides what it
// names.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CacheConfig bounds the resolved-context cache.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
	TTLSeconds int `yaml:"ttl_seconds"`
}

// TTL returns the cache entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// DelegationConfig controls how delegated context writes are resolved.
type DelegationConfig struct {
	// AutoApprove merges a delegation immediately when every top-level
	// key of its payload appears in SafeKeys. Anything touching a key
	// outside the list stays pending for an explicit approve.
	AutoApprove bool     `yaml:"auto_approve"`
	SafeKeys    []string `yaml:"safe_keys"`
}

// Config holds the runtime configuration for the stratum server.
type Config struct {
	HomeDir string `yaml:"-"`

	// DataDir is where the SQLite database lives. Defaults to HomeDir.
	DataDir string `yaml:"data_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Cache      CacheConfig      `yaml:"cache"`
	Delegation DelegationConfig `yaml:"delegation"`
}

// HomeDir returns the stratum home directory: $STRATUM_HOME when set,
// otherwise ~/.stratum.
func HomeDir() string {
	if override := os.Getenv("STRATUM_HOME"); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".stratum")
}

// Load reads the configuration from the default home directory.
func Load() (Config, error) {
	return LoadFrom(HomeDir())
}

// LoadFrom reads config.yaml under the given home directory, creating the
// directory if needed. Values absent from the file keep their defaults.
func LoadFrom(home string) (Config, error) {
	cfg := defaultConfig(home)

	if err := os.MkdirAll(home, 0o755); err != nil {
		return cfg, fmt.Errorf("create stratum home: %w", err)
	}

	path := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config.yaml: %w", err)
		}
	} else if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config.yaml: %w", err)
		}
	}

	normalize(&cfg)
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func defaultConfig(home string) Config {
	return Config{
		HomeDir:  home,
		DataDir:  home,
		LogLevel: "info",
		Cache: CacheConfig{
			MaxEntries: 512,
			TTLSeconds: 300,
		},
		Delegation: DelegationConfig{
			AutoApprove: true,
			SafeKeys:    []string{"conventions", "naming", "glossary"},
		},
	}
}

func normalize(cfg *Config) {
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = cfg.HomeDir
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = 512
	}
	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = 300
	}
	for i, key := range cfg.Delegation.SafeKeys {
		cfg.Delegation.SafeKeys[i] = strings.TrimSpace(key)
	}
}

func (c Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q: must be one of: debug, info, warn, error", c.LogLevel)
	}
	for _, key := range c.Delegation.SafeKeys {
		if key == "" {
			return fmt.Errorf("delegation.safe_keys contains an empty key")
		}
	}
	return nil
}

// SlogLevel maps the configured log level onto a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
