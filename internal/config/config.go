// Package config provides configuration management for the pattern scanner.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	apperrors "chartpattern-scanner/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Scanner ScannerConfig `mapstructure:"scanner"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ScannerConfig holds scan loop configuration.
type ScannerConfig struct {
	Workers      int    `mapstructure:"workers"`
	MinScore     int    `mapstructure:"min_score"`
	MaxResults   int    `mapstructure:"max_results"`
	RequireTrend bool   `mapstructure:"require_trend"`
	Resample     string `mapstructure:"resample"` // Go duration, e.g. "4h"; empty keeps source bars
}

// StorageConfig holds the SQLite result journal configuration.
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// MetricsConfig holds metrics export configuration.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // empty disables export
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/chartpattern-scanner"
	}
	return filepath.Join(home, ".config", "chartpattern-scanner")
}

// ConfigPath returns the config file path inside configDir.
func ConfigPath(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
// A template config.toml is written when none exists.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, fmt.Errorf("creating config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config.toml: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without touching the filesystem.
func Default() *Config {
	v := viper.New()
	setDefaults(v, DefaultConfigDir())
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("scanner.workers", 4)
	v.SetDefault("scanner.min_score", 80)
	v.SetDefault("scanner.max_results", 5)
	v.SetDefault("scanner.require_trend", false)
	v.SetDefault("scanner.resample", "")

	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.path", filepath.Join(configDir, "patterns.db"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "patternscan.log"))
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)

	v.SetDefault("metrics.textfile", "")
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PATTERNSCAN_MIN_SCORE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.NewValidationError("PATTERNSCAN_MIN_SCORE", v, "must be an integer")
		}
		cfg.Scanner.MinScore = n
	}
	if v := os.Getenv("PATTERNSCAN_MAX_RESULTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.NewValidationError("PATTERNSCAN_MAX_RESULTS", v, "must be an integer")
		}
		cfg.Scanner.MaxResults = n
	}
	if v := os.Getenv("PATTERNSCAN_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("PATTERNSCAN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// ResampleInterval parses Scanner.Resample. An empty value yields 0.
func (c *Config) ResampleInterval() (time.Duration, error) {
	if c.Scanner.Resample == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Scanner.Resample)
	if err != nil {
		return 0, apperrors.NewValidationError("scanner.resample", c.Scanner.Resample, err.Error())
	}
	return d, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Scanner.Workers < 1 {
		return fmt.Errorf("%w: %v", apperrors.ErrConfigInvalid,
			apperrors.NewValidationError("scanner.workers", c.Scanner.Workers, "must be at least 1"))
	}
	if c.Scanner.MinScore < 0 || c.Scanner.MinScore > 100 {
		return fmt.Errorf("%w: %v", apperrors.ErrConfigInvalid,
			apperrors.NewValidationError("scanner.min_score", c.Scanner.MinScore, "must be between 0 and 100"))
	}
	if c.Scanner.MaxResults < 0 {
		return fmt.Errorf("%w: %v", apperrors.ErrConfigInvalid,
			apperrors.NewValidationError("scanner.max_results", c.Scanner.MaxResults, "must be non-negative (0 = unlimited)"))
	}
	if d, err := c.ResampleInterval(); err != nil || d < 0 {
		return fmt.Errorf("%w: scanner.resample %q is not a positive duration", apperrors.ErrConfigInvalid, c.Scanner.Resample)
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		return fmt.Errorf("%w: storage.path is required when storage is enabled", apperrors.ErrConfigInvalid)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q (must be debug, info, warn or error)", apperrors.ErrConfigInvalid, c.Logging.Level)
	}
	return nil
}
