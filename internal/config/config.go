// Package config loads the Driftwood configuration file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/kimhsiao/driftwood/internal/errors"
)

type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Journal JournalConfig `yaml:"journal"`
	Logging LoggingConfig `yaml:"logging"`
}

type StorageConfig struct {
	// DataDir holds the sqlite database. Created on first open.
	DataDir string `yaml:"data_dir"`
}

type JournalConfig struct {
	// DefaultSealDuration is used when a seal command gives no unlock time.
	DefaultSealDuration time.Duration `yaml:"default_seal_duration"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Storage: StorageConfig{
			DataDir: filepath.Join(home, ".driftwood"),
		},
		Journal: JournalConfig{
			DefaultSealDuration: 365 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML file. A missing file is not an
// error: defaults apply. Environment variables override either source.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "failed to read config file", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "failed to parse config", err)
	}

	if dir := os.Getenv("DRIFTWOOD_DATA_DIR"); dir != "" {
		cfg.Storage.DataDir = dir
	}
	if level := os.Getenv("DRIFTWOOD_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Storage.DataDir == "" {
		return apperrors.New(apperrors.ErrConfigInvalid, "storage.data_dir must not be empty")
	}
	if c.Journal.DefaultSealDuration <= 0 {
		return apperrors.New(apperrors.ErrConfigInvalid, "journal.default_seal_duration must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return apperrors.Newf(apperrors.ErrConfigInvalid, "unknown logging.level %q", c.Logging.Level)
	}
	return nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "driftwood.yaml"
	}
	return filepath.Join(home, ".driftwood", "config.yaml")
}
