// Package config loads the tablemerge TOML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"tablemerge/internal/etl"
)

const (
	// DefaultConfigName is the file looked up in the user config directory.
	DefaultConfigName = "config.toml"
	// HistoryDBName is the run history database inside the state directory.
	HistoryDBName = "tablemerge.db"

	defaultLogLevel   = "info"
	defaultLogFormat  = "text"
	defaultDebounceMS = 500
)

// Config is the application configuration.
type Config struct {
	// StateDir holds the run history database.
	StateDir string `toml:"state_dir"`
	// ProfilesFile is an optional YAML file with extra merge profiles.
	ProfilesFile string `toml:"profiles_file"`
	// DefaultProfile is used when --method is not given.
	DefaultProfile string `toml:"default_profile"`
	// DisableHistory turns off the run history database.
	DisableHistory bool `toml:"disable_history"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	Writer WriterConfig `toml:"writer"`
	Watch  WatchConfig  `toml:"watch"`
}

// WriterConfig holds output defaults.
type WriterConfig struct {
	// ExtraColumns is error, drop or append.
	ExtraColumns string `toml:"extra_columns"`
	// Mode is replace or append, for database outputs.
	Mode string `toml:"mode"`
}

// WatchConfig configures merge --watch.
type WatchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// Debounce returns the watch debounce interval.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// DefaultConfigPath returns the config file path in the user config dir.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigName
	}
	return filepath.Join(dir, "tablemerge", DefaultConfigName)
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".tablemerge"
	}
	return filepath.Join(dir, "tablemerge")
}

// NewConfig returns a config with every default applied.
func NewConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// NewConfigFromToml loads cfgPath. A missing file at the default path
// yields the defaults; a missing explicit path is an error.
func NewConfigFromToml(cfgPath string) (*Config, error) {
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		if os.IsNotExist(err) && cfgPath == DefaultConfigPath() {
			return NewConfig(), nil
		}
		return nil, fmt.Errorf("failed to open config file %q: %w", cfgPath, err)
	}
	return Parse(data)
}

// Parse decodes TOML data, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.StateDir == "" {
		cfg.StateDir = defaultStateDir()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaultLogFormat
	}
	if cfg.Writer.ExtraColumns == "" {
		cfg.Writer.ExtraColumns = string(etl.ExtraColumnsError)
	}
	if cfg.Writer.Mode == "" {
		cfg.Writer.Mode = string(etl.SyncReplace)
	}
	if cfg.Watch.DebounceMS <= 0 {
		cfg.Watch.DebounceMS = defaultDebounceMS
	}
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if _, err := etl.ParseExtraColumnPolicy(c.Writer.ExtraColumns); err != nil {
		return fmt.Errorf("writer.extra_columns: %w", err)
	}
	switch etl.SyncMode(c.Writer.Mode) {
	case etl.SyncReplace, etl.SyncAppend:
	default:
		return fmt.Errorf("writer.mode: %q (want replace or append)", c.Writer.Mode)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format: %q (want text or json)", c.LogFormat)
	}
	return nil
}

// HistoryPath returns the run history database path.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.StateDir, HistoryDBName)
}
