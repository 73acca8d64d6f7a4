// Package config loads and persists panopticon configuration.
// Configuration lives in a single JSON file under ~/.panopticon; a missing
// file yields defaults so a fresh install needs no setup step.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"panopticon/internal/paths"
)

// Config represents the complete panopticon configuration (v1 schema)
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	CacheDir string `json:"cacheDir" mapstructure:"cacheDir"`

	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis"`
	Fetch    FetchConfig    `json:"fetch" mapstructure:"fetch"`
	History  HistoryConfig  `json:"history" mapstructure:"history"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// AnalysisConfig controls language detection and analyzer dispatch
type AnalysisConfig struct {
	MinConfidence      float64 `json:"minConfidence" mapstructure:"minConfidence"`
	ToolTimeoutSeconds int     `json:"toolTimeoutSeconds" mapstructure:"toolTimeoutSeconds"`
	MaxParallelTools   int     `json:"maxParallelTools" mapstructure:"maxParallelTools"`
	MaxFileSizeBytes   int64   `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
	OverlayPath        string  `json:"overlayPath" mapstructure:"overlayPath"`
}

// FetchConfig controls workspace revalidation behavior.
// Strict turns a fetch failure on a cached slot into a request failure
// instead of serving the stale copy.
type FetchConfig struct {
	Strict bool `json:"strict" mapstructure:"strict"`
}

// HistoryConfig controls the run history store
type HistoryConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
	MaxRuns int    `json:"maxRuns" mapstructure:"maxRuns"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		CacheDir: paths.DefaultCacheRoot(),
		Analysis: AnalysisConfig{
			MinConfidence:      0.1,
			ToolTimeoutSeconds: 120,
			MaxParallelTools:   4,
			MaxFileSizeBytes:   1000000,
		},
		Fetch: FetchConfig{
			Strict: false,
		},
		History: HistoryConfig{
			Enabled: true,
			MaxRuns: 200,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <dir>/config.json. An empty dir means
// the user config directory. A missing file yields DefaultConfig.
func LoadConfig(dir string) (*Config, error) {
	if dir == "" {
		var err error
		dir, err = paths.ConfigDir()
		if err != nil {
			return nil, err
		}
	}

	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("cacheDir", paths.DefaultCacheRoot())
	v.SetDefault("analysis.minConfidence", 0.1)
	v.SetDefault("analysis.toolTimeoutSeconds", 120)
	v.SetDefault("analysis.maxParallelTools", 4)
	v.SetDefault("analysis.maxFileSizeBytes", 1000000)
	v.SetDefault("fetch.strict", false)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.maxRuns", 200)
	v.SetDefault("logging.format", "human")
	v.SetDefault("logging.level", "info")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		// If config doesn't exist, return default config
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to <dir>/config.json, creating dir if needed.
func (c *Config) Save(dir string) error {
	if dir == "" {
		var err error
		dir, err = paths.ConfigDir()
		if err != nil {
			return err
		}
	}
	if err := paths.EnsureDir(dir); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Analysis.MinConfidence < 0 || c.Analysis.MinConfidence > 1 {
		return &ConfigError{Field: "analysis.minConfidence", Message: "must be within [0,1]"}
	}
	if c.Analysis.ToolTimeoutSeconds <= 0 {
		return &ConfigError{Field: "analysis.toolTimeoutSeconds", Message: "must be positive"}
	}
	if c.Analysis.MaxParallelTools <= 0 {
		return &ConfigError{Field: "analysis.maxParallelTools", Message: "must be positive"}
	}
	if c.Analysis.MaxFileSizeBytes <= 0 {
		return &ConfigError{Field: "analysis.maxFileSizeBytes", Message: "must be positive"}
	}
	if c.History.Enabled && c.History.MaxRuns <= 0 {
		return &ConfigError{Field: "history.maxRuns", Message: "must be positive when history is enabled"}
	}
	switch c.Logging.Format {
	case "", "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// HistoryLocation resolves the history database path, falling back to the
// default under the config directory.
func (c *Config) HistoryLocation() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	return paths.DefaultHistoryPath()
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
