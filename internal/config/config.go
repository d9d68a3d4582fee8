// Package config provides configuration loading and validation for the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/guards"
)

// EnvPrefix is prepended to every environment override, e.g. TENDER_MAX_RETRIES
const EnvPrefix = "TENDER"

// Config represents the orchestrator configuration. Values come from an
// optional YAML or JSON file, TENDER_* environment variables and defaults,
// in increasing order of precedence: defaults < file < environment.
type Config struct {
	DatabaseURL string `mapstructure:"database_url"` // PostgreSQL connection URL; empty selects the in-memory store

	MaxRetries       int `mapstructure:"max_retries"`       // Failed attempts allowed per step
	BatchConcurrency int `mapstructure:"batch_concurrency"` // Documents processed in parallel

	LogLevel  string `mapstructure:"log_level"`  // debug, info, warn, error
	LogFormat string `mapstructure:"log_format"` // json or console

	AnalysisMinConfidence float64 `mapstructure:"analysis_min_confidence"`
	CostBandMin           float64 `mapstructure:"cost_band_min"`
	CostBandMax           float64 `mapstructure:"cost_band_max"`
}

// Defaults returns the configuration used when nothing else is set
func Defaults() Config {
	s := guards.DefaultSettings()
	return Config{
		MaxRetries:            3,
		BatchConcurrency:      4,
		LogLevel:              "info",
		LogFormat:             "console",
		AnalysisMinConfidence: s.MinAnalysisConfidence,
		CostBandMin:           s.CostBandMin,
		CostBandMax:           s.CostBandMax,
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("database_url", d.DatabaseURL)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("batch_concurrency", d.BatchConcurrency)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("analysis_min_confidence", d.AnalysisMinConfidence)
	v.SetDefault("cost_band_min", d.CostBandMin)
	v.SetDefault("cost_band_max", d.CostBandMax)
}

// Load reads the configuration. path may be empty, in which case only
// defaults and the environment apply. The unprefixed DATABASE_URL is
// honoured when TENDER_DATABASE_URL is not set.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database_url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind database url: %w", err)
	}

	if path != "" {
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("config error: 'max_retries' must be at least 1")
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("config error: 'batch_concurrency' must be at least 1")
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "console":
	default:
		return fmt.Errorf("config error: unknown log_format %q", c.LogFormat)
	}
	if c.AnalysisMinConfidence < 0 || c.AnalysisMinConfidence > 1 {
		return fmt.Errorf("config error: 'analysis_min_confidence' must be between 0 and 1")
	}
	if c.CostBandMin <= 0 || c.CostBandMax <= 0 {
		return fmt.Errorf("config error: cost band bounds must be positive")
	}
	if c.CostBandMin >= c.CostBandMax {
		return fmt.Errorf("config error: 'cost_band_min' must be below 'cost_band_max'")
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
// CLI flags are applied on top of the result.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}

	if result.MaxRetries == 0 {
		result.MaxRetries = defaults.MaxRetries
	}
	if result.BatchConcurrency == 0 {
		result.BatchConcurrency = defaults.BatchConcurrency
	}

	if result.AnalysisMinConfidence == 0 {
		result.AnalysisMinConfidence = defaults.AnalysisMinConfidence
	}
	if result.CostBandMin == 0 {
		result.CostBandMin = defaults.CostBandMin
	}
	if result.CostBandMax == 0 {
		result.CostBandMax = defaults.CostBandMax
	}

	return result
}

// GuardSettings returns the guard thresholds of the configuration
func (c *Config) GuardSettings() guards.Settings {
	return guards.Settings{
		MinAnalysisConfidence: c.AnalysisMinConfidence,
		CostBandMin:           c.CostBandMin,
		CostBandMax:           c.CostBandMax,
	}
}
