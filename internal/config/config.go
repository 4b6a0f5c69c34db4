// Package config provides configuration types, defaults, and persistence for flowdash.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Config holds all configuration options for flowdash.
type Config struct {
	ServerURL       string        `mapstructure:"server_url"`
	APIKey          string        `mapstructure:"api_key"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	AutoRefresh     bool          `mapstructure:"auto_refresh"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	StatsDB         string        `mapstructure:"stats_db"`
	UI              UIConfig      `mapstructure:"ui"`
	Theme           ThemeConfig   `mapstructure:"theme"`
	Tracing         TracingConfig `mapstructure:"tracing"`
}

// UIConfig holds user interface configuration options.
type UIConfig struct {
	ShowStatusBar bool `mapstructure:"show_status_bar"`
	Mouse         bool `mapstructure:"mouse"`
}

// ThemeConfig selects a color preset with optional per-token overrides.
type ThemeConfig struct {
	Preset string            `mapstructure:"preset"`
	Colors map[string]string `mapstructure:"colors"`
}

// TracingConfig configures the OpenTelemetry trace provider.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Exporter     string  `mapstructure:"exporter"` // "file", "stdout", or "otlp"
	FilePath     string  `mapstructure:"file_path"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		ServerURL:       "http://localhost:8089",
		RequestTimeout:  10 * time.Second,
		AutoRefresh:     true,
		RefreshInterval: 5 * time.Second,
		CacheTTL:        30 * time.Second,
		StatsDB:         "", // resolved relative to the config directory when empty
		UI: UIConfig{
			ShowStatusBar: true,
			Mouse:         true,
		},
		Theme: ThemeConfig{
			Preset: "default",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Validate checks the configuration for values that cannot work at runtime.
func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server_url %q: %w", c.ServerURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server_url %q: scheme must be http or https", c.ServerURL)
	}
	if c.RefreshInterval < time.Second {
		return fmt.Errorf("refresh_interval must be at least 1s, got %s", c.RefreshInterval)
	}
	switch c.Tracing.Exporter {
	case "", "file", "stdout", "otlp":
	default:
		return fmt.Errorf("unknown tracing exporter %q", c.Tracing.Exporter)
	}
	return nil
}

// defaultConfigTemplate is written when no config file exists anywhere.
const defaultConfigTemplate = `# flowdash configuration
# Base URL of the flowmark server API.
server_url: http://localhost:8089

# API key for authenticated endpoints. Leave empty for open installs.
api_key: ""

# Refresh the streams and bandwidth pages automatically.
auto_refresh: true
refresh_interval: 5s

# How long GET responses are served from the local cache.
cache_ttl: 30s

ui:
  show_status_bar: true
  mouse: true

theme:
  # Presets: default, dark, light
  preset: default
  # Per-token overrides, e.g.
  # colors:
  #   highlight: "#10B981"

tracing:
  enabled: false
  exporter: file
  sample_rate: 1.0
`

// WriteDefaultConfig writes the commented default config to path,
// creating parent directories as needed. Refuses to overwrite.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
