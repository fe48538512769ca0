// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// the TradeBerg terminal client.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.tradeberg/config.toml
//   - ~/.tradeberg/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete client configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend connection settings
	Backend BackendConfig `toml:"backend" json:"backend"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Chart interpretation and export
	Chart ChartConfig `toml:"chart" json:"chart"`

	// Cache configuration
	Cache CacheConfig `toml:"cache" json:"cache"`

	// History archive configuration
	History HistoryConfig `toml:"history" json:"history"`
}

// BackendConfig contains TradeBerg backend connection settings.
type BackendConfig struct {
	// BaseURL of the backend API
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs for non-streaming requests
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// IdleTimeoutSecs is how long a live stream may stall before it is failed
	IdleTimeoutSecs int `toml:"idle_timeout_secs" json:"idle_timeout_secs"`
	// RequestsPerSecond paces outbound API calls
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "berg", "trade" or "strip"
	Theme string `toml:"theme" json:"theme"`
	// Width is the render width; 0 means follow the terminal
	Width int `toml:"width" json:"width"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// ShowSources displays the citation footer under grounded answers
	ShowSources bool `toml:"show_sources" json:"show_sources"`
}

// ChartConfig contains chart handling settings.
type ChartConfig struct {
	// ExtraTags adds fence tags to the default chart vocabulary
	ExtraTags []string `toml:"extra_tags" json:"extra_tags"`
	// ExportDir is where /chart exports write SVG files
	ExportDir string `toml:"export_dir" json:"export_dir"`
	// ExportWidth is the SVG viewport width for exports
	ExportWidth int `toml:"export_width" json:"export_width"`
}

// CacheConfig contains the local conversation cache settings.
type CacheConfig struct {
	// Enabled controls whether the on-disk cache is active
	Enabled bool `toml:"enabled" json:"enabled"`
	// Dir overrides the cache directory (empty = ~/.tradeberg/cache)
	Dir string `toml:"dir" json:"dir"`
	// TTLHours is the time-to-live for cached conversations
	TTLHours int `toml:"ttl_hours" json:"ttl_hours"`
}

// HistoryConfig contains the searchable history archive settings.
type HistoryConfig struct {
	// Enabled controls whether completed exchanges are archived
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path overrides the archive database (empty = ~/.tradeberg/history.db)
	Path string `toml:"path" json:"path"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Backend: BackendConfig{
			BaseURL:           "http://127.0.0.1:8787",
			TimeoutSecs:       30,
			IdleTimeoutSecs:   60,
			RequestsPerSecond: 4,
		},

		UI: UIConfig{
			Theme:       "berg",
			Width:       0,
			CompactMode: false,
			ShowSources: true,
		},

		Chart: ChartConfig{
			ExportWidth: 640,
		},

		Cache: CacheConfig{
			Enabled:  true,
			TTLHours: 24,
		},

		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the TradeBerg configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".tradeberg"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadFromPath(tomlPath)
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. The extension selects the decoder; anything but .json is
// treated as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON config from %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config from %s: %w", path, err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to the TOML config file.
func (c *Config) Save() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config for writing: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies TRADEBERG_* environment variables on top of the
// loaded values. Environment wins over files.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TRADEBERG_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("TRADEBERG_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Backend.TimeoutSecs = n
		}
	}
	if v := os.Getenv("TRADEBERG_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("TRADEBERG_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("TRADEBERG_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

// SetDefaults fills zero values left by a sparse config file.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = d.Backend.BaseURL
	}
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = d.Backend.TimeoutSecs
	}
	if c.Backend.IdleTimeoutSecs == 0 {
		c.Backend.IdleTimeoutSecs = d.Backend.IdleTimeoutSecs
	}
	if c.Backend.RequestsPerSecond == 0 {
		c.Backend.RequestsPerSecond = d.Backend.RequestsPerSecond
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.Chart.ExportWidth == 0 {
		c.Chart.ExportWidth = d.Chart.ExportWidth
	}
	if c.Cache.TTLHours == 0 {
		c.Cache.TTLHours = d.Cache.TTLHours
	}
}

// Validate rejects configurations the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url %q is not a valid URL", c.Backend.BaseURL)
	}

	switch c.UI.Theme {
	case "berg", "trade", "strip":
	default:
		return fmt.Errorf("ui.theme %q is not one of berg, trade, strip", c.UI.Theme)
	}

	if c.Backend.TimeoutSecs < 0 || c.Backend.IdleTimeoutSecs < 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.UI.Width < 0 {
		return fmt.Errorf("ui.width must not be negative")
	}
	return nil
}

// CacheDir resolves the cache directory, defaulting under the config dir.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache"), nil
}

// HistoryPath resolves the history archive path.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}
