// Package config loads cstats settings from a TOML file in the XDG config
// directory and resolves the paths derived from them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Cache backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config holds all cstats configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Cache      CacheConfig      `toml:"cache"`
	Limits     LimitsConfig     `toml:"limits"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Appearance AppearanceConfig `toml:"appearance"`
	Pricing    PricingOverrides `toml:"pricing"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	ClaudeDir   string `toml:"claude_dir,omitempty"`
	DefaultDays int    `toml:"default_days"`
	// Timezone is an IANA zone name used for date bucketing; empty means local.
	Timezone string `toml:"timezone,omitempty"`
}

// CacheConfig selects where the stats cache is persisted.
type CacheConfig struct {
	Backend string `toml:"backend"`
	// Path overrides the backend's default location.
	Path string `toml:"path,omitempty"`
	// Write persists freshly computed caches.
	Write bool `toml:"write"`
}

// LimitsConfig bounds how much of each log file is read. Zero disables a limit.
type LimitsConfig struct {
	MaxLineBytes    int   `toml:"max_line_bytes"`
	MaxLinesPerFile int   `toml:"max_lines_per_file"`
	MaxBytesPerFile int64 `toml:"max_bytes_per_file"`
}

// DaemonConfig holds background service settings.
type DaemonConfig struct {
	Addr        string `toml:"addr"`
	IntervalSec int    `toml:"interval_sec"`
}

// AppearanceConfig holds dashboard settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
	// AutoRefreshSec recomputes the dashboard periodically; 0 disables it.
	AutoRefreshSec int `toml:"auto_refresh_sec"`
}

// PricingOverrides allows user-defined pricing for specific models.
type PricingOverrides struct {
	Overrides map[string]ModelPricingOverride `toml:"overrides,omitempty"`
}

// ModelPricingOverride holds per-model pricing overrides.
type ModelPricingOverride struct {
	InputPerMTok         *float64 `toml:"input_per_mtok,omitempty"`
	OutputPerMTok        *float64 `toml:"output_per_mtok,omitempty"`
	CacheWritePerMTok    *float64 `toml:"cache_write_per_mtok,omitempty"`
	CacheReadPerMTok     *float64 `toml:"cache_read_per_mtok,omitempty"`
	WebSearchPerThousand *float64 `toml:"web_search_per_thousand,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultDays: 30,
		},
		Cache: CacheConfig{
			Backend: BackendJSON,
			Write:   true,
		},
		Limits: LimitsConfig{
			MaxLineBytes: 2 * 1024 * 1024,
		},
		Daemon: DaemonConfig{
			Addr:        "127.0.0.1:17321",
			IntervalSec: 30,
		},
		Appearance: AppearanceConfig{
			Theme:          "flexoki-dark",
			AutoRefreshSec: 60,
		},
	}
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("cache.backend: unknown backend %q (want %q or %q)", c.Cache.Backend, BackendJSON, BackendSQLite)
	}
	if c.Limits.MaxLineBytes < 0 || c.Limits.MaxLinesPerFile < 0 || c.Limits.MaxBytesPerFile < 0 {
		return errors.New("limits: values must not be negative")
	}
	if c.Daemon.IntervalSec < 0 {
		return errors.New("daemon.interval_sec: must not be negative")
	}
	if c.Appearance.AutoRefreshSec < 0 {
		return errors.New("appearance.auto_refresh_sec: must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the configured time zone, or time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.General.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.General.Timezone)
	if err != nil {
		return nil, fmt.Errorf("general.timezone: %w", err)
	}
	return loc, nil
}

// ClaudeDirPath resolves the Claude data directory: the configured value,
// then $CLAUDE_CONFIG_DIR, then ~/.claude.
func (c Config) ClaudeDirPath() string {
	if c.General.ClaudeDir != "" {
		return expandHome(c.General.ClaudeDir)
	}
	if env := os.Getenv("CLAUDE_CONFIG_DIR"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude")
}

// CachePath resolves where the stats cache is stored for the selected
// backend. The JSON document lives next to the logs it summarizes; the
// SQLite database lives in the XDG cache directory.
func (c Config) CachePath() string {
	if c.Cache.Path != "" {
		return expandHome(c.Cache.Path)
	}
	if c.Cache.Backend == BackendSQLite {
		return filepath.Join(CacheDir(), "stats.db")
	}
	return filepath.Join(c.ClaudeDirPath(), "stats-cache.json")
}

func expandHome(p string) string {
	if len(p) >= 2 && p[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cstats")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cstats")
}

// CacheDir returns the XDG-compliant cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "cstats")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "cstats")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile reads the config at path over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // user-chosen config path
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, cfg.Validate()
}

// Save writes the config to the default path.
func Save(cfg Config) error {
	return SaveFile(ConfigPath(), cfg)
}

// SaveFile writes the config to path.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // user-chosen config path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
