// Package config loads tripburn's TOML configuration and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all tripburn configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Remote     RemoteConfig     `toml:"remote"`
	Alerts     AlertsConfig     `toml:"alerts"`
	Logging    LoggingConfig    `toml:"logging"`
	Appearance AppearanceConfig `toml:"appearance"`
	Daemon     DaemonConfig     `toml:"daemon"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	HomeCurrency       string `toml:"home_currency"`
	HomeSymbol         string `toml:"home_symbol"`
	DefaultDestination string `toml:"default_destination,omitempty"`
	DataDir            string `toml:"data_dir,omitempty"`
}

// RemoteConfig holds the hosted backend settings. An empty URL disables sync.
type RemoteConfig struct {
	URL               string  `toml:"url,omitempty"`
	APIKey            string  `toml:"api_key,omitempty"`
	OwnerID           string  `toml:"owner_id,omitempty"`
	DebounceMS        int     `toml:"debounce_ms"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// AlertsConfig holds alert rotation settings.
type AlertsConfig struct {
	RotateSeconds int `toml:"rotate_seconds"`
}

// LoggingConfig holds log output settings. An empty File logs to stderr.
type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file,omitempty"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DaemonConfig holds background service settings.
type DaemonConfig struct {
	Addr string `toml:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			HomeCurrency: "GBP",
			HomeSymbol:   "£",
		},
		Remote: RemoteConfig{
			DebounceMS:        1500,
			RequestsPerSecond: 5,
			TimeoutSeconds:    15,
		},
		Alerts: AlertsConfig{RotateSeconds: 5},
		Logging: LoggingConfig{
			Level:      "warn",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Appearance: AppearanceConfig{Theme: "flexoki-dark"},
		Daemon:     DaemonConfig{Addr: "127.0.0.1:8787"},
	}
}

// Debounce returns the push debounce window.
func (c RemoteConfig) Debounce() time.Duration {
	if c.DebounceMS <= 0 {
		return 1500 * time.Millisecond
	}
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Timeout returns the per-request timeout.
func (c RemoteConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Enabled reports whether a remote backend is configured.
func (c RemoteConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

// RotateInterval returns how long each alert is shown.
func (c AlertsConfig) RotateInterval() time.Duration {
	if c.RotateSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.RotateSeconds) * time.Second
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tripburn")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tripburn")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the directory holding the database, honoring the config override.
func DataDir(cfg Config) string {
	if cfg.General.DataDir != "" {
		return expandHome(cfg.General.DataDir)
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "tripburn")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "tripburn")
}

// DBPath returns the database file path.
func DBPath(cfg Config) string {
	return filepath.Join(DataDir(cfg), "tripburn.db")
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// Load reads the default config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config at path, returning defaults if it doesn't exist.
// Environment overrides are applied on top.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the user or ConfigPath
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnv(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	ApplyEnv(&cfg)
	return cfg, nil
}

// Save writes the config to the default path.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to path.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // path comes from the user or ConfigPath
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// LoadDotEnv loads .env from the working directory and the config directory.
// Missing files are ignored and variables already set win.
func LoadDotEnv() {
	for _, p := range []string{".env", filepath.Join(ConfigDir(), ".env")} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// ApplyEnv overlays TRIPBURN_* environment variables on cfg.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("TRIPBURN_REMOTE_URL"); v != "" {
		cfg.Remote.URL = v
	}
	if v := os.Getenv("TRIPBURN_REMOTE_KEY"); v != "" {
		cfg.Remote.APIKey = v
	}
	if v := os.Getenv("TRIPBURN_OWNER_ID"); v != "" {
		cfg.Remote.OwnerID = v
	}
	if v := os.Getenv("TRIPBURN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
