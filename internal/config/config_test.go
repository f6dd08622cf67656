package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromMissingReturnsDefaults(t *testing.T) {
	t.Setenv("TRIPBURN_REMOTE_URL", "")
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.General.HomeSymbol != "£" || cfg.Remote.DebounceMS != 1500 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Remote.Enabled() {
		t.Error("remote enabled without a url")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Remote.URL = "https://example.supabase.co"
	cfg.Remote.OwnerID = "owner-1"
	cfg.Alerts.RotateSeconds = 9

	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got.Remote.URL != cfg.Remote.URL || got.Remote.OwnerID != "owner-1" {
		t.Errorf("remote = %+v", got.Remote)
	}
	if got.Alerts.RotateInterval() != 9*time.Second {
		t.Errorf("RotateInterval = %v, want 9s", got.Alerts.RotateInterval())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRIPBURN_REMOTE_URL", "https://env.example")
	t.Setenv("TRIPBURN_REMOTE_KEY", "k")
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Remote.URL != "https://env.example" || cfg.Remote.APIKey != "k" {
		t.Errorf("remote = %+v", cfg.Remote)
	}
}

func TestLoadFromInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[general\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestDebounceFallback(t *testing.T) {
	if got := (RemoteConfig{}).Debounce(); got != 1500*time.Millisecond {
		t.Errorf("Debounce() = %v, want 1.5s", got)
	}
}

func TestDataDirOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.General.DataDir = "/tmp/tb"
	if got := DBPath(cfg); got != "/tmp/tb/tripburn.db" {
		t.Errorf("DBPath = %q", got)
	}
}
