package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// --- HomeDir ---

func TestHomeDir_EnvOverride(t *testing.T) {
	t.Setenv("STRATUM_HOME", "/tmp/stratum-test-home")
	if got := HomeDir(); got != "/tmp/stratum-test-home" {
		t.Errorf("HomeDir = %s, want /tmp/stratum-test-home", got)
	}
}

func TestHomeDir_DefaultsUnderUserHome(t *testing.T) {
	t.Setenv("STRATUM_HOME", "")
	got := HomeDir()
	if filepath.Base(got) != ".stratum" {
		t.Errorf("HomeDir = %s, want a .stratum directory", got)
	}
}

// --- LoadFrom ---

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()

	cfg, err := LoadFrom(home)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.HomeDir != home || cfg.DataDir != home {
		t.Errorf("HomeDir/DataDir = %s/%s, want both %s", cfg.HomeDir, cfg.DataDir, home)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if cfg.Cache.MaxEntries != 512 || cfg.Cache.TTLSeconds != 300 {
		t.Errorf("Cache = %+v, want 512 entries / 300s", cfg.Cache)
	}
	if !cfg.Delegation.AutoApprove {
		t.Error("Delegation.AutoApprove should default to true")
	}
	if len(cfg.Delegation.SafeKeys) == 0 {
		t.Error("Delegation.SafeKeys should have defaults")
	}
}

func TestLoadFrom_CreatesHomeDir(t *testing.T) {
	home := filepath.Join(t.TempDir(), "nested", "home")

	if _, err := LoadFrom(home); err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	info, err := os.Stat(home)
	if err != nil {
		t.Fatalf("home dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("home path is not a directory")
	}
}

func TestLoadFrom_FileOverrides(t *testing.T) {
	home := t.TempDir()
	writeConfig(t, home, `
data_dir: /var/lib/stratum
log_level: debug
cache:
  max_entries: 64
  ttl_seconds: 30
delegation:
  auto_approve: false
  safe_keys: [conventions]
`)

	cfg, err := LoadFrom(home)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.DataDir != "/var/lib/stratum" {
		t.Errorf("DataDir = %s, want /var/lib/stratum", cfg.DataDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.Cache.MaxEntries != 64 || cfg.Cache.TTLSeconds != 30 {
		t.Errorf("Cache = %+v, want 64 entries / 30s", cfg.Cache)
	}
	if cfg.Delegation.AutoApprove {
		t.Error("AutoApprove should be off")
	}
	if len(cfg.Delegation.SafeKeys) != 1 || cfg.Delegation.SafeKeys[0] != "conventions" {
		t.Errorf("SafeKeys = %v, want [conventions]", cfg.Delegation.SafeKeys)
	}
}

func TestLoadFrom_PartialFileKeepsOtherDefaults(t *testing.T) {
	home := t.TempDir()
	writeConfig(t, home, "log_level: warn\n")

	cfg, err := LoadFrom(home)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %s, want warn", cfg.LogLevel)
	}
	if cfg.Cache.MaxEntries != 512 {
		t.Errorf("Cache.MaxEntries = %d, want untouched default 512", cfg.Cache.MaxEntries)
	}
	if !cfg.Delegation.AutoApprove {
		t.Error("AutoApprove default lost on partial file")
	}
}

func TestLoadFrom_ZeroCacheValuesFallBackToDefaults(t *testing.T) {
	home := t.TempDir()
	writeConfig(t, home, `
cache:
  max_entries: 0
  ttl_seconds: 0
`)

	cfg, err := LoadFrom(home)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Cache.MaxEntries != 512 || cfg.Cache.TTLSeconds != 300 {
		t.Errorf("Cache = %+v, want defaults for zero values", cfg.Cache)
	}
}

func TestLoadFrom_CorruptYAML(t *testing.T) {
	home := t.TempDir()
	writeConfig(t, home, "cache: [not: a: mapping")

	_, err := LoadFrom(home)
	if err == nil {
		t.Fatal("LoadFrom should fail on corrupt YAML")
	}
	if !strings.Contains(err.Error(), "parse config.yaml") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadFrom_InvalidLogLevel(t *testing.T) {
	home := t.TempDir()
	writeConfig(t, home, "log_level: verbose\n")

	_, err := LoadFrom(home)
	if err == nil {
		t.Fatal("LoadFrom should reject unknown log levels")
	}
	if !strings.Contains(err.Error(), "must be one of") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadFrom_NormalizesLogLevelCase(t *testing.T) {
	home := t.TempDir()
	writeConfig(t, home, "log_level: \" DEBUG \"\n")

	cfg, err := LoadFrom(home)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

// --- Derived values ---

func TestCacheTTL(t *testing.T) {
	c := CacheConfig{TTLSeconds: 90}
	if got := c.TTL(); got != 90*time.Second {
		t.Errorf("TTL = %v, want 90s", got)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		cfg := Config{LogLevel: tt.level}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%s) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

// --- helpers ---

func writeConfig(t *testing.T, home, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config.yaml: %v", err)
	}
}
