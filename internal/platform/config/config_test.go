package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.StateBackend != StateBackendFile || cfg.TickInterval != 30*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DBPath != filepath.Join(dir, ".companion", "companion.db") {
		t.Fatalf("unexpected db path: %s", cfg.DBPath)
	}
	if cfg.CatalogPath != filepath.Join(dir, ".companion", "catalog.yaml") {
		t.Fatalf("unexpected catalog path: %s", cfg.CatalogPath)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companion.yaml")
	body := "state_backend: sqlite\ntick_interval: 10s\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("COMPANION_LOG_LEVEL", "warn")
	cfg, err := Load(dir, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StateBackend != StateBackendSQLite || cfg.TickInterval != 10*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("env must override file, got %s", cfg.LogLevel)
	}
}

func TestLoadRejectsMissingExplicitFileAndBadBackend(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir, filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("explicit missing config should fail")
	}
	t.Setenv("COMPANION_STATE_BACKEND", "redis")
	if _, err := Load(dir, ""); err == nil {
		t.Fatalf("unknown backend should fail validation")
	}
	if _, err := New(""); err == nil {
		t.Fatalf("empty data dir should fail")
	}
}
