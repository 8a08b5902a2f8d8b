package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VECTORAIZ_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server != "127.0.0.1:9917" {
		t.Fatalf("unexpected default server: %q", cfg.Server)
	}
	if cfg.ReconnectDelay != 5 {
		t.Fatalf("unexpected default reconnect delay: %d", cfg.ReconnectDelay)
	}
	if cfg.Style != DefaultGlamourStyle {
		t.Fatalf("unexpected default style: %q", cfg.Style)
	}
	if cfg.DBPath == "" || cfg.ExportDir == "" || cfg.LogPath == "" {
		t.Fatalf("expected populated paths, got %+v", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := "server = \"unix:/tmp/assist.sock\"\nreconnect_delay = 9\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("VECTORAIZ_CONFIG", path)

	cfg, err := load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server != "unix:/tmp/assist.sock" {
		t.Fatalf("config file server ignored: %q", cfg.Server)
	}
	if cfg.ReconnectDelay != 9 {
		t.Fatalf("config file reconnect_delay ignored: %d", cfg.ReconnectDelay)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("server = \"file:1\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("VECTORAIZ_CONFIG", path)
	t.Setenv("VECTORAIZ_SERVER", "env:2")

	cfg, err := load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server != "env:2" {
		t.Fatalf("env override ignored: %q", cfg.Server)
	}
}
