// Package config resolves settings from defaults, an optional config file,
// VECTORAIZ_ environment overrides, and command-line flags, in that order.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const DefaultGlamourStyle = "dark"

type AppConfig struct {
	// Server is the assistant gateway address, "host:port" or "unix:/path".
	Server string `mapstructure:"server"`

	// ReconnectDelay is the seconds between a connection drop and the next
	// reconnect attempt.
	ReconnectDelay int `mapstructure:"reconnect_delay"`

	DBPath    string `mapstructure:"db_path"`
	ExportDir string `mapstructure:"export_dir"`
	LogPath   string `mapstructure:"log_path"`
	Style     string `mapstructure:"style"`
}

// Parse loads file/env configuration and applies flag overrides.
func Parse() (AppConfig, error) {
	cfg, err := load()
	if err != nil {
		return cfg, err
	}

	flag.StringVar(&cfg.Server, "server", cfg.Server, "assistant gateway address (host:port or unix:/path)")
	flag.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the sqlite archive")
	flag.StringVar(&cfg.ExportDir, "export-dir", cfg.ExportDir, "directory for markdown exports")
	flag.StringVar(&cfg.LogPath, "log-path", cfg.LogPath, "diagnostic log file")
	flag.Parse()

	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return cfg, fmt.Errorf("create db dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return cfg, fmt.Errorf("create log dir: %w", err)
	}
	return cfg, nil
}

func load() (AppConfig, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return AppConfig{}, fmt.Errorf("resolve home directory: %w", err)
	}
	dataDir := filepath.Join(home, ".local", "share", "vectoraiz")

	v.SetDefault("server", "127.0.0.1:9917")
	v.SetDefault("reconnect_delay", 5)
	v.SetDefault("db_path", filepath.Join(dataDir, "archive.sqlite"))
	v.SetDefault("export_dir", filepath.Join(dataDir, "exports"))
	v.SetDefault("log_path", filepath.Join(dataDir, "vectoraiz.log"))
	v.SetDefault("style", DefaultGlamourStyle)

	v.SetConfigType("toml")
	if cfgPath := os.Getenv("VECTORAIZ_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(home, ".config", "vectoraiz"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("VECTORAIZ")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The config file is optional.
	_ = v.ReadInConfig()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
