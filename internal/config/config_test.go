package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Engine != "pebble" {
		t.Fatalf("engine default: %q", cfg.Engine)
	}
	if cfg.Store.MaxAge != 432000 || cfg.Store.DeleteInterval != 300 {
		t.Fatalf("retention defaults: %+v", cfg.Store)
	}
	if cfg.HTTP.DefaultQueryLimit != 100 || cfg.HTTP.MaxQueryLimit != 1000 {
		t.Fatalf("limit defaults: %+v", cfg.HTTP)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logbook.json")
	data := []byte(`{"engine":"sqlite","store":{"maxAge":60,"useCompression":true},"http":{"addr":":9000"}}`)
	if err := os.WriteFile(file, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine != "sqlite" {
		t.Fatalf("expected sqlite, got %q", cfg.Engine)
	}
	if cfg.Store.MaxAge != 60 || !cfg.Store.UseCompression {
		t.Fatalf("store: %+v", cfg.Store)
	}
	if cfg.HTTP.Addr != ":9000" {
		t.Fatalf("addr: %q", cfg.HTTP.Addr)
	}
	// untouched values keep their defaults
	if cfg.Store.DeleteInterval != 300 {
		t.Fatalf("deleteInterval: %d", cfg.Store.DeleteInterval)
	}
}

func TestLoadYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logbook.yaml")
	data := []byte("engine: sqlite\nship:\n  brokers: [\"k1:9092\", \"k2:9092\"]\n  topic: audit\nlog:\n  format: json\n")
	if err := os.WriteFile(file, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Ship.Enabled() || len(cfg.Ship.Brokers) != 2 || cfg.Ship.Topic != "audit" {
		t.Fatalf("ship: %+v", cfg.Ship)
	}
	if cfg.Log.Format != "json" {
		t.Fatalf("log format: %q", cfg.Log.Format)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LOGBOOK_ENGINE", "sqlite")
	t.Setenv("LOGBOOK_MAX_AGE", "120")
	t.Setenv("LOGBOOK_SHIP_TAGS", "a,b")
	t.Setenv("LOGBOOK_LOG_LEVEL", "debug")

	cfg := Default()
	if err := FromEnv(&cfg); err != nil {
		t.Fatalf("env: %v", err)
	}
	if cfg.Engine != "sqlite" {
		t.Fatalf("engine: %q", cfg.Engine)
	}
	if cfg.Store.MaxAge != 120 {
		t.Fatalf("maxAge: %d", cfg.Store.MaxAge)
	}
	if strings.Join(cfg.Ship.Tags, "|") != "a|b" {
		t.Fatalf("tags: %v", cfg.Ship.Tags)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level: %q", cfg.Log.Level)
	}
	// unset vars leave defaults alone
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("addr: %q", cfg.HTTP.Addr)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logbook.json")
	if err := os.WriteFile(file, []byte(`{"engine":"sqlite"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("LOGBOOK_ENGINE", "pebble")
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine != "pebble" {
		t.Fatalf("env should win, got %q", cfg.Engine)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown engine", func(c *Config) { c.Engine = "mongo" }},
		{"unknown fsync", func(c *Config) { c.Fsync = "sometimes" }},
		{"negative retention", func(c *Config) { c.Store.MaxAge = -1 }},
		{"default above max", func(c *Config) { c.HTTP.DefaultQueryLimit = 2000 }},
		{"zero default", func(c *Config) { c.HTTP.DefaultQueryLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	if err := os.WriteFile(file, []byte("LOGBOOK_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("LOGBOOK_TEST_DOTENV", "")
	os.Unsetenv("LOGBOOK_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), file); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("LOGBOOK_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("got %q", got)
	}
}

func TestEnvHelp(t *testing.T) {
	help, err := EnvHelp()
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(help, "LOGBOOK_ENGINE") {
		t.Fatalf("missing var in help: %s", help)
	}
}
