package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadServerConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logbook.yaml")
	yaml := "engine: sqlite\nhttp:\n  addr: \":7000\"\nlog:\n  level: warn\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newServerStartCommand()
	if err := cmd.ParseFlags([]string{"--config", path, "--http", "127.0.0.1:7001", "--data-dir", dir}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := loadServerConfig(cmd)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine != "sqlite" {
		t.Fatalf("engine = %q, want file value", cfg.Engine)
	}
	if cfg.HTTP.Addr != "127.0.0.1:7001" {
		t.Fatalf("http addr = %q, want flag value", cfg.HTTP.Addr)
	}
	if cfg.GRPC.Addr != ":9090" {
		t.Fatalf("grpc addr = %q, want default", cfg.GRPC.Addr)
	}
	if cfg.Log.Level != "warn" || cfg.DataDir != dir {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadServerConfigRejectsBadFlags(t *testing.T) {
	cases := [][]string{
		{"--engine", "bolt"},
		{"--fsync", "sometimes"},
		{"--log-level", "chatty"},
	}
	for _, args := range cases {
		cmd := newServerStartCommand()
		if err := cmd.ParseFlags(append(args, "--data-dir", t.TempDir())); err != nil {
			t.Fatalf("parse flags: %v", err)
		}
		if _, err := loadServerConfig(cmd); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}
}

func TestAPIURLFromEnv(t *testing.T) {
	t.Setenv("LOGBOOK_HTTP", "http://logs.internal:8080")
	if got := apiURL(); got != "http://logs.internal:8080" {
		t.Fatalf("apiURL = %q", got)
	}
}
