package application

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"reconaudit/backend/config"
)

func TestNewAppGeneratesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	app, err := NewApp(file)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if _, err := os.Stat(file); err != nil {
		t.Fatalf("config file not generated: %v", err)
	}
	if len(app.Config.Scope) != 1 || app.Config.Scope[0] != "*" {
		t.Fatalf("expected wildcard scope by default, got %v", app.Config.Scope)
	}
	if app.Config.Executor.Timeout != 60*time.Second || app.Config.Executor.MaxRetries != 2 {
		t.Fatalf("unexpected executor defaults %+v", app.Config.Executor)
	}
	if app.Config.DatabaseFile != filepath.Join(dir, "data", "data.db") {
		t.Fatalf("unexpected database file %q", app.Config.DatabaseFile)
	}
}

func TestLoadConfigFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	raw := "version: 0.1.0\nscope:\n  - example.com\nexecutor:\n  timeout: 5s\n"
	if err := os.WriteFile(file, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	app, err := NewApp(file)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if app.Config.Executor.Timeout != 5*time.Second {
		t.Fatalf("timeout not read, got %s", app.Config.Executor.Timeout)
	}
	if app.Config.Executor.MaxRetries != 2 {
		t.Fatalf("max retries default not filled, got %d", app.Config.Executor.MaxRetries)
	}
	if app.Config.Tools.Nmap.Path != "nmap" {
		t.Fatalf("nmap default not filled, got %q", app.Config.Tools.Nmap.Path)
	}
	if app.Config.Version != Version {
		t.Fatalf("old config version should be upgraded, got %q", app.Config.Version)
	}

	written, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	var persisted config.Config
	if err := yaml.Unmarshal(written, &persisted); err != nil {
		t.Fatalf("rewritten config invalid: %v", err)
	}
	if persisted.Version != Version || persisted.Scope[0] != "example.com" {
		t.Fatalf("config not rewritten as expected: %+v", persisted)
	}
}

func TestLegacyIniConfigIsTransformed(t *testing.T) {
	dir := t.TempDir()
	legacy := filepath.Join(dir, "config.ini")
	raw := strings.Join([]string{
		"scope = example.com,10.0.0.0/8",
		"concurrency = 3",
		"",
		"[Executor]",
		"timeout = 30s",
		"maxRetries = 4",
		"",
	}, "\n")
	if err := os.WriteFile(legacy, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	app, err := NewApp(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if got := app.Config.Scope; len(got) != 2 || got[1] != "10.0.0.0/8" {
		t.Fatalf("scope not migrated, got %v", got)
	}
	if app.Config.Concurrency != 3 || app.Config.Executor.MaxRetries != 4 || app.Config.Executor.Timeout != 30*time.Second {
		t.Fatalf("unexpected migrated config %+v", app.Config)
	}
	if _, err := os.Stat(legacy); !os.IsNotExist(err) {
		t.Fatalf("legacy config should be removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("yaml config not written: %v", err)
	}
}

func TestLoadConfigRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte("scope: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewApp(file); err == nil {
		t.Fatalf("expected parse error")
	}
}
