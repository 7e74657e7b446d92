package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, `server:
  host: 127.0.0.1
  port: 9090

store:
  backend: chromem
  path: /tmp/answerstore

coordinator:
  reuse_threshold: 0.3
  entry_ttl: 2m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Store.Path != "/tmp/answerstore" {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, "/tmp/answerstore")
	}
	if cfg.Coordinator.ReuseThreshold != 0.3 {
		t.Errorf("Coordinator.ReuseThreshold = %v, want 0.3", cfg.Coordinator.ReuseThreshold)
	}
	if cfg.Coordinator.EntryTTL.Duration() != 2*time.Minute {
		t.Errorf("Coordinator.EntryTTL = %v, want 2m", cfg.Coordinator.EntryTTL.Duration())
	}
}

func TestLoad_DefaultsApply(t *testing.T) {
	path := writeConfig(t, `server:
  port: 9090
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	// Fields absent from the file keep their defaults.
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Store.Backend != "chromem" {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, "chromem")
	}
	if cfg.Generator.Timeout.Duration() != 60*time.Second {
		t.Errorf("Generator.Timeout = %v, want 60s", cfg.Generator.Timeout.Duration())
	}
	if cfg.Coordinator.ReuseThreshold != 0.25 {
		t.Errorf("Coordinator.ReuseThreshold = %v, want 0.25", cfg.Coordinator.ReuseThreshold)
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	path := writeConfig(t, `server:
  port: 9090
`)

	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("GENERATOR_MODEL", "gpt-4o-mini")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070 (env override)", cfg.Server.Port)
	}
	if cfg.Generator.Model != "gpt-4o-mini" {
		t.Errorf("Generator.Model = %q, want %q", cfg.Generator.Model, "gpt-4o-mini")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not: a: mapping")

	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}

func TestLoad_OversizedFile(t *testing.T) {
	path := writeConfig(t, "# "+strings.Repeat("x", maxConfigFileSize))

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want size error")
	}
	if !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("Load() error = %v, want size limit error", err)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `server:
  port: 99999
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want validation error")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
	}
}
