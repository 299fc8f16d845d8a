package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d", cfg.Server.Port)
	}
	if cfg.Resolver.OverlapThreshold != 0.3 {
		t.Errorf("overlap threshold = %v", cfg.Resolver.OverlapThreshold)
	}
	if cfg.Agent.MaxIterations != 10 || cfg.Agent.Budget != 60*time.Second {
		t.Errorf("agent bounds = %d / %v", cfg.Agent.MaxIterations, cfg.Agent.Budget)
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("store backend = %q", cfg.Store.Backend)
	}
	want := []string{"tavily", "serpapi", "duckduckgo"}
	if len(cfg.Search.Preference) != len(want) {
		t.Fatalf("preference = %v", cfg.Search.Preference)
	}
	for i, name := range want {
		if cfg.Search.Preference[i] != name {
			t.Errorf("preference[%d] = %q, want %q", i, cfg.Search.Preference[i], name)
		}
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9999
resolver:
  validateTopK: 3
store:
  backend: file
  path: /tmp/test-resolved.json
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Resolver.ValidateTopK != 3 {
		t.Errorf("validateTopK = %d, want 3", cfg.Resolver.ValidateTopK)
	}
	// Untouched fields keep their defaults.
	if cfg.Resolver.MaxCandidates != 20 {
		t.Errorf("maxCandidates = %d, want default 20", cfg.Resolver.MaxCandidates)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OR_SERVER_PORT", "7070")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TAVILY_API_KEY", "tv-test")
	t.Setenv("OR_STORE_BACKEND", "redis")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Agent.APIKey != "sk-test" {
		t.Errorf("agent key not picked up from environment")
	}
	if cfg.Search.Tavily.APIKey != "tv-test" {
		t.Errorf("tavily key not picked up from environment")
	}
	if cfg.Store.Backend != "redis" {
		t.Errorf("store backend = %q, want redis", cfg.Store.Backend)
	}
}

func TestValidateRejectsBadBackend(t *testing.T) {
	t.Setenv("OR_STORE_BACKEND", "etcd")
	if _, err := Load(""); err == nil {
		t.Error("expected error for unknown store backend")
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("resolver:\n  overlapThreshold: 1.5\n"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("expected error for out-of-range overlap threshold")
	}
}

func TestValidateRejectsUnknownSearchBackend(t *testing.T) {
	t.Setenv("OR_SEARCH_PREFERENCE", "bing,duckduckgo")
	if _, err := Load(""); err == nil {
		t.Error("expected error for unknown search backend in preference")
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host: "db", Port: 5432, Database: "orgsite",
		User: "u", Password: "p", SSLMode: "disable",
	}
	dsn := cfg.DSN()
	for _, part := range []string{"host=db", "port=5432", "dbname=orgsite", "user=u", "sslmode=disable"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN %q missing %q", dsn, part)
		}
	}
}
