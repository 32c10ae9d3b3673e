package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chtemp runs the test in an empty directory so a developer's config.yaml
// never leaks into assertions.
func chtemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chtemp(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend != BackendREST {
		t.Errorf("expected rest backend default, got %q", cfg.Backend)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Errorf("expected 3s poll interval, got %v", cfg.PollInterval)
	}
	if cfg.SearchDebounce != 300*time.Millisecond {
		t.Errorf("expected 300ms debounce, got %v", cfg.SearchDebounce)
	}
	if cfg.PageSize != 10 {
		t.Errorf("expected page size 10, got %d", cfg.PageSize)
	}
	if cfg.ProcessingConfigured() {
		t.Error("processing should be unconfigured by default")
	}
	if cfg.SessionDir == "" {
		t.Error("session dir should default to a profile directory")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	chtemp(t)
	t.Setenv("API_BASE_URL", "https://backend.example.com/api/v2")
	t.Setenv("POLL_INTERVAL", "10s")
	t.Setenv("PROCESSING_BASE_URL", "https://processing.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.REST.BaseURL != "https://backend.example.com/api/v2" {
		t.Errorf("env override not applied: %q", cfg.REST.BaseURL)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Errorf("expected 10s poll interval, got %v", cfg.PollInterval)
	}
	if !cfg.ProcessingConfigured() {
		t.Error("processing should be configured")
	}
}

func TestLoad_YAMLWithEnvPriority(t *testing.T) {
	chtemp(t)
	yaml := "backend: rest\nrest:\n  base_url: http://from-yaml:8000/api/v1\npoll_interval: 5s\n"
	if err := os.WriteFile(filepath.Join(".", "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POLL_INTERVAL", "7s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.REST.BaseURL != "http://from-yaml:8000/api/v1" {
		t.Errorf("yaml value not applied: %q", cfg.REST.BaseURL)
	}
	if cfg.PollInterval != 7*time.Second {
		t.Errorf("env should override yaml, got %v", cfg.PollInterval)
	}
}

func TestLoad_SupabaseRequiresURLAndKey(t *testing.T) {
	chtemp(t)
	t.Setenv("DRAFTMILL_BACKEND", "supabase")

	if _, err := Load(); err == nil {
		t.Fatal("supabase backend without url/key should fail validation")
	}

	t.Setenv("SUPABASE_URL", "https://abc.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend != BackendSupabase {
		t.Errorf("expected supabase backend, got %q", cfg.Backend)
	}
	if cfg.Supabase.Bucket != "reports" {
		t.Errorf("expected default bucket, got %q", cfg.Supabase.Bucket)
	}
}

func TestLoad_UnknownBackend(t *testing.T) {
	chtemp(t)
	t.Setenv("DRAFTMILL_BACKEND", "graphql")

	if _, err := Load(); err == nil {
		t.Fatal("unknown backend should fail validation")
	}
}
