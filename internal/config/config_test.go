package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultAuthConfig_Valid(t *testing.T) {
	cfg := DefaultAuthConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	url, err := cfg.API.Endpoint().TokenURL("acme")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if url != "http://acme.localhost:8000/api/token/pair" {
		t.Errorf("unexpected token URL %q", url)
	}
}

func TestAuthConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AuthConfig)
		wantErr string
	}{
		{name: "missing host", mutate: func(c *AuthConfig) { c.API.Host = "" }, wantErr: "api.host"},
		{name: "bad scheme", mutate: func(c *AuthConfig) { c.API.Scheme = "ftp" }, wantErr: "api.scheme"},
		{name: "bad port", mutate: func(c *AuthConfig) { c.API.Port = 70000 }, wantErr: "api.port"},
		{name: "zero interval", mutate: func(c *AuthConfig) { c.Readiness.PollInterval = 0 }, wantErr: "poll_interval"},
		{name: "negative timeout", mutate: func(c *AuthConfig) { c.Readiness.Timeout = -time.Second }, wantErr: "readiness.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultAuthConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadYAML_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("HRCONSOLE_TEST_API_HOST", "hr.example.com")

	content := `
api:
  host: ${HRCONSOLE_TEST_API_HOST}
  scheme: https
readiness:
  timeout: 5s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultAuthConfig()
	used, err := LoadYAML("", []string{filepath.Join(dir, "missing.yaml"), path}, &cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if used != path {
		t.Errorf("expected %s to be used, got %q", path, used)
	}
	if cfg.API.Host != "hr.example.com" || cfg.API.Scheme != "https" {
		t.Errorf("file values not applied: %+v", cfg.API)
	}
	if cfg.API.Port != 8000 {
		t.Errorf("default port lost: %d", cfg.API.Port)
	}
	if cfg.Readiness.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Readiness.Timeout)
	}
	if cfg.Readiness.PollInterval != 100*time.Millisecond {
		t.Errorf("default poll interval lost: %v", cfg.Readiness.PollInterval)
	}
}

func TestLoadYAML_NoFile(t *testing.T) {
	cfg := DefaultAuthConfig()
	used, err := LoadYAML("", []string{filepath.Join(t.TempDir(), "nope.yaml")}, &cfg)
	if err != nil || used != "" {
		t.Fatalf("expected defaults without error, got %q, %v", used, err)
	}
}
