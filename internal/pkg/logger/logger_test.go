package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.expected)
		}
	}
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, Config{Level: slog.LevelInfo, Format: "json"})

	WithTenant(l, "acme").Info("refreshed")
	l.Debug("dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if entry["msg"] != "refreshed" || entry["tenant"] != "acme" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if _, ok := entry["source"]; !ok {
		t.Error("expected source location in log entry")
	}
}

func TestSetupLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cli.log")

	l, err := SetupLogger(Config{Level: slog.LevelInfo, LogFile: path, Format: "text"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	l.Info("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(data), "msg=hello") {
		t.Errorf("unexpected log content %q", data)
	}
}

func TestTokenPreview(t *testing.T) {
	if got := TokenPreview("short"); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := TokenPreview("eyJhbGciOiJIUzI1NiJ9.payload"); got != "eyJhbGciOiJI..." {
		t.Errorf("got %q", got)
	}
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, Config{Level: slog.LevelInfo, Format: "json"})

	l = WithCommand(l, "hrconsole auth wait")
	l = WithRequest(l, "req-1")
	l = WithHTTPRequest(l, "GET", "/session/ready")
	WithDuration(l, 1500*time.Millisecond).Info("done")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	want := map[string]interface{}{
		"command":     "hrconsole auth wait",
		"request_id":  "req-1",
		"http_method": "GET",
		"http_path":   "/session/ready",
		"duration_ms": float64(1500),
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestGetDefaultLogFile(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if got, want := GetDefaultLogFile("cli"), filepath.Join(dir, "hrconsole", "cli.log"); got != want {
		t.Errorf("GetDefaultLogFile = %q, want %q", got, want)
	}
}
