package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/devilmonastery/hrconsole/internal/tenant"
)

func TestTenantFromHost(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{host: "acme.hr.example.com", want: "acme"},
		{host: "acme.hr.example.com:8080", want: "acme"},
		{host: "hr.example.com", want: ""},
		{host: "a.b.hr.example.com", want: ""},
		{host: "acme.other.com", want: ""},
	}

	for _, tt := range tests {
		var got string
		h := Tenant("hr.example.com")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = tenant.FromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = tt.host
		h.ServeHTTP(httptest.NewRecorder(), req)

		if got != tt.want {
			t.Errorf("host %q: tenant = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	// A well-formed incoming ID is kept
	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != incoming || rec.Header().Get(RequestIDHeader) != incoming {
		t.Errorf("incoming ID not reused: context %q header %q", seen, rec.Header().Get(RequestIDHeader))
	}

	// Anything else is replaced
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("expected generated UUID, got %q", seen)
	}
}

func TestRequireReady(t *testing.T) {
	ready := false
	called := 0
	h := RequireReady(func(http.ResponseWriter, *http.Request) bool { return ready }, 2500*time.Millisecond)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called++ }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
	if called != 0 {
		t.Error("handler ran for a pending session")
	}

	ready = true
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil))
	if rec.Code != http.StatusOK || called != 1 {
		t.Errorf("ready session: status %d, calls %d", rec.Code, called)
	}
}

func TestLogRequest(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := RequestID(Tenant("hr.example.com")(LogRequest(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))))

	req := httptest.NewRequest(http.MethodGet, "/api/employees/alice", nil)
	req.Host = "acme.hr.example.com"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}

	want := map[string]any{
		"msg":         "http request",
		"level":       "WARN",
		"request_id":  rec.Header().Get(RequestIDHeader),
		"tenant":      "acme",
		"http_method": "GET",
		"http_path":   "/api/employees/alice",
		"status":      float64(http.StatusNotFound),
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("expected duration_ms in log entry")
	}
}

func TestLogRequestSkipsHealth(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := LogRequest(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if buf.Len() != 0 {
		t.Errorf("expected no log output, got %q", buf.String())
	}
}
