package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/devilmonastery/hrconsole/internal/storage"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tenant  string
		wantErr bool
	}{
		{name: "simple", tenant: "acme"},
		{name: "with hyphen", tenant: "acme-eu"},
		{name: "with digits", tenant: "acme2"},
		{name: "empty", tenant: "", wantErr: true},
		{name: "uppercase", tenant: "Acme", wantErr: true},
		{name: "dot injects host", tenant: "evil.com", wantErr: true},
		{name: "path injection", tenant: "acme/x", wantErr: true},
		{name: "underscore", tenant: "acme_eu", wantErr: true},
		{name: "leading hyphen", tenant: "-acme", wantErr: true},
		{name: "too long", tenant: "a123456789012345678901234567890123456789012345678901234567890123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tenant)
			if tt.wantErr && !errors.Is(err, ErrInvalidTenant) {
				t.Errorf("Validate(%q) = %v, want ErrInvalidTenant", tt.tenant, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate(%q) = %v, want nil", tt.tenant, err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize("  ACME-eu ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "acme-eu" {
		t.Errorf("expected acme-eu, got %q", got)
	}

	if _, err := Normalize("Acme Corp"); !errors.Is(err, ErrInvalidTenant) {
		t.Errorf("expected ErrInvalidTenant for spaces, got %v", err)
	}
}

func TestFromHost(t *testing.T) {
	tests := []struct {
		host     string
		base     string
		expected string
	}{
		{host: "acme.hr.example.com", base: "hr.example.com", expected: "acme"},
		{host: "acme.hr.example.com:8080", base: "hr.example.com", expected: "acme"},
		{host: "ACME.hr.example.com.", base: "hr.example.com", expected: "acme"},
		{host: "hr.example.com", base: "hr.example.com", expected: ""},
		{host: "a.b.hr.example.com", base: "hr.example.com", expected: ""},
		{host: "acme.other.com", base: "hr.example.com", expected: ""},
		{host: "acme.localhost:3000", base: "localhost", expected: "acme"},
		{host: "acme.localhost", base: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			if got := FromHost(tt.host, tt.base); got != tt.expected {
				t.Errorf("FromHost(%q, %q) = %q, want %q", tt.host, tt.base, got, tt.expected)
			}
		})
	}
}

func TestResolvers(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(map[string]string{storage.KeyTenant: "stored"})

	if got, _ := Static("fixed").ResolveTenant(ctx); got != "fixed" {
		t.Errorf("Static resolved %q", got)
	}

	if got, _ := (StoreResolver{Store: store}).ResolveTenant(ctx); got != "stored" {
		t.Errorf("StoreResolver resolved %q", got)
	}

	empty := StoreResolver{Store: storage.NewMemoryStore(nil)}
	if got, err := empty.ResolveTenant(ctx); err != nil || got != "" {
		t.Errorf("expected empty tenant without error, got %q, %v", got, err)
	}

	cr := ContextResolver{Fallback: StoreResolver{Store: store}}
	if got, _ := cr.ResolveTenant(ctx); got != "stored" {
		t.Errorf("ContextResolver fallback resolved %q", got)
	}
	if got, _ := cr.ResolveTenant(WithTenant(ctx, "fromhost")); got != "fromhost" {
		t.Errorf("ContextResolver resolved %q", got)
	}
	if got, _ := (ContextResolver{}).ResolveTenant(ctx); got != "" {
		t.Errorf("ContextResolver without fallback resolved %q", got)
	}

	chain := Chain{empty, Static("default")}
	if got, _ := chain.ResolveTenant(ctx); got != "default" {
		t.Errorf("Chain resolved %q", got)
	}
	if got, _ := (Chain{StoreResolver{Store: store}, Static("default")}).ResolveTenant(ctx); got != "stored" {
		t.Errorf("Chain should prefer the first non-empty tenant, got %q", got)
	}
}
