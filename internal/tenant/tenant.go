// Package tenant resolves which customer organization a session belongs to.
// Tenants scope API hosts: tenant "acme" talks to acme.<api host>.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/gosimple/slug"

	"github.com/devilmonastery/hrconsole/internal/storage"
)

var (
	// ErrInvalidTenant is returned when a tenant cannot be used as a host label
	ErrInvalidTenant = errors.New("invalid tenant identifier")
)

// maxLabelLength is the DNS limit for a single host label
const maxLabelLength = 63

// Resolver supplies the current tenant identifier.
// An empty string means no tenant is known.
type Resolver interface {
	ResolveTenant(ctx context.Context) (string, error)
}

// Static always resolves to the same tenant
type Static string

// ResolveTenant returns the fixed tenant
func (s Static) ResolveTenant(context.Context) (string, error) {
	return string(s), nil
}

// StoreResolver reads the tenant from session storage
type StoreResolver struct {
	Store storage.Store
}

// ResolveTenant returns the stored tenant, or "" if none is stored
func (r StoreResolver) ResolveTenant(ctx context.Context) (string, error) {
	return storage.GetOptional(ctx, r.Store, storage.KeyTenant)
}

// Chain asks each resolver in order and returns the first non-empty tenant
type Chain []Resolver

// ResolveTenant implements Resolver
func (c Chain) ResolveTenant(ctx context.Context) (string, error) {
	for _, r := range c {
		t, err := r.ResolveTenant(ctx)
		if err != nil {
			return "", err
		}
		if t != "" {
			return t, nil
		}
	}
	return "", nil
}

// ContextResolver reads the tenant placed on the context by WithTenant,
// falling back to another resolver when the context carries none.
type ContextResolver struct {
	Fallback Resolver
}

// ResolveTenant returns the context tenant or the fallback's answer
func (r ContextResolver) ResolveTenant(ctx context.Context) (string, error) {
	if t, ok := FromContext(ctx); ok {
		return t, nil
	}
	if r.Fallback == nil {
		return "", nil
	}
	return r.Fallback.ResolveTenant(ctx)
}

// Validate checks that a tenant can be used as a single host label
func Validate(t string) error {
	// slug permits underscores, host labels do not
	if t == "" || len(t) > maxLabelLength || strings.Contains(t, "_") || !slug.IsSlug(t) {
		return fmt.Errorf("%w: %q", ErrInvalidTenant, t)
	}
	return nil
}

// Normalize lowercases and trims a user-supplied tenant, then validates it
func Normalize(t string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(t))
	if err := Validate(n); err != nil {
		return "", err
	}
	return n, nil
}

// FromHost extracts the tenant label from a request host under baseDomain.
// "acme.hr.example.com:8080" with base "hr.example.com" yields "acme".
// Returns "" when the host is the base domain itself or unrelated to it.
func FromHost(host, baseDomain string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	baseDomain = strings.ToLower(strings.Trim(baseDomain, "."))
	if baseDomain == "" {
		return ""
	}

	suffix := "." + baseDomain
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	label := strings.TrimSuffix(host, suffix)
	if strings.Contains(label, ".") || Validate(label) != nil {
		return ""
	}
	return label
}

type contextKey struct{}

// WithTenant returns a context carrying tenant
func WithTenant(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the tenant stored by WithTenant
func FromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(contextKey{}).(string)
	return t, ok && t != ""
}
