package client

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/devilmonastery/hrconsole/internal/tenant"
)

// DefaultTokenPath is the token pair endpoint on every tenant host
const DefaultTokenPath = "/api/token/pair"

// ErrTenantRequired is returned when a tenant-scoped call has no tenant and
// the endpoint is not configured to fall back to the bare host
var ErrTenantRequired = errors.New("tenant is required")

// Endpoint builds tenant-scoped API URLs of the form
// {scheme}://{tenant}.{host}:{port}{path}
type Endpoint struct {
	Scheme string
	Host   string
	Port   int // 0 omits the port

	// TokenPath defaults to DefaultTokenPath
	TokenPath string

	// AllowNullTenant sends tenant-less calls to the bare host instead of failing
	AllowNullTenant bool
}

// BaseURL returns the API root for tenant
func (e Endpoint) BaseURL(t string) (*url.URL, error) {
	host := e.Host
	switch {
	case t != "":
		if err := tenant.Validate(t); err != nil {
			return nil, err
		}
		host = t + "." + e.Host
	case !e.AllowNullTenant:
		return nil, ErrTenantRequired
	}

	if e.Port > 0 {
		host = net.JoinHostPort(host, strconv.Itoa(e.Port))
	}

	scheme := e.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return &url.URL{Scheme: scheme, Host: host}, nil
}

// TokenURL returns the token pair endpoint for tenant
func (e Endpoint) TokenURL(t string) (string, error) {
	u, err := e.BaseURL(t)
	if err != nil {
		return "", err
	}
	u.Path = e.TokenPath
	if u.Path == "" {
		u.Path = DefaultTokenPath
	}
	return u.String(), nil
}

// ResolveURL joins an API path such as "/api/employees/" onto the tenant host
func (e Endpoint) ResolveURL(t, path string) (string, error) {
	u, err := e.BaseURL(t)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid API path %q: %w", path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", fmt.Errorf("API path %q must be relative to the tenant host", path)
	}
	return u.ResolveReference(ref).String(), nil
}
