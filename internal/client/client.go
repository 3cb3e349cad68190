package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/devilmonastery/hrconsole/internal/auth"
)

// APIClient calls the tenant-scoped API server with automatic token refresh
type APIClient struct {
	httpClient *http.Client
	endpoint   Endpoint
	tokens     *auth.TokenStore
}

// NewAPIClient wires a refresh client, token source and HTTP client together.
// base may be nil to use http.DefaultTransport.
func NewAPIClient(ctx context.Context, refresher *RefreshClient, tokens *auth.TokenStore, base http.RoundTripper) *APIClient {
	source := NewTokenSource(ctx, refresher, tokens, DefaultRefreshWindow)
	return &APIClient{
		httpClient: NewHTTPClient(source, base),
		endpoint:   refresher.Endpoint(),
		tokens:     tokens,
	}
}

// Do sends a request for path on the current tenant's host
func (c *APIClient) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	t, err := c.tokens.GetTenant(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tenant: %w", err)
	}

	target, err := c.endpoint.ResolveURL(t, path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// Get is shorthand for Do with GET and no body
func (c *APIClient) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}
