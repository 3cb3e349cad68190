package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/devilmonastery/hrconsole/internal/pkg/metrics"
	"github.com/devilmonastery/hrconsole/internal/storage"
)

// maxResponseBytes caps how much of a token response is read
const maxResponseBytes = 1 << 20

// Credentials is a session credential set returned by the token endpoint
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// tokenResponse marks required and optional fields; a nil AccessToken is malformed
type tokenResponse struct {
	AccessToken  *string `json:"accessToken"`
	RefreshToken *string `json:"refreshToken"`
	ExpiresIn    *int    `json:"expires_in"`
}

// RefreshClient exchanges refresh tokens for new credentials and persists them
type RefreshClient struct {
	httpClient *http.Client
	endpoint   Endpoint
	store      storage.Store
	logger     *slog.Logger
}

// NewRefreshClient creates a refresh client. If httpClient is nil a client
// with the metrics transport and no timeout is used; callers bound calls via ctx.
func NewRefreshClient(endpoint Endpoint, store storage.Store, httpClient *http.Client) *RefreshClient {
	if httpClient == nil {
		httpClient = &http.Client{Transport: metrics.NewAPIMetricsTransport(nil)}
	}
	return &RefreshClient{
		httpClient: httpClient,
		endpoint:   endpoint,
		store:      store,
		logger:     slog.Default().With("component", "token-refresh"),
	}
}

// Endpoint returns the endpoint the client talks to
func (c *RefreshClient) Endpoint() Endpoint {
	return c.endpoint
}

// Refresh performs a single exchange of refreshToken against tenant's token
// endpoint. On success the access token, and the refresh token when the server
// rotated it, are written to the store in one call. On any failure the store
// is left untouched. No retry is attempted.
func (c *RefreshClient) Refresh(ctx context.Context, refreshToken, tenant string) (*Credentials, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}

	tokenURL, err := c.endpoint.TokenURL(tenant)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	creds, err := c.exchange(ctx, tokenURL, refreshToken)
	if err != nil {
		metrics.RecordTokenRefresh(refreshResult(err), time.Since(start))
		c.logger.Warn("token refresh failed",
			slog.String("tenant", tenant),
			slog.String("error", err.Error()))
		return nil, err
	}

	values := map[string]string{storage.KeyAccessToken: creds.AccessToken}
	if creds.RefreshToken != "" {
		values[storage.KeyRefreshToken] = creds.RefreshToken
	}
	if err := c.store.SetMany(ctx, values); err != nil {
		metrics.RecordTokenRefresh("store_error", time.Since(start))
		return nil, fmt.Errorf("failed to persist credentials: %w", err)
	}

	metrics.RecordTokenRefresh("success", time.Since(start))
	c.logger.Info("refreshed session credentials",
		slog.String("tenant", tenant),
		slog.Bool("rotated_refresh_token", creds.RefreshToken != ""),
		slog.Int("expires_in", creds.ExpiresIn))
	return creds, nil
}

func (c *RefreshClient) exchange(ctx context.Context, tokenURL, refreshToken string) (*Credentials, error) {
	payload, err := json.Marshal(refreshRequest{Refresh: refreshToken})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, unreachable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, unreachable(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		if json.Unmarshal(body, &eb) != nil {
			return nil, rejected(resp.StatusCode, nil)
		}
		return nil, rejected(resp.StatusCode, &eb)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, malformed(resp.StatusCode, "invalid JSON", err)
	}
	if tr.AccessToken == nil || *tr.AccessToken == "" {
		return nil, malformed(resp.StatusCode, "missing accessToken", nil)
	}

	creds := &Credentials{AccessToken: *tr.AccessToken}
	if tr.RefreshToken != nil {
		creds.RefreshToken = *tr.RefreshToken
	}
	if tr.ExpiresIn != nil {
		creds.ExpiresIn = *tr.ExpiresIn
	}
	return creds, nil
}

func refreshResult(err error) string {
	var re *RefreshError
	switch {
	case !errors.As(err, &re):
		return "error"
	case re.Kind == ErrMalformedResponse:
		return "malformed"
	case re.StatusCode == 0:
		return "unreachable"
	default:
		return "rejected"
	}
}
