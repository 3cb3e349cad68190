package client

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/devilmonastery/hrconsole/internal/pkg/metrics"
)

// AuthTransport adds the bearer token to tenant API calls and, when the
// server answers 401, refreshes once and retries the request
type AuthTransport struct {
	Source *TokenSource
	Base   http.RoundTripper
}

func (t *AuthTransport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

// RoundTrip implements http.RoundTripper
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	tok, err := t.Source.TokenContext(ctx)
	if err != nil {
		// RoundTrip must close the body even on error
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}

	first := req.Clone(ctx)
	tok.SetAuthHeader(first)

	resp, err := t.base().RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// A consumed body cannot be sent twice
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	slog.Info("access token rejected, attempting refresh", slog.String("path", req.URL.Path))
	newTok, refreshErr := t.Source.ForceRefresh(ctx, tok.AccessToken)
	if refreshErr != nil {
		slog.Error("token refresh failed", slog.String("error", refreshErr.Error()))
		return resp, nil
	}

	retry := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}
	newTok.SetAuthHeader(retry)

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	slog.Debug("retrying request with refreshed token")
	return t.base().RoundTrip(retry)
}

// NewHTTPClient builds the client used for tenant API calls: auth on top of
// metrics on top of base
func NewHTTPClient(source *TokenSource, base http.RoundTripper) *http.Client {
	return &http.Client{
		Transport: &AuthTransport{
			Source: source,
			Base:   metrics.NewAPIMetricsTransport(base),
		},
	}
}
