package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/devilmonastery/hrconsole/internal/auth"
)

// DefaultRefreshWindow refreshes access tokens this long before they expire
const DefaultRefreshWindow = time.Minute

// TokenSource serves the stored access token and refreshes it through a
// RefreshClient when it is about to expire. Refreshes within one process are
// serialized; separate processes sharing a store still race (last write wins).
type TokenSource struct {
	ctx       context.Context
	refresher *RefreshClient
	tokens    *auth.TokenStore
	window    time.Duration
	now       func() time.Time

	mu sync.Mutex
}

var _ oauth2.TokenSource = (*TokenSource)(nil)

// NewTokenSource creates a token source. ctx is used by Token, which has no
// context parameter of its own.
func NewTokenSource(ctx context.Context, refresher *RefreshClient, tokens *auth.TokenStore, window time.Duration) *TokenSource {
	if window <= 0 {
		window = DefaultRefreshWindow
	}
	return &TokenSource{
		ctx:       ctx,
		refresher: refresher,
		tokens:    tokens,
		window:    window,
		now:       time.Now,
	}
}

// Token implements oauth2.TokenSource
func (s *TokenSource) Token() (*oauth2.Token, error) {
	return s.TokenContext(s.ctx)
}

// TokenContext returns a usable access token, refreshing first if the stored
// one is missing or inside the refresh window
func (s *TokenSource) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	access, err := s.tokens.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if access != "" && !auth.NeedsRefresh(access, s.window, s.now()) {
		return toOAuth2(access), nil
	}

	refresh, err := s.tokens.GetRefreshToken(ctx)
	if err != nil {
		return nil, err
	}
	if refresh == "" && access != "" {
		// nothing to refresh with; let the server decide
		return toOAuth2(access), nil
	}
	return s.refreshLocked(ctx, refresh)
}

// ForceRefresh refreshes unless another caller already replaced stale.
// stale is the access token the server just rejected.
func (s *TokenSource) ForceRefresh(ctx context.Context, stale string) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	access, err := s.tokens.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if access != "" && access != stale {
		slog.Debug("access token already refreshed by another caller")
		return toOAuth2(access), nil
	}

	refresh, err := s.tokens.GetRefreshToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.refreshLocked(ctx, refresh)
}

func (s *TokenSource) refreshLocked(ctx context.Context, refresh string) (*oauth2.Token, error) {
	t, err := s.tokens.GetTenant(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tenant: %w", err)
	}

	creds, err := s.refresher.Refresh(ctx, refresh, t)
	if err != nil {
		return nil, err
	}

	tok := toOAuth2(creds.AccessToken)
	tok.RefreshToken = creds.RefreshToken
	if tok.Expiry.IsZero() && creds.ExpiresIn > 0 {
		tok.Expiry = s.now().Add(time.Duration(creds.ExpiresIn) * time.Second)
	}
	return tok, nil
}

func toOAuth2(access string) *oauth2.Token {
	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if expiresAt, err := auth.TokenExpiry(access); err == nil {
		tok.Expiry = expiresAt
	}
	return tok
}
