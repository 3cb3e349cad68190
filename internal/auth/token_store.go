package auth

import (
	"context"
	"time"

	"github.com/devilmonastery/hrconsole/internal/storage"
	"github.com/devilmonastery/hrconsole/internal/tenant"
)

// TokenStore exposes read accessors over session storage.
// It never writes; the refresh client owns credential writes.
type TokenStore struct {
	store   storage.Store
	tenants tenant.Resolver
}

// NewTokenStore creates a token store. If tenants is nil the tenant is
// read from the store itself.
func NewTokenStore(store storage.Store, tenants tenant.Resolver) *TokenStore {
	if tenants == nil {
		tenants = tenant.StoreResolver{Store: store}
	}
	return &TokenStore{store: store, tenants: tenants}
}

// GetAccessToken returns the stored access token, or "" if none
func (t *TokenStore) GetAccessToken(ctx context.Context) (string, error) {
	return storage.GetOptional(ctx, t.store, storage.KeyAccessToken)
}

// GetRefreshToken returns the stored refresh token, or "" if none
func (t *TokenStore) GetRefreshToken(ctx context.Context) (string, error) {
	return storage.GetOptional(ctx, t.store, storage.KeyRefreshToken)
}

// GetTenant returns the current tenant, or "" if none
func (t *TokenStore) GetTenant(ctx context.Context) (string, error) {
	return t.tenants.ResolveTenant(ctx)
}

// Status summarizes the session for display
type Status struct {
	Ready           bool      `json:"ready"`
	Tenant          string    `json:"tenant,omitempty"`
	HasAccessToken  bool      `json:"has_access_token"`
	HasRefreshToken bool      `json:"has_refresh_token"`
	ExpiresAt       time.Time `json:"expires_at,omitempty"`
	ExpiryKnown     bool      `json:"expiry_known"`
}

// Expired reports whether a known expiry lies before now
func (s *Status) Expired(now time.Time) bool {
	return s.ExpiryKnown && now.After(s.ExpiresAt)
}

// Status reads the whole session in one pass
func (t *TokenStore) Status(ctx context.Context) (*Status, error) {
	access, err := t.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	refresh, err := t.GetRefreshToken(ctx)
	if err != nil {
		return nil, err
	}
	tn, err := t.GetTenant(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{
		Ready:           access != "" && tn != "",
		Tenant:          tn,
		HasAccessToken:  access != "",
		HasRefreshToken: refresh != "",
	}
	// Opaque tokens leave the expiry unknown
	if access != "" {
		if expiresAt, err := TokenExpiry(access); err == nil {
			st.ExpiresAt = expiresAt
			st.ExpiryKnown = true
		}
	}
	return st, nil
}
