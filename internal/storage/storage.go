package storage

import (
	"context"
	"errors"
)

// Fixed keys used for session state
const (
	// KeyAccessToken holds the short-lived bearer token
	KeyAccessToken = "accessToken"

	// KeyRefreshToken holds the long-lived token exchanged for new access tokens
	KeyRefreshToken = "refreshToken"

	// KeyTenant holds the tenant identifier the session belongs to
	KeyTenant = "tenant"
)

// ErrNotFound is returned when a key has no stored value
var ErrNotFound = errors.New("key not found")

// Store is a string key-value store for session state.
// Different implementations keep values in memory, files, cookies or a database.
type Store interface {
	// Get returns the value for key, or ErrNotFound
	Get(ctx context.Context, key string) (string, error)

	// SetMany writes all values or none of them
	SetMany(ctx context.Context, values map[string]string) error

	// Delete removes the given keys; missing keys are ignored
	Delete(ctx context.Context, keys ...string) error
}

// GetOptional returns the value for key, or "" if it is absent
func GetOptional(ctx context.Context, s Store, key string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}
