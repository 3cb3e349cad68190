package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNotJWT is returned for opaque tokens whose claims cannot be read
	ErrNotJWT = errors.New("token is not a JWT")

	// ErrNoExpiry is returned when a JWT carries no exp claim
	ErrNoExpiry = errors.New("token has no exp claim")
)

// TokenExpiry reads the exp claim of an access token.
// The signature is not verified; the API server does that on every call.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// NeedsRefresh reports whether token expires within window of now.
// Tokens whose expiry cannot be read are assumed valid until the server says otherwise.
func NeedsRefresh(token string, window time.Duration, now time.Time) bool {
	if token == "" {
		return true
	}
	expiresAt, err := TokenExpiry(token)
	if err != nil {
		return false
	}
	return now.Add(window).After(expiresAt)
}
