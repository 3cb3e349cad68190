package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// ReadyFunc reports whether the request's session is ready
type ReadyFunc func(w http.ResponseWriter, r *http.Request) bool

// RequireReady rejects requests whose session has no access token and tenant
// yet, telling the client when to try again
func RequireReady(ready ReadyFunc, retryAfter time.Duration) mux.MiddlewareFunc {
	secs := int(retryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ready(w, r) {
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"error":  "session_not_ready",
					"detail": "session has no access token and tenant yet",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
