package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/devilmonastery/hrconsole/internal/auth"
	"github.com/devilmonastery/hrconsole/internal/pkg/logger"
	"github.com/devilmonastery/hrconsole/internal/storage"
	"github.com/devilmonastery/hrconsole/internal/tenant"
)

const maxBodyBytes = 64 << 10

type readyResponse struct {
	Ready     bool       `json:"ready"`
	Tenant    string     `json:"tenant,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func newReadyResponse(st *auth.Status) readyResponse {
	resp := readyResponse{Ready: st.Ready, Tenant: st.Tenant}
	if st.ExpiryKnown {
		resp.ExpiresAt = &st.ExpiresAt
	}
	return resp
}

// parseWait reads ?wait= as a Go duration ("5s") or whole seconds ("5"),
// capped at max
func parseWait(raw string, max time.Duration) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		secs, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return 0, fmt.Errorf("invalid wait %q", raw)
		}
		d = time.Duration(secs) * time.Second
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid wait %q", raw)
	}
	if d > max {
		d = max
	}
	return d, nil
}

// Ready reports whether the caller's session holds an access token and a
// tenant. With ?wait= it long-polls until ready or the wait elapses.
// Responds 200 when ready and 202 while pending.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	wait, err := parseWait(r.URL.Query().Get("wait"), h.maxWait)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Detail: err.Error()})
		return
	}
	// A cookie session cannot change while this request is in flight
	if !h.sessions.Shared() {
		wait = 0
	}

	_, tokens := h.open(w, r)
	if wait > 0 {
		gate := auth.NewGate(tokens,
			auth.WithInterval(h.readiness.PollInterval),
			auth.WithTimeout(wait),
			auth.WithLogger(h.log))
		if err := gate.Wait(r.Context()); err != nil && !errors.Is(err, auth.ErrReadinessTimeout) {
			h.log.Debug("readiness wait ended early", slog.String("error", err.Error()))
		}
	}

	st, err := tokens.Status(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusAccepted
	if st.Ready {
		status = http.StatusOK
	}
	writeJSON(w, status, newReadyResponse(st))
}

type tokensRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Tenant       string `json:"tenant"`
}

// StoreTokens saves a token pair handed over by the login page
func (h *Handler) StoreTokens(w http.ResponseWriter, r *http.Request) {
	var req tokensRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Detail: "body must be a JSON object"})
		return
	}
	if req.AccessToken == "" && req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Detail: "accessToken or refreshToken is required"})
		return
	}

	values := map[string]string{}
	if req.AccessToken != "" {
		values[storage.KeyAccessToken] = req.AccessToken
	}
	if req.RefreshToken != "" {
		values[storage.KeyRefreshToken] = req.RefreshToken
	}
	if req.Tenant != "" {
		t, err := tenant.Normalize(req.Tenant)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		values[storage.KeyTenant] = t
	}

	store, tokens := h.open(w, r)
	if err := store.SetMany(r.Context(), values); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.log.Info("stored session tokens",
		slog.String("access_token", logger.TokenPreview(req.AccessToken)),
		slog.Bool("has_refresh_token", req.RefreshToken != ""))

	st, err := tokens.Status(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newReadyResponse(st))
}

type refreshResponse struct {
	readyResponse
	Rotated   bool `json:"rotated"`
	ExpiresIn int  `json:"expires_in,omitempty"`
}

// Refresh exchanges the session's refresh token for new credentials
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store, tokens := h.open(w, r)

	refreshToken, err := tokens.GetRefreshToken(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := tokens.GetTenant(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	creds, err := h.refresher(store).Refresh(ctx, refreshToken, t)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	st, err := tokens.Status(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		readyResponse: newReadyResponse(st),
		Rotated:       creds.RefreshToken != "",
		ExpiresIn:     creds.ExpiresIn,
	})
}

// Logout clears the session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(r.Context(), w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
