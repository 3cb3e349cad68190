package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/devilmonastery/hrconsole/internal/client"
	"github.com/devilmonastery/hrconsole/internal/tenant"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// statusFor maps session core errors to an HTTP status and error code
func statusFor(err error) (int, string) {
	var re *client.RefreshError
	switch {
	case errors.Is(err, client.ErrTenantRequired):
		return http.StatusBadRequest, "tenant_required"
	case errors.Is(err, tenant.ErrInvalidTenant):
		return http.StatusBadRequest, "invalid_tenant"
	case errors.Is(err, client.ErrMissingRefreshToken):
		return http.StatusUnauthorized, "missing_refresh_token"
	case errors.Is(err, client.ErrMalformedResponse):
		return http.StatusBadGateway, "malformed_response"
	case errors.As(err, &re) && re.StatusCode == 0:
		// No response at all
		return http.StatusBadGateway, "upstream_unreachable"
	case errors.Is(err, client.ErrRefreshFailed):
		return http.StatusUnauthorized, "refresh_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError translates err into a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		detail = ""
	}
	writeJSON(w, status, errorResponse{Error: code, Detail: detail})
}
