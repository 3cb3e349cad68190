package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/devilmonastery/hrconsole/internal/client"
)

// proxiedHeaders are copied from the API server's response
var proxiedHeaders = []string{"Content-Type", "Cache-Control", "ETag", "Last-Modified"}

// ProxyAPI forwards a GET to the same path on the tenant's API host with
// the session's access token, refreshing it when needed
func (h *Handler) ProxyAPI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store, tokens := h.open(w, r)

	api := client.NewAPIClient(ctx, h.refresher(store), tokens, h.base)
	resp, err := api.Get(ctx, r.URL.RequestURI())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer resp.Body.Close()

	for _, name := range proxiedHeaders {
		if v := resp.Header.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.log.Warn("failed to relay API response",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
}
