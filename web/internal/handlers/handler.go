package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/devilmonastery/hrconsole/internal/auth"
	"github.com/devilmonastery/hrconsole/internal/client"
	appconfig "github.com/devilmonastery/hrconsole/internal/config"
	"github.com/devilmonastery/hrconsole/internal/pkg/metrics"
	"github.com/devilmonastery/hrconsole/internal/storage"
	"github.com/devilmonastery/hrconsole/internal/tenant"
	"github.com/devilmonastery/hrconsole/web/internal/session"
)

// Handler holds dependencies for all web handlers
type Handler struct {
	sessions   *session.Manager
	endpoint   client.Endpoint
	readiness  appconfig.ReadinessConfig
	maxWait    time.Duration
	base       http.RoundTripper
	httpClient *http.Client
	log        *slog.Logger
}

// New creates a handler. base is the transport used for calls to the API
// server; nil means http.DefaultTransport.
func New(sessions *session.Manager, cfg appconfig.AuthConfig, maxWait time.Duration, base http.RoundTripper, logger *slog.Logger) *Handler {
	return &Handler{
		sessions:  sessions,
		endpoint:  cfg.API.Endpoint(),
		readiness: cfg.Readiness,
		maxWait:   maxWait,
		base:      base,
		httpClient: &http.Client{
			Timeout:   cfg.API.RequestTimeout,
			Transport: metrics.NewAPIMetricsTransport(base),
		},
		log: logger.With(slog.String("component", "web_handler")),
	}
}

// open binds the session core to one request. The tenant named by the
// request host wins over the one stored in the session.
func (h *Handler) open(w http.ResponseWriter, r *http.Request) (storage.Store, *auth.TokenStore) {
	store := h.sessions.Open(w, r)
	resolver := tenant.ContextResolver{Fallback: tenant.StoreResolver{Store: store}}
	return store, auth.NewTokenStore(store, resolver)
}

func (h *Handler) refresher(store storage.Store) *client.RefreshClient {
	return client.NewRefreshClient(h.endpoint, store, h.httpClient)
}

// SessionReady is a single readiness check, used to gate routes
func (h *Handler) SessionReady(w http.ResponseWriter, r *http.Request) bool {
	_, tokens := h.open(w, r)
	return auth.NewGate(tokens, auth.WithLogger(h.log)).Check(r.Context())
}

// Health answers liveness probes
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
