package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devilmonastery/hrconsole/web/internal/middleware"
)

// Routes builds the router for the session service. Tenant hosts are
// resolved under baseDomain.
func (h *Handler) Routes(baseDomain string, logger *slog.Logger) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.Health).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/session/ready", h.Ready).Methods("GET")
	router.HandleFunc("/session/tokens", h.StoreTokens).Methods("POST")
	router.HandleFunc("/session/refresh", h.Refresh).Methods("POST")
	router.HandleFunc("/session/logout", h.Logout).Methods("POST")

	// Tenant API reads, once the session is ready
	requireReady := middleware.RequireReady(h.SessionReady, h.readiness.PollInterval)
	router.PathPrefix("/api/").Handler(requireReady(http.HandlerFunc(h.ProxyAPI))).Methods("GET")

	router.Use(
		middleware.RequestID,
		middleware.Tenant(baseDomain),
		middleware.LogRequest(logger),
		middleware.Metrics,
	)
	return router
}
