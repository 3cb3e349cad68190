package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session Store Metrics
var (
	// StoreOperations tracks total session store operations
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrconsole_store_operations_total",
			Help: "Total session store operations by backend, operation, and status",
		},
		[]string{"backend", "operation", "status"},
	)

	// StoreDuration tracks session store latency
	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "hrconsole_store_operation_duration_ms",
			Help:                            "Session store operation duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"backend", "operation"},
	)

	// StoreErrors tracks session store errors by type
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrconsole_store_errors_total",
			Help: "Total session store errors by backend, operation, and error type",
		},
		[]string{"backend", "operation", "error_type"},
	)
)

// Session Core Metrics
var (
	// TokenRefreshes tracks refresh attempts by outcome
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrconsole_token_refresh_total",
			Help: "Total token refresh attempts by result",
		},
		[]string{"result"},
	)

	// TokenRefreshDuration tracks refresh round-trip latency
	TokenRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:                            "hrconsole_token_refresh_duration_ms",
			Help:                            "Token refresh duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
	)

	// ReadinessChecks tracks individual readiness evaluations
	ReadinessChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrconsole_readiness_checks_total",
			Help: "Total readiness gate checks by result",
		},
		[]string{"result"},
	)

	// ReadinessWait tracks how long activations waited before finishing
	ReadinessWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "hrconsole_readiness_wait_ms",
			Help:                            "Time from gate activation to its outcome in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"outcome"},
	)
)

// Tenant API Metrics
var (
	// APICalls tracks calls made to the tenant API
	APICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrconsole_api_calls_total",
			Help: "Total tenant API calls by method, route, and status code",
		},
		[]string{"method", "route", "status"},
	)

	// APIDuration tracks tenant API latency
	APIDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "hrconsole_api_call_duration_ms",
			Help:                            "Tenant API call duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"method", "route"},
	)

	// APIErrors tracks failed tenant API calls by type
	APIErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrconsole_api_errors_total",
			Help: "Total tenant API errors by route and error type",
		},
		[]string{"route", "error_type"},
	)
)

// Web Service Metrics
var (
	// HTTPRequests tracks requests served by the web session service
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrconsole_http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration tracks request latency
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "hrconsole_http_request_duration_ms",
			Help:                            "HTTP request duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"method", "route"},
	)
)
