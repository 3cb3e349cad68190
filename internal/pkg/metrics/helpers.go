package metrics

import (
	"strings"
	"time"
)

// RecordStoreOperation records session store metrics consistently
// backend: store backend name (e.g., "postgres", "file", "cookie")
// operation: operation name (e.g., "get", "set_many", "delete")
// duration: time taken for the operation
// err: error from the operation (nil if successful)
func RecordStoreOperation(backend, operation string, duration time.Duration, err error) {
	StoreDuration.WithLabelValues(backend, operation).Observe(float64(duration.Milliseconds()))

	status := "success"
	if err != nil {
		status = "error"
		StoreErrors.WithLabelValues(backend, operation, classifyStoreError(err)).Inc()
	}
	StoreOperations.WithLabelValues(backend, operation, status).Inc()
}

// RecordTokenRefresh records the outcome of one refresh round trip
func RecordTokenRefresh(result string, duration time.Duration) {
	TokenRefreshes.WithLabelValues(result).Inc()
	TokenRefreshDuration.Observe(float64(duration.Milliseconds()))
}

// RecordReadinessCheck records one readiness evaluation
func RecordReadinessCheck(ready bool) {
	result := "pending"
	if ready {
		result = "ready"
	}
	ReadinessChecks.WithLabelValues(result).Inc()
}

// classifyStoreError categorizes store errors for metrics
func classifyStoreError(err error) string {
	if err == nil {
		return "none"
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "not found") || strings.Contains(errStr, "no rows"):
		return "not_found"
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return "timeout"
	case strings.Contains(errStr, "connection") || strings.Contains(errStr, "connect"):
		return "connection"
	case strings.Contains(errStr, "permission"):
		return "permission"
	case strings.Contains(errStr, "deadlock"):
		return "deadlock"
	default:
		return "other"
	}
}
