package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MaxRoutes caps the distinct route labels a process records; later
// routes share OverflowRoute
const MaxRoutes = 128

// OverflowRoute labels calls once MaxRoutes distinct routes have been seen
const OverflowRoute = "other"

var routePatterns = []struct {
	regex   *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`), "/:id"},
	{regexp.MustCompile(`/\d+`), "/:id"},
}

// routeSet remembers the route labels handed out so far
type routeSet struct {
	mu   sync.Mutex
	max  int
	seen map[string]struct{}
}

func newRouteSet(max int) *routeSet {
	return &routeSet{max: max, seen: make(map[string]struct{})}
}

func (s *routeSet) label(route string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[route]; ok {
		return route
	}
	if len(s.seen) >= s.max {
		return OverflowRoute
	}
	s.seen[route] = struct{}{}
	return route
}

var routes = newRouteSet(MaxRoutes)

// apiMetricsTransport wraps an http.RoundTripper to collect metrics on tenant API calls
type apiMetricsTransport struct {
	base http.RoundTripper
}

// NewAPIMetricsTransport creates a transport wrapper that collects metrics
// for every call made to the tenant API.
func NewAPIMetricsTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &apiMetricsTransport{base: base}
}

// RoundTrip implements http.RoundTripper
func (t *apiMetricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	route := RouteLabel(req.URL.Path)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}

	APICalls.WithLabelValues(req.Method, route, strconv.Itoa(statusCode)).Inc()
	APIDuration.WithLabelValues(req.Method, route).Observe(float64(duration.Milliseconds()))

	if err != nil || statusCode >= 400 {
		APIErrors.WithLabelValues(route, ClassifyHTTPError(statusCode, err)).Inc()
	}

	return resp, err
}

// RouteLabel returns the metrics label for path: the normalized route, or
// OverflowRoute once MaxRoutes distinct routes have been recorded
func RouteLabel(path string) string {
	return routes.label(NormalizeRoute(path))
}

// NormalizeRoute replaces IDs in a path with placeholders
// This prevents high cardinality in metrics while still providing useful aggregation.
// Under /api/ only the resource name survives: one trailing segment becomes
// :id and anything deeper collapses to :id/*, so slugs never reach a label.
func NormalizeRoute(path string) string {
	normalized := path
	for _, p := range routePatterns {
		normalized = p.regex.ReplaceAllString(normalized, p.replace)
	}

	if !strings.HasPrefix(normalized, "/api/") {
		return normalized
	}
	segments := strings.Split(strings.Trim(normalized, "/"), "/")
	if len(segments) <= 2 {
		return normalized
	}

	route := "/" + segments[0] + "/" + segments[1] + "/:id"
	if len(segments) > 3 {
		return route + "/*"
	}
	if strings.HasSuffix(normalized, "/") {
		route += "/"
	}
	return route
}

// ClassifyHTTPError categorizes HTTP call failures for metrics
func ClassifyHTTPError(statusCode int, err error) string {
	if err != nil {
		errStr := err.Error()
		switch {
		case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
			return "timeout"
		case strings.Contains(errStr, "connection"):
			return "connection"
		case strings.Contains(errStr, "TLS") || strings.Contains(errStr, "tls"):
			return "tls"
		default:
			return "network"
		}
	}

	switch {
	case statusCode == 400:
		return "bad_request"
	case statusCode == 401:
		return "unauthorized"
	case statusCode == 403:
		return "forbidden"
	case statusCode == 404:
		return "not_found"
	case statusCode == 429:
		return "rate_limited"
	case statusCode >= 500:
		return "server_error"
	case statusCode >= 400:
		return "client_error"
	default:
		return "unknown"
	}
}
