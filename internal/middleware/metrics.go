package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"cliphub/internal/metrics"

	"github.com/gorilla/mux"
)

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are path prefixes that should not be recorded
	SkipPaths []string
	// StaticPrefix requests are recorded under a single path label.
	StaticPrefix string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths:    []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"},
		StaticPrefix: "/uploads/thumbnails/",
	}
}

// Metrics returns a middleware that records Prometheus metrics. It must
// run inside the router (r.Use) so the matched route template is known.
func Metrics(config MetricsConfig) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newStatusRecorder(w)
			start := time.Now()

			next.ServeHTTP(wrapped, r)

			path := routeLabel(r, config.StaticPrefix)
			status := strconv.Itoa(wrapped.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// routeLabel returns a bounded-cardinality path label: the mux route
// template when one matched, otherwise a fixed placeholder.
func routeLabel(r *http.Request, staticPrefix string) string {
	if staticPrefix != "" && strings.HasPrefix(r.URL.Path, staticPrefix) {
		return staticPrefix + "{file}"
	}
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}
