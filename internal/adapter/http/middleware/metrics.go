package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/aptledger/internal/infrastructure/metrics"
)

// Metrics middleware records HTTP metrics. A nil m disables it.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.HTTPInFlight.Inc()
			defer m.HTTPInFlight.Dec()

			// Wrap response writer to capture status code
			wrapped := &metricsRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			path := routePattern(r)

			m.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			m.HTTPDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

type metricsRecorder struct {
	http.ResponseWriter

	statusCode int
}

func (r *metricsRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *metricsRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// routePattern prefers the matched chi pattern and falls back to normalizePath.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && pattern != "/*" {
			return pattern
		}
	}
	return normalizePath(r.URL.Path)
}

// idSegments are path segments followed by an identifier.
var idSegments = map[string]bool{
	"apartments": true,
	"expenses":   true,
	"guests":     true,
	"users":      true,
}

// normalizePath normalizes URL paths to avoid high cardinality.
// /api/v1/apartments/01ABC/calendar/2025/5 -> /api/v1/apartments/:id/calendar/:n/:n
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i := 1; i < len(segments); i++ {
		seg := segments[i]
		if seg == "" {
			continue
		}
		if idSegments[segments[i-1]] {
			segments[i] = ":id"
			continue
		}
		if _, err := strconv.Atoi(seg); err == nil {
			segments[i] = ":n"
		}
	}
	return strings.Join(segments, "/")
}
