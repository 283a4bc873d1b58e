package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/robotarm/armsuite/internal/metrics"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Metrics returns a middleware that records request metrics on m.
func Metrics(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			m.ActiveConnections.Inc()
			defer m.ActiveConnections.Dec()

			next.ServeHTTP(rw, r)

			m.RecordRequest(r.Method, normalizePath(r.URL.Path), rw.statusCode, time.Since(start))
		})
	}
}

// normalizePath collapses run IDs so label cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case path == "/health", path == "/ready", path == "/metrics",
		path == "/api/v1/cases", path == "/api/v1/runs", path == "/api/v1/runs/latest":
		return path
	case strings.HasPrefix(path, "/api/v1/runs/") && !strings.Contains(path[len("/api/v1/runs/"):], "/"):
		return "/api/v1/runs/{id}"
	default:
		return "/other"
	}
}
