package middleware

import (
	"net/http"
	"time"

	"github.com/robotarm/armsuite/pkg/logger"
)

// Logging logs one line per request. Server errors log at error level.
func Logging(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			keyvals := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"duration", time.Since(start).String(),
				"request_id", GetRequestID(r.Context()),
			}
			if rw.statusCode >= http.StatusInternalServerError {
				log.Error("request failed", keyvals...)
				return
			}
			log.Debug("request handled", keyvals...)
		})
	}
}
