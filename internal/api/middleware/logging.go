// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"time"

	"github.com/reqwatch/reqwatch/internal/log"
)

// Logging returns a request-logging middleware. One line per request,
// levelled by status class so dashboards can filter on severity alone.
func Logging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			logger := log.WithComponentFromContext(r.Context(), "http")
			evt := logger.Info()
			switch {
			case rw.statusCode >= 500:
				evt = logger.Error()
			case rw.statusCode >= 400:
				evt = logger.Warn()
			}
			evt.
				Str("event", "http.request").
				Str("method", r.Method).
				Str(log.FieldPath, r.URL.Path).
				Int(log.FieldStatus, rw.statusCode).
				Int64(log.FieldDurationMS, time.Since(start).Milliseconds()).
				Str("remote_addr", r.RemoteAddr).
				Msg("request handled")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
