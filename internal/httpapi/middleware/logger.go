// Package middleware provides HTTP middleware functions.
package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/trustify/trustify/pkg/logger"
)

// slowIngestThreshold flags an advisory/SBOM ingest request as slow.
// Ingest parses and writes an entire document graph in one request
// (pkg/ingest.Service.Ingest), so it tolerates far more latency than a
// query route before it's worth a warning.
const slowIngestThreshold = 5 * time.Second

// Logger returns a middleware that logs HTTP requests.
func Logger(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// Get request ID from context
			requestID := chimiddleware.GetReqID(r.Context())

			// Create logger with request context
			reqLog := log.WithRequestID(requestID)

			// Log request start
			reqLog.Debug("request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"content_length", r.ContentLength,
			)

			// Process request
			next.ServeHTTP(ww, r)

			// Calculate duration
			duration := time.Since(start)

			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", duration.Milliseconds(),
			}

			// Log request completion. A write-path request (ingest, importer
			// force-run) that crosses slowIngestThreshold gets bumped to a
			// warning so it surfaces next to the rate-limit-exceeded log line,
			// rather than blending into routine query-route traffic.
			if r.Method == http.MethodPost && duration >= slowIngestThreshold {
				reqLog.Warn("slow write request", fields...)
				return
			}
			reqLog.Info("request completed", fields...)
		})
	}
}
