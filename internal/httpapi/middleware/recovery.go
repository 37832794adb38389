package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/trustify/trustify/pkg/logger"
)

// Recoverer returns a middleware that recovers from panics.
func Recoverer(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					requestID := chimiddleware.GetReqID(r.Context())
					log.WithRequestID(requestID).Error("panic recovered",
						"error", rvr,
						"stack", string(debug.Stack()),
						"method", r.Method,
						"path", r.URL.Path,
					)

					// Shaped like internal/httpapi's errorBody so a client-side
					// error handler never has to special-case a panic versus an
					// ordinary apperr-mapped failure.
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"kind":    "INTERNAL_ERROR",
						"message": "internal error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
