// Package middleware provides HTTP middleware for the inspection server.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jmylchreest/timedmeta/internal/observability"
)

// RequestIDHeader is the HTTP header carrying the request ID.
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with an ID, reusing an incoming X-Request-ID
// header when present. The ID and a logger carrying it are stored in the
// request context.
func RequestID(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set(RequestIDHeader, requestID)

			ctx := observability.ContextWithRequestID(r.Context(), requestID)
			ctx = observability.ContextWithLogger(ctx, observability.WithRequestID(logger, requestID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
