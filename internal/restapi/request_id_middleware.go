package restapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"catabus.org/transit/internal/logging"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

const requestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

// RequestIDMiddleware propagates or mints a request id and attaches a logger carrying it to the
// request context.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" || len(reqID) > maxRequestIDLength {
			reqID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, reqID)

		ctx := context.WithValue(r.Context(), RequestIDKey, reqID)
		logger := logging.FromContext(ctx).With(slog.String("request_id", reqID))
		ctx = logging.WithLogger(ctx, logger)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the id set by RequestIDMiddleware, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
