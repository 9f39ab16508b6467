package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type contextKey string

const correlationIDKey contextKey = "correlationId"

// CorrelationMiddleware reads X-Correlation-ID (generating one if absent),
// echoes it on the response, and binds it into the request-scoped logger so
// every log line for a request can be tied back to the client's view of it.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		w.Header().Set("X-Correlation-ID", correlationID)

		ctx := context.WithValue(r.Context(), correlationIDKey, correlationID)
		logger := log.With().Str("correlation_id", correlationID).Logger()
		ctx = logger.WithContext(ctx)

		r = r.WithContext(ctx)
		next.ServeHTTP(w, r)
	})
}

// GetCorrelationID retrieves the correlation ID from context.
func GetCorrelationID(ctx context.Context) string {
	if correlationID, ok := ctx.Value(correlationIDKey).(string); ok {
		return correlationID
	}
	return ""
}
