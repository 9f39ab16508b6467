// Package httpapi exposes the sync/recommend/report core over HTTP
// (SPEC_FULL.md §6), grounded on the teacher's chi router and middleware
// stack.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/synapse-sync/core/internal/auth"
	"github.com/synapse-sync/core/internal/metrics"
	"github.com/synapse-sync/core/internal/recommend"
	"github.com/synapse-sync/core/internal/report"
	"github.com/synapse-sync/core/internal/store"
	"github.com/synapse-sync/core/internal/syncengine"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	Store           *store.Store
	RateLimitConfig RateLimitInfo
	JWTCfg          auth.JWTCfg
	SyncEngine      *syncengine.Engine
	RecommendEngine *recommend.Engine
	ReportEngine    *report.Engine
	Metrics         *metrics.Registry
	// SyncBatchMaxBytes caps the raw push request body (SPEC_FULL.md §6);
	// zero disables the cap.
	SyncBatchMaxBytes int
}

// DefaultRateLimitConfig provides the default rate limiting configuration
// for sync/recommend/report endpoints (teacher's sustained-rate-plus-burst
// shape, SPEC_FULL.md §6 defaults).
var DefaultRateLimitConfig = RateLimitInfo{
	WindowSeconds: 60,
	MaxRequests:   600,
	Burst:         120,
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// errorEnvelope is the standard error response shape (SPEC_FULL.md §6).
type errorEnvelope struct {
	Error struct {
		Kind          string `json:"kind"`
		Message       string `json:"message"`
		CorrelationID string `json:"correlation_id"`
	} `json:"error"`
}

// writeError writes the standard error envelope with the given status and
// kind. Mapping an apperr.Kind to a status happens once, in statusForKind
// (used by writeAppErr).
func writeError(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	var env errorEnvelope
	env.Error.Kind = kind
	env.Error.Message = message
	env.Error.CorrelationID = GetCorrelationID(r.Context())
	writeJSON(w, status, env)
}

// Routes builds the full HTTP router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(TracingMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.Store, s.JWTCfg))
		r.Use(RateLimitMiddleware(s.RateLimitConfig))

		r.Post("/sync/push", s.Push)
		r.Post("/sync/pull", s.Pull)
		r.Get("/recommend/{note_id}", s.Recommend)
		r.Get("/reports/weekly", s.WeeklyReport)
	})

	log.Info().Msg("HTTP routes registered")
	return r
}
