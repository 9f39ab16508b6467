package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/synapse-sync/core/internal/auth"
)

const defaultRecommendK = 10

// Recommend handles GET /recommend/{note_id}?k={1..50}.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID := auth.UserID(r.Context())

	noteID, err := uuid.Parse(chi.URLParam(r, "note_id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "validation", "note_id must be a valid uuid")
		return
	}

	k := defaultRecommendK
	if kStr := r.URL.Query().Get("k"); kStr != "" {
		parsed, err := strconv.Atoi(kStr)
		if err != nil || parsed < 1 || parsed > 50 {
			writeError(w, r, http.StatusUnprocessableEntity, "validation", "k must be in [1,50]")
			return
		}
		k = parsed
	}

	result, err := s.RecommendEngine.Recommend(r.Context(), userID, noteID, k)
	if s.Metrics != nil {
		s.Metrics.RecommendDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		writeAppErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
