package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/synapse-sync/core/internal/apperr"
	"github.com/synapse-sync/core/internal/auth"
	"github.com/synapse-sync/core/internal/syncx"
)

// statusForKind maps an apperr.Kind to the HTTP status the teacher's
// handlers return for it, centralizing the mapping at the HTTP boundary.
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.Authentication:
		return http.StatusUnauthorized
	case apperr.Authorization:
		return http.StatusForbidden
	case apperr.Validation, apperr.SyncItem:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.PayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperr.ExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeAppErr(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	writeError(w, r, statusForKind(kind), string(kind), apperr.MessageOf(err))
}

// pullRequest is the wire shape of POST /sync/pull (spec.md §6).
type pullRequest struct {
	DeviceID   string  `json:"device_id"`
	Checkpoint *string `json:"checkpoint"`
}

// pullResponse mirrors spec.md §6's documented pull response shape, fanned
// out into syncengine.PullResult's typed per-entity slices as `changes`.
type pullResponse struct {
	HasMore       bool        `json:"has_more"`
	Changes       pullChanges `json:"changes"`
	NewCheckpoint string      `json:"new_checkpoint"`
	TotalChanges  int         `json:"total_changes"`
}

type pullChanges struct {
	Notes       any `json:"notes"`
	Relations   any `json:"relations"`
	Reflections any `json:"reflections"`
}

// Push handles POST /sync/push. The request body is capped at
// SyncBatchMaxBytes (SPEC_FULL.md §6): reading past the cap makes
// json.Decode fail with *http.MaxBytesError, which is answered with 413
// before any item is applied.
func (s *Server) Push(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID := auth.UserID(r.Context())

	if s.SyncBatchMaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(s.SyncBatchMaxBytes))
	}

	var req syncx.ChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, string(apperr.PayloadTooLarge), "request body exceeds the maximum batch size")
			return
		}
		writeError(w, r, http.StatusBadRequest, "validation", "malformed request body")
		return
	}
	if len(req.Changes) < 1 {
		writeError(w, r, http.StatusBadRequest, "validation", "changes must contain at least one item")
		return
	}

	result, err := s.SyncEngine.Push(r.Context(), userID, req)
	if err != nil {
		if s.Metrics != nil {
			s.Metrics.PushDuration.Observe(time.Since(start).Seconds())
		}
		writeAppErr(w, r, err)
		return
	}

	if s.Metrics != nil {
		for i, res := range result.Results {
			status := "success"
			if !res.Success {
				status = "error"
			}
			s.Metrics.PushItemsTotal.WithLabelValues(req.Changes[i].EntityType, status).Inc()
		}
		s.Metrics.PushDuration.Observe(time.Since(start).Seconds())
	}

	writeJSON(w, http.StatusOK, result)
}

// Pull handles POST /sync/pull.
func (s *Server) Pull(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID := auth.UserID(r.Context())

	var req pullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "validation", "malformed request body")
		return
	}

	checkpoint := syncx.NoCheckpoint
	if req.Checkpoint != nil {
		checkpoint = syncx.Checkpoint(*req.Checkpoint)
	}

	result, err := s.SyncEngine.Pull(r.Context(), userID, checkpoint)
	if s.Metrics != nil {
		s.Metrics.PullDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		writeAppErr(w, r, err)
		return
	}

	totalChanges := len(result.Notes) + len(result.Relations) + len(result.Reflections)
	writeJSON(w, http.StatusOK, pullResponse{
		HasMore: result.HasMore,
		Changes: pullChanges{
			Notes:       result.Notes,
			Relations:   result.Relations,
			Reflections: result.Reflections,
		},
		NewCheckpoint: string(result.NewCheckpoint),
		TotalChanges:  totalChanges,
	})
}
