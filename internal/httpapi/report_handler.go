package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/synapse-sync/core/internal/auth"
)

// WeeklyReport handles GET /reports/weekly?week={YYYY-WNN}&regenerate={bool}.
func (s *Server) WeeklyReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID := auth.UserID(r.Context())

	weekKey := r.URL.Query().Get("week")
	if weekKey == "" {
		writeError(w, r, http.StatusBadRequest, "validation", "week query parameter is required")
		return
	}

	regenerate := false
	if v := r.URL.Query().Get("regenerate"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "validation", "regenerate must be a boolean")
			return
		}
		regenerate = parsed
	}

	result, err := s.ReportEngine.Generate(r.Context(), userID, weekKey, regenerate)
	if s.Metrics != nil {
		s.Metrics.ReportDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		writeAppErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
