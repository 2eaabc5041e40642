package api

import (
	"net/http"
	"strconv"

	"github.com/wtthornton/homeiq-core/internal/audit"
)

// handleListHistory returns past validation runs, newest first.
//
// Query parameters:
//   - document_hash: only runs for one document
//   - failed: "true" restricts to runs that recorded errors
//   - limit, offset: pagination (default 50, max 200)
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "validation history is not enabled")
		return
	}

	filter := audit.Filter{
		DocumentHash: r.URL.Query().Get("document_hash"),
		OnlyFailed:   r.URL.Query().Get("failed") == "true",
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list validation history", "error", err)
		writeInternalError(w, "failed to list validation history")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
