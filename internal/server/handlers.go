package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/petrel-quant/petrel/internal/modules/iteration"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "petrel",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleListPatches returns patch proposals, optionally filtered by status.
// GET /api/patches?status=proposed
func (s *Server) handleListPatches(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", iteration.StatusProposed, iteration.StatusAccepted, iteration.StatusRejected:
	default:
		s.writeError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	proposals, err := s.pool.List(status)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list proposals")
		s.writeError(w, http.StatusInternalServerError, "failed to list proposals")
		return
	}
	if proposals == nil {
		proposals = []iteration.Proposal{}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"proposals": proposals,
		"count":     len(proposals),
	})
}

// handleSetPatchStatus moves a proposal between review states.
// POST /api/patches/{id}/status with body {"status": "accepted"}
func (s *Server) handleSetPatchStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing proposal id")
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.pool.SetStatus(id, body.Status); err != nil {
		if strings.Contains(err.Error(), "invalid proposal status") {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.Contains(err.Error(), "not found") {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.log.Error().Err(err).Str("id", id).Msg("Failed to update proposal status")
		s.writeError(w, http.StatusInternalServerError, "failed to update proposal status")
		return
	}

	prop, err := s.pool.Get(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load proposal")
		return
	}

	s.writeJSON(w, http.StatusOK, prop)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
