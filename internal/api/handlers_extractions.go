package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/qbank/internal/store"
)

// handleListExtractions lists all stored question banks for a user.
func (s *Server) handleListExtractions(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		jsonError(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		jsonError(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	list, err := s.repo.ListExtractions(r.Context(), userID)
	if err != nil {
		s.log.Error("list extractions failed", "user_id", userID, "error", err)
		jsonError(w, "failed to list extractions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"extractions": list})
}

func (s *Server) handleGetExtraction(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		jsonError(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")
	e, err := s.repo.GetExtraction(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "extraction not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("get extraction failed", "id", id, "error", err)
		jsonError(w, "failed to load extraction", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExtraction(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		jsonError(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")
	err := s.repo.DeleteExtraction(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "extraction not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("delete extraction failed", "id", id, "error", err)
		jsonError(w, "failed to delete extraction", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}
