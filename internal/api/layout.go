package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homedeck/homedeck-core/internal/store"
)

// handleListLayout returns all persisted dashboard element positions.
func (s *Server) handleListLayout(w http.ResponseWriter, r *http.Request) {
	if s.layout == nil {
		writeUnavailable(w, "layout persistence unavailable")
		return
	}

	positions, err := s.layout.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to load layout")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"elements": positions,
	})
}

// handleGetLayout returns the persisted position of one dashboard element.
func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	element := chi.URLParam(r, "element")
	if element == "" || len(element) > maxKeyLen {
		writeBadRequest(w, "invalid element id")
		return
	}
	if s.layout == nil {
		writeUnavailable(w, "layout persistence unavailable")
		return
	}

	pos, err := s.layout.Get(r.Context(), element)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w, "element has no saved position")
			return
		}
		writeInternalError(w, "failed to load layout")
		return
	}

	writeJSON(w, http.StatusOK, pos)
}

// handlePutLayout saves a dashboard element's position after a drag.
func (s *Server) handlePutLayout(w http.ResponseWriter, r *http.Request) {
	element := chi.URLParam(r, "element")
	if element == "" || len(element) > maxKeyLen {
		writeBadRequest(w, "invalid element id")
		return
	}
	if s.layout == nil {
		writeUnavailable(w, "layout persistence unavailable")
		return
	}

	var pos store.Position
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		writeBadRequest(w, "invalid position payload")
		return
	}

	if err := s.layout.Put(r.Context(), element, pos); err != nil {
		writeInternalError(w, "failed to save layout")
		return
	}

	writeJSON(w, http.StatusOK, pos)
}
