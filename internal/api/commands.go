package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homedeck/homedeck-core/internal/family"
)

// lightStateRequest is the body for POST /lights/{id}/state.
type lightStateRequest struct {
	On bool `json:"on"`
}

// plugStateRequest is the body for POST /plugs/{name}/state.
type plugStateRequest struct {
	On bool `json:"on"`
}

// volumeRequest is the body for POST /speakers/{unit}/volume.
type volumeRequest struct {
	Level int `json:"level"`
}

// handleSetLight switches a light on or off through the hub.
func (s *Server) handleSetLight(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxKeyLen {
		writeBadRequest(w, "invalid light id")
		return
	}
	if s.lights == nil {
		writeUnavailable(w, "lighting family not configured")
		return
	}

	var req lightStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid state payload")
		return
	}

	if err := s.lights.SetLightState(r.Context(), id, req.On); err != nil {
		s.writeCommandError(w, "light command failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "on": req.On})
}

// handleSetPlug switches a smart plug through the relay.
func (s *Server) handleSetPlug(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || len(name) > maxKeyLen {
		writeBadRequest(w, "invalid plug name")
		return
	}
	if s.plugs == nil {
		writeUnavailable(w, "plug family not configured")
		return
	}

	var req plugStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid state payload")
		return
	}

	if err := s.plugs.SetPlug(r.Context(), name, req.On); err != nil {
		s.writeCommandError(w, "plug command failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"name": name, "on": req.On})
}

// maxVolume caps speaker volume commands.
const maxVolume = 100

// handleSetVolume adjusts a speaker unit's volume through the relay.
func (s *Server) handleSetVolume(w http.ResponseWriter, r *http.Request) {
	unit := chi.URLParam(r, "unit")
	if unit == "" || len(unit) > maxKeyLen {
		writeBadRequest(w, "invalid speaker unit")
		return
	}
	if s.speakers == nil {
		writeUnavailable(w, "speaker family not configured")
		return
	}

	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid volume payload")
		return
	}
	if req.Level < 0 || req.Level > maxVolume {
		writeBadRequest(w, "volume level must be between 0 and 100")
		return
	}

	if err := s.speakers.SetVolume(r.Context(), unit, req.Level); err != nil {
		s.writeCommandError(w, "volume command failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"unit": unit, "level": req.Level})
}

// writeCommandError maps a failed device command to an HTTP response.
// Fetch failures against the device or relay are upstream errors; anything
// else is internal.
func (s *Server) writeCommandError(w http.ResponseWriter, msg string, err error) {
	s.logger.Warn(msg, "error", err)

	var fetchErr *family.FetchError
	if errors.As(err, &fetchErr) {
		writeUpstreamError(w, msg)
		return
	}
	writeInternalError(w, msg)
}
