package api

import (
	"net/http"
	"strings"
)

// handleTemperatureHistory returns the bounded in-memory temperature series
// for one room. The series is already retention-filtered by the store.
func (s *Server) handleTemperatureHistory(w http.ResponseWriter, r *http.Request) {
	room := strings.TrimSpace(r.URL.Query().Get("room"))
	if room == "" {
		writeBadRequest(w, "room query parameter is required")
		return
	}

	if s.history == nil {
		writeUnavailable(w, "history unavailable")
		return
	}

	points := s.history.TemperatureSeries(room)
	writeJSON(w, http.StatusOK, map[string]any{
		"room":   room,
		"points": points,
		"count":  len(points),
	})
}

// handleActivityLog returns the bounded activity log, oldest first.
func (s *Server) handleActivityLog(w http.ResponseWriter, _ *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "history unavailable")
		return
	}

	entries := s.history.ActivityLog()
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
