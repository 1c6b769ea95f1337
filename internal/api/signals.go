package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homedeck/homedeck-core/internal/store"
)

// maxKeyLen bounds signal keys and element ids taken from the URL.
const maxKeyLen = 128

// handleListSignals returns the full current signal snapshot, sorted by key.
//
// Staleness is conveyed by each signal's timestamp together with the
// /families payload; the dashboard greys out tiles rather than erroring.
func (s *Server) handleListSignals(w http.ResponseWriter, _ *http.Request) {
	signals := s.signals.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"signals": signals,
		"count":   len(signals),
	})
}

// handleGetSignal returns a single signal by key.
func (s *Server) handleGetSignal(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" || len(key) > maxKeyLen {
		writeBadRequest(w, "invalid signal key")
		return
	}

	sig, err := s.signals.Get(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w, "signal not found")
			return
		}
		writeInternalError(w, "failed to read signal")
		return
	}

	writeJSON(w, http.StatusOK, sig)
}

// handleFamilies returns the connection status of every configured family.
func (s *Server) handleFamilies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"families": s.monitor.Snapshot(),
	})
}
