package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes. The dashboard is the only client; there is no auth.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/families", s.handleFamilies)

		// Current signal snapshot
		r.Route("/signals", func(r chi.Router) {
			r.Get("/", s.handleListSignals)
			r.Get("/{key}", s.handleGetSignal)
		})

		// Bounded history
		r.Route("/history", func(r chi.Router) {
			r.Get("/temperature", s.handleTemperatureHistory)
			r.Get("/activity", s.handleActivityLog)
		})

		// Dashboard layout persistence
		r.Route("/layout", func(r chi.Router) {
			r.Get("/", s.handleListLayout)
			r.Get("/{element}", s.handleGetLayout)
			r.Put("/{element}", s.handlePutLayout)
		})

		// Device commands
		r.Post("/lights/{id}/state", s.handleSetLight)
		r.Post("/plugs/{name}/state", s.handleSetPlug)
		r.Post("/speakers/{unit}/volume", s.handleSetVolume)

		// WebSocket push
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
