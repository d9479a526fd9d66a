package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/mediagrab/internal/api/handler"
	mw "github.com/iconidentify/mediagrab/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	acquisitionHandler *handler.AcquisitionHandler,
	trackHandler *handler.TrackHandler,
	healthHandler *handler.HealthHandler,
	apiKey string,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(middleware.Timeout(5 * time.Minute))

	// Health endpoints (no auth)
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// API v1 (authenticated)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(apiKey))

		// System stats
		r.Get("/stats", healthHandler.Stats)

		// Acquisition operations
		r.Post("/acquisitions", acquisitionHandler.Submit)
		r.Get("/acquisitions/{jobID}", acquisitionHandler.Get)

		// Track catalog
		r.Get("/tracks", trackHandler.ListTracks)
		r.Get("/tracks/{trackID}", trackHandler.GetTrack)
		r.Put("/tracks/{trackID}/favorite", trackHandler.SetFavorite)
		r.Delete("/tracks/{trackID}", trackHandler.DeleteTrack)

		// Playlists
		r.Post("/playlists", trackHandler.CreatePlaylist)
		r.Get("/playlists", trackHandler.ListPlaylists)
		r.Get("/playlists/{playlistID}", trackHandler.GetPlaylist)
		r.Put("/playlists/{playlistID}", trackHandler.UpdatePlaylist)
		r.Delete("/playlists/{playlistID}", trackHandler.DeletePlaylist)

		// Delivery audit log
		r.Get("/deliveries", trackHandler.ListDeliveries)
	})

	return r
}
