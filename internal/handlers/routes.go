package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes builds the full route tree: the game client surface at the root
// (paths are fixed by the game) and the management API under /api/v1.
func (h *Handler) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "x-api-key"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// Game client surface
	r.Get("/new-session.php", h.NewSession)
	r.Get("/player-scores.php", h.PlayerScores)
	r.Get("/player-leaderboards.php", h.PlayerLeaderboards)
	r.Post("/score-submit.php", h.SubmitScores)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/players", func(r chi.Router) {
			r.Post("/rivals", h.AddRival)
			r.Get("/{id}", h.GetPlayer)
			r.Get("/{id}/live", h.GetPlayerLive)
		})
		r.Post("/system/install", h.InstallDatabase)
	})

	return r
}
