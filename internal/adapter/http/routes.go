package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/GroupWarden/internal/adapter/otel"
	"github.com/Strob0t/GroupWarden/internal/adapter/ws"
	"github.com/Strob0t/GroupWarden/internal/config"
	"github.com/Strob0t/GroupWarden/internal/middleware"
)

// NewRouter builds the admin API router: health is public, everything under
// /api/v1 and the event stream require the API key.
func NewRouter(h *Handlers, hub *ws.Hub, cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(Logger)
	r.Use(SecurityHeaders)
	if cfg.Server.CORSOrigin != "" {
		r.Use(CORS(cfg.Server.CORSOrigin))
	}
	r.Use(otel.HTTPMiddleware("groupwarden"))

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKey(cfg.Auth.APIKeyHash))

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/reviews", h.ListReviews)
			r.Get("/reviews/{messageID}", h.GetReview)
			r.Post("/reviews/{messageID}/resolve", h.ResolveReview)

			r.Get("/roster", h.GetRoster)
			r.Post("/roster/refresh", h.RefreshRoster)

			r.Get("/stats", h.GetStats)
			r.Post("/reports/run", h.TriggerReport)
		})

		r.Get("/ws", hub.HandleWS)
	})

	return r
}
