package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(BodyLimitMiddleware(MaxBodyBytes))

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health", h.Health)
		r.Get("/registry", h.GetRegistry)
		r.Get("/registry/{hash}", h.GetRegistryEntry)

		// Protected routes (auth required)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.apiKey))
			r.Post("/titles", h.GenerateTitle)
			r.Post("/moderation", h.Moderate)
			r.Post("/visitors", h.PostVisitorMessage)
			r.Get("/visitors", h.ListVisitorMessages)
			r.Get("/visitors/{id}", h.GetVisitorMessage)
		})
	})

	return r
}
