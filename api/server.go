/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for case-worker tooling

ROUTE GROUPS:
  /api/cases/*        Case intake, recomputation, projections
  /api/baseamounts    The statutory base amount table

SECURITY NOTE:
  No authentication middleware. The service is meant to sit behind the
  agency's gateway, which handles authn/authz.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/cases", func(r chi.Router) {
			r.Get("/", h.ListCases)
			r.Get("/{id}", h.GetCase)
			r.Post("/{id}/events", h.SubmitEvent)
			r.Post("/{id}/recompute", h.Recompute)
			r.Get("/{id}/timeline", h.GetTimeline)
			r.Get("/{id}/results", h.GetResults)
			r.Get("/{id}/lines", h.GetLines)
		})

		r.Get("/baseamounts", h.ListBaseAmounts)
	})

	return r
}
