package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"biorhythm-api/internal/config"
)

// SetupRoutes configures all HTTP routes and returns the router.
//
// Everything under /api/v1 except token issuance requires a valid
// bearer token; /health is public for load balancers.
func SetupRoutes(handlers *Handlers, cfg *config.Config, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(RecoveryMiddleware(log))
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         3600,
	}))

	authWrap := AuthMiddleware(handlers.db, log)

	// Public routes
	r.Get("/health", handlers.HealthCheck)
	r.Post("/api/v1/auth/token", handlers.IssueToken)

	// Authenticated routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authWrap)

		r.Get("/me", handlers.GetCurrentAccount)
		r.Get("/statistics", handlers.GetGlobalStatistics)

		r.Route("/people", func(r chi.Router) {
			r.Get("/", handlers.ListPeople)
			r.Post("/", handlers.CreatePerson)
			r.Get("/{id}", handlers.GetPerson)
			r.Put("/{id}", handlers.UpdatePerson)
			r.Delete("/{id}", handlers.DeletePerson)
			r.Get("/{id}/data", handlers.GetPersonData)
			r.Get("/{id}/statistics", handlers.GetPersonStatistics)
		})

		r.Route("/calculations", func(r chi.Router) {
			r.Get("/", handlers.ListCalculations)
			r.Post("/calculate", handlers.Calculate)
			r.Get("/{id}", handlers.GetCalculation)
			r.Delete("/{id}", handlers.DeleteCalculation)
		})

		r.Route("/data-points", func(r chi.Router) {
			r.Get("/", handlers.ListDataPoints)
			r.Get("/{id}", handlers.GetDataPoint)
		})
	})

	return r
}
