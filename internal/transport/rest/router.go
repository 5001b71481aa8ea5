package rest

import (
	"log/slog"

	"github.com/frahmantamala/cost-tracker/api"
	"github.com/frahmantamala/cost-tracker/internal/cost"
	"github.com/frahmantamala/cost-tracker/internal/transport/middleware"
	"github.com/frahmantamala/cost-tracker/internal/transport/swagger"
	"github.com/go-chi/chi"
)

// Routes carries what RegisterAllRoutes wires into the router.
type Routes struct {
	AllowedOrigins string
	Manager        StoreManager
	CostHandler    *cost.Handler
	Logger         *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, routes Routes) {
	healthHandler := NewHealthHandler(routes.Manager)

	// Apply global middleware
	router.Use(middleware.CORS(routes.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(routes.Logger))
	router.Use(middleware.LoggingMiddleware(routes.Logger))

	// OpenAPI document and Swagger UI at root (outside API prefix)
	router.Get("/openapi.yml", api.Handler().ServeHTTP)
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match the OpenAPI server URL
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if routes.CostHandler == nil {
			return
		}
		h := routes.CostHandler

		r.Get("/categories", h.GetCategories)

		r.Route("/costs", func(cr chi.Router) {
			cr.Get("/", h.GetCosts)                       // GET /costs
			cr.Post("/", h.CreateCost)                    // POST /costs
			cr.Get("/total", h.GetTotal)                  // GET /costs/total
			cr.Put("/filter", h.SetFilter)                // PUT /costs/filter
			cr.Get("/filter/options", h.GetFilterOptions) // GET /costs/filter/options
			cr.Put("/sort", h.SetSort)                    // PUT /costs/sort
			cr.Post("/sort/toggle", h.ToggleSort)         // POST /costs/sort/toggle
			cr.Put("/{id:[0-9]+}", h.UpdateCost)          // PUT /costs/:id
			cr.Delete("/{id:[0-9]+}", h.DeleteCost)       // DELETE /costs/:id
			cr.Patch("/{id:[0-9]+}/star", h.ToggleStar)   // PATCH /costs/:id/star
		})
	})
}
