/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

ROUTES:
  The paths are the exact contract the React frontend calls; /allocate is
  kept as an alias of /allocate_stock because older frontend snapshots
  still call it.

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Dataset uploads
	r.Post("/upload_stock", h.UploadStock)
	r.Post("/upload_orders", h.UploadOrders)

	// Restrictions
	r.Get("/get_restrictions", h.GetRestrictions)
	r.Post("/set_restrictions", h.SetRestrictions)
	r.Post("/delete_restrictions", h.DeleteRestrictions)

	// Allocation
	r.Post("/allocate_stock", h.Allocate)
	r.Post("/allocate", h.Allocate) // legacy frontend alias
	r.Post("/reset_consumption", h.ResetConsumption)

	// Operational
	r.Get("/healthz", h.Healthz)
	r.Method("GET", "/metrics", promhttp.HandlerFor(h.Metrics.registry, promhttp.HandlerOpts{}))

	return r
}
