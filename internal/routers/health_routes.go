package routers

import (
	"prepmate/interview/internal/handlers"
	"prepmate/interview/internal/metrics"

	"github.com/go-chi/chi/v5"
)

func HealthRoutes(router *chi.Mux, healthHandler *handlers.HealthHandler) {
	router.Get("/healthz", healthHandler.HealthzHandler)
	router.Get("/readyz", healthHandler.ReadyzHandler)
	router.Get("/api/v1/interview/healthz", healthHandler.HealthzHandler)
}

func MetricsRoutes(router *chi.Mux) {
	router.Handle("/metrics", metrics.Handler())
}
