package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"demandcast/internal/config"
)

// NewRouter assembles the service router.
func NewRouter(cfg *config.Config, predictor Predictor, info ModelInfo, version string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	health := NewHealthHandler(version)
	forecastH := NewForecastHandler(predictor, info, logger)

	r.Route("/api", func(r chi.Router) {
		health.RegisterRoutes(r)
		r.Route("/v1", func(r chi.Router) {
			r.Use(RateLimit(cfg.Server.RateLimit))
			forecastH.RegisterRoutes(r)
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
