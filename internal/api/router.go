package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "health-data-pipeline/internal/api/docs"
	"health-data-pipeline/internal/api/handler"
	"health-data-pipeline/internal/pipeline"
)

// NewRouter builds the HTTP surface: the run API, prometheus metrics,
// and the swagger UI.
func NewRouter(deps pipeline.Deps) http.Handler {
	h := handler.New(deps)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", h.CreateRun)
		r.Get("/runs", h.ListRuns)
		r.Get("/runs/{runID}", h.GetRun)
		r.Get("/runs/{runID}/verdicts", h.GetRunVerdicts)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler())

	return r
}
