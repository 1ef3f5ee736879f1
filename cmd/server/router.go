package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/carousel-api/internal/api"
	apiMiddleware "github.com/phrazzld/carousel-api/internal/api/middleware"
)

const requestTimeout = 60 * time.Second

// setupRouter creates and configures the application's HTTP router.
// Everything under /api requires a bearer token.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.tokenValidator)
	generationHandler := api.NewGenerationHandler(app.generationService, app.logger)
	exportHandler := api.NewExportHandler(app.exports, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Route("/generations", func(r chi.Router) {
			r.Post("/", generationHandler.CreateGeneration)
			r.Get("/", generationHandler.ListGenerations)
			r.Get("/{id}", generationHandler.GetGeneration)
			r.Patch("/{id}", generationHandler.UpdateGeneration)
			r.Delete("/{id}", generationHandler.DeleteGeneration)
		})

		r.Post("/projects/{id}/exports", exportHandler.CreateExport)
		r.Get("/exports/{id}", exportHandler.GetExport)

		r.Post("/prompts/preview", api.PreviewPrompt)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}
