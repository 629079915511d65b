package httpapi

import (
	"net/http"
	"time"

	"assettool/internal/http/handlers"
	"assettool/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type RouterOptions struct {
	AllowedOrigins  []string
	RateLimitPerMin int
	Logger          zerolog.Logger
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", app.ListProjects)
			r.Post("/", app.CreateProject)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.GetProject)
				r.Put("/", app.UpdateProject)
				r.Delete("/", app.DeleteProject)
				r.Post("/style", app.UploadStyleImages)
				r.Get("/export", app.ExportProject)
				r.Get("/assets", app.ListProjectAssets)
				r.Post("/assets", app.CreateAsset)
			})
		})

		r.Route("/assets/{id}", func(r chi.Router) {
			r.Get("/", app.GetAsset)
			r.Put("/", app.UpdateAsset)
			r.Delete("/", app.DeleteAsset)
			r.Get("/download", app.DownloadAsset)
			r.Get("/generation", app.AssetGeneration)
		})

		r.Route("/generate", func(r chi.Router) {
			r.Get("/active", app.ActiveGenerations)
			r.Get("/status/{jobId}", app.GenerationStatus)
			r.Delete("/cancel/{jobId}", app.CancelGeneration)
			r.Post("/{type}", app.Generate)
		})

		r.Route("/prompts", func(r chi.Router) {
			r.Post("/enhance", app.PromptEnhance)
			r.Post("/breakdown", app.PromptBreakdown)
			r.Post("/suggestions", app.PromptSuggestions)
			r.Post("/score", app.PromptScore)
			r.Get("/templates", app.ListTemplates)
			r.Post("/templates", app.CreateTemplate)
			r.Get("/history/{projectId}", app.PromptHistory)
			r.Post("/history", app.SavePromptHistory)
		})
	})

	return r
}
