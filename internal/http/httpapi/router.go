// Package httpapi assembles the chi router and its middleware chain.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"renderless/internal/http/handlers"
	"renderless/internal/infra"
	"renderless/internal/middleware"
)

// NewRouter mounts every API route behind the shared middleware chain.
func NewRouter(app *handlers.App, cfg *infra.Config, log infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(log),
		middleware.CORS(cfg.CORSOrigins),
	)

	r.Get("/", app.Root)
	r.Get("/health", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/render", app.RenderImage)
		r.Post("/edit", app.EditImage)
		r.Post("/prompt-preview", app.PromptPreview)
		r.Post("/generate", app.Generate)
		r.Post("/generate/replicate", app.GenerateReplicate)
		r.Post("/generate/style-transfer", app.StyleTransfer)
		r.Post("/analyze", app.AnalyzeImage)
		r.Post("/chat", app.Chat)

		r.Route("/redpen", func(r chi.Router) {
			r.Post("/analyze", app.RedPenAnalyze)
			r.Post("/build-prompt", app.RedPenBuildPrompt)
			r.Post("/execute", app.RedPenExecute)
		})
	})

	return r
}
