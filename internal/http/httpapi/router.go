package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
)

// NewRouter assembles the API surface. tempUploadsDir, when non-empty, is
// served at /temp-uploads/ for locally hosted reference-image fallbacks.
func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger, tempUploadsDir string) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS([]string{"http://localhost:5173", "http://localhost:3000"}))
	r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))

	r.Get("/api/health", app.Health)

	r.Route("/api/scene", func(r chi.Router) {
		r.Post("/generate", app.SceneGenerate)
	})

	r.Route("/api/voiceover", func(r chi.Router) {
		r.Get("/voices", app.VoiceoverVoices)
		r.Post("/generate", app.VoiceoverGenerate)
	})

	r.Route("/api/video", func(r chi.Router) {
		r.Post("/generate", app.VideoGenerate)
		r.Get("/status/{jobId}", app.VideoStatus)
	})

	if tempUploadsDir != "" {
		fs := stdhttp.StripPrefix("/temp-uploads/", stdhttp.FileServer(stdhttp.Dir(tempUploadsDir)))
		r.Get("/temp-uploads/*", fs.ServeHTTP)
	}

	r.NotFound(app.NotFound)

	return r
}
