package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/generate"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/mock"
	"server/internal/providers/elevenlabs"
	"server/internal/providers/kie"
	"server/internal/registry"
	"server/internal/uploads"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	kieClient := kie.NewClient(kie.Options{BaseURL: cfg.KieBaseURL, Logger: &logger})
	speechClient := elevenlabs.NewClient(elevenlabs.Options{BaseURL: cfg.ElevenLabsBaseURL})
	mockGen := mock.NewGenerator(logger)
	jobs := registry.NewMemory(logger)

	publisher, err := uploads.NewPublisher(cfg.UploadHostURL, cfg.TempUploadsDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare temp uploads")
	}

	service := generate.NewService(generate.Options{
		Kie:                 kieClient,
		Speech:              speechClient,
		Mock:                mockGen,
		Jobs:                jobs,
		Publisher:           publisher,
		PollInterval:        cfg.PollInterval,
		PollAttempts:        cfg.PollAttempts,
		DefaultReferenceURL: cfg.DefaultReferenceURL,
		ScenePolicy:         generate.Policy{SoftFailToMock: true},
		Logger:              logger,
	})

	app := handlers.NewApp(service, logger)
	app.DefaultKieKey = cfg.KieAPIKey
	app.DefaultElevenLabsKey = cfg.ElevenLabsAPIKey

	router := httpapi.NewRouter(app, cfg, logger, publisher.Dir())
	server := infra.NewHTTPServer(cfg, router)

	// Background sweeps: job eviction, mock-job cleanup, temp-file cleanup.
	sweepCtx, cancelSweeps := context.WithCancel(context.Background())
	go jobs.RunSweeper(sweepCtx, registry.DefaultSweepInterval)
	go mockGen.RunSweeper(sweepCtx, 5*time.Minute)
	go publisher.RunSweeper(sweepCtx, 30*time.Minute)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancelSweeps()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
