package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"renderless/internal/chat"
	"renderless/internal/http/handlers"
	"renderless/internal/http/httpapi"
	"renderless/internal/imaging"
	"renderless/internal/infra"
	"renderless/internal/providers/openai"
	"renderless/internal/providers/replicate"
	"renderless/internal/redpen"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	pool := imaging.NewPool(cfg.PrepareWorkers)

	openaiClient := openai.NewClient(openai.Options{
		APIKey:       cfg.OpenAIAPIKey,
		Model:        cfg.OpenAIModel,
		VisionModel:  cfg.OpenAIVisionModel,
		BaseURL:      cfg.OpenAIBaseURL,
		Organization: cfg.OpenAIOrg,
		Logger:       &logger,
	})
	replicateClient := replicate.NewClient(replicate.Options{
		APIToken: cfg.ReplicateAPIToken,
		BaseURL:  cfg.ReplicateBaseURL,
		Logger:   &logger,
	})

	if !openaiClient.HasCredentials() {
		logger.Warn().Msg("OPENAI_API_KEY not set, image edits and chat will fail")
	}
	if cfg.ImageBackend == infra.BackendReplicate && !replicateClient.HasCredentials() {
		logger.Warn().Msg("REPLICATE_API_TOKEN not set, diffusion endpoints will fail")
	}

	negotiator := chat.NewNegotiator(openaiClient, &logger)
	interpreter := redpen.NewInterpreter(openaiClient, replicateClient, &logger)

	app := handlers.NewApp(cfg, logger, pool, openaiClient, replicateClient, negotiator, interpreter)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("backend", cfg.ImageBackend).
			Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != os.ErrClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
