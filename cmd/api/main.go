package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"assettool/internal/adapter/repo"
	"assettool/internal/generation"
	"assettool/internal/http/handlers"
	httpapi "assettool/internal/http/httpapi"
	"assettool/internal/infra"
	"assettool/internal/promptmgr"
	"assettool/internal/providers/media"
	"assettool/internal/providers/prompt"
	"assettool/internal/storage"
)

func main() {
	infra.LoadDotEnv(".env", ".env.local")

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(storage.Options{
		DataDir:       cfg.DataDir,
		EnableBackups: cfg.EnableBackups,
		MaxBackups:    cfg.MaxBackups,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}
	if err := store.Initialize(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize data directory")
	}
	logger.Info().Str("data_dir", store.Root()).Msg("storage ready")

	projects := repo.NewProjectRepository(store)
	assets := repo.NewAssetRepository(store, repo.NewScanLocator(store))
	jobs := repo.NewJobRepository(store)
	prompts := repo.NewPromptRepository(store)

	facade := prompt.NewFacade(prompt.Options{
		BaseURL:      cfg.GeminiBaseURL,
		DefaultModel: cfg.GeminiModel,
		Logger:       logger.With().Str("component", "prompt").Logger(),
	})

	engine := generation.New(generation.Deps{
		Projects: projects,
		Assets:   assets,
		Jobs:     jobs,
		Prompts:  prompts,
		Enhancer: facade,
		Media:    media.NewSimulator(cfg.GenerationScale, logger),
		Files:    store,
		Logger:   logger.With().Str("component", "generation").Logger(),
	}, generation.Options{JobTimeout: cfg.JobTimeout})

	manager := promptmgr.New(facade, prompts, projects, logger)
	if err := manager.Init(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed prompt templates")
	}

	app := &handlers.App{
		Store:          store,
		Projects:       projects,
		Assets:         assets,
		Engine:         engine,
		Prompts:        manager,
		Log:            logger,
		MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
	}
	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Logger:          logger,
	})
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server")
		}
		if err := engine.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("generation tasks interrupted")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}
	logger.Info().Msg("server stopped")
}
