package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"assettool/internal/adapter/repo"
	"assettool/internal/generation"
	"assettool/internal/infra"
	"assettool/internal/storage"
)

func main() {
	var (
		days    int
		dataDir string
	)
	flag.IntVar(&days, "days", 30, "Remove finished generation jobs older than this many days")
	flag.StringVar(&dataDir, "data-dir", "", "Data directory (defaults to DATA_DIR)")
	flag.Parse()

	if days <= 0 {
		fmt.Fprintln(os.Stderr, "-days must be positive")
		os.Exit(1)
	}

	infra.LoadDotEnv(".env", ".env.local")
	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "jobcleanup").Logger()
	store, err := storage.NewStore(storage.Options{
		DataDir:       cfg.DataDir,
		EnableBackups: cfg.EnableBackups,
		MaxBackups:    cfg.MaxBackups,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open storage: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := store.Initialize(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize storage: %v\n", err)
		os.Exit(1)
	}

	engine := generation.New(generation.Deps{
		Jobs:   repo.NewJobRepository(store),
		Logger: logger,
	}, generation.Options{})
	defer func() { _ = engine.Shutdown(context.Background()) }()

	removed, err := engine.CleanupOldJobs(ctx, days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cleanup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("removed %d generation jobs older than %d days from %s\n", removed, days, store.Root())
}
