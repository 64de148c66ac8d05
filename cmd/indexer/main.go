package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/craftline/artisan-marketplace/internal/adapters/database"
	"github.com/craftline/artisan-marketplace/internal/adapters/search"
	"github.com/craftline/artisan-marketplace/internal/application/services"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/clients/postgres"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/clients/typesense"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/observability"
	"github.com/craftline/artisan-marketplace/pkg/config"
)

func main() {
	var intervalFlag string
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	observability.InitLogger("artisan-marketplace-indexer", os.Getenv("APP_ENV"))
	logger := observability.GetLogger()

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		parsed, err := time.ParseDuration(intervalValue)
		if err != nil || parsed <= 0 {
			logger.Fatal().Str("interval", intervalValue).Msg("Invalid reindex interval")
		}
		interval = parsed
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx); err != nil {
			logger.Error().Err(err).Msg("Reindex failed")
		}

		if interval <= 0 {
			break
		}

		logger.Info().Dur("next_run_in", interval).Msg("Reindex complete")

		select {
		case <-ctx.Done():
			logger.Info().Msg("Indexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	indexAdapter := search.NewTypesenseAdapter(typesenseClient)
	if err := indexAdapter.InitSchema(ctx); err != nil {
		return err
	}

	productRepo := database.NewProductAdapter(pgClient)
	suggestionService := services.NewSuggestionService(indexAdapter, nil)

	start := time.Now()
	indexed, err := suggestionService.ReindexAll(ctx, productRepo)
	if err != nil {
		return err
	}

	observability.GetLogger().Info().
		Int("indexed", indexed).
		Dur("took", time.Since(start)).
		Msg("Product index rebuilt")

	return nil
}
