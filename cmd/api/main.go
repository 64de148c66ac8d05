package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/craftline/artisan-marketplace/internal/adapters/cache"
	"github.com/craftline/artisan-marketplace/internal/adapters/database"
	"github.com/craftline/artisan-marketplace/internal/adapters/search"
	"github.com/craftline/artisan-marketplace/internal/api/handlers"
	"github.com/craftline/artisan-marketplace/internal/api/routes"
	"github.com/craftline/artisan-marketplace/internal/application/services"
	"github.com/craftline/artisan-marketplace/internal/domain/providers"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/clients/openai"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/clients/postgres"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/clients/redis"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/clients/typesense"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/observability"
	"github.com/craftline/artisan-marketplace/pkg/config"
	"github.com/craftline/artisan-marketplace/pkg/secrets"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hydrate environment from Vault before reading configuration.
	vaultResult, err := secrets.Hydrate(ctx, secrets.FromEnv(""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load Vault secrets: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)
	logger := observability.GetLogger()

	if vaultResult.Enabled {
		logger.Info().
			Str("path", vaultResult.Path).
			Int("loaded", vaultResult.Loaded).
			Int("skipped", vaultResult.Skipped).
			Msg("Vault secrets applied")
	}

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := shutdown(shutdownCtx); err != nil {
					logger.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Database client is the only hard dependency.
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	logger.Info().Msg("PostgreSQL client initialized")

	// The application works without Redis, Typesense, and OpenAI; each
	// missing dependency just degrades the corresponding feature.
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, running without response caching")
		redisClient = nil
	} else {
		defer redisClient.Close()
		logger.Info().Msg("Redis client initialized")
	}

	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		logger.Warn().Err(err).Msg("Typesense unavailable, suggestions disabled")
		typesenseClient = nil
	} else {
		logger.Info().Msg("Typesense client initialized")
	}

	var cacheProvider providers.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	var languageModel providers.LanguageModelProvider
	var embeddingProvider providers.EmbeddingProvider
	if cfg.OpenAI.APIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY is not set; search runs in basic mode only")
	} else {
		openaiClient, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize OpenAI client")
		} else {
			languageModel = openaiClient
			embeddingProvider = openaiClient
		}
	}

	// Adapters
	productRepo := database.NewProductAdapter(pgClient)
	analyticsRepo := database.NewSearchAnalyticsAdapter(pgClient)

	var suggestionService *services.SuggestionService
	if typesenseClient != nil {
		indexAdapter := search.NewTypesenseAdapter(typesenseClient)
		if err := indexAdapter.InitSchema(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to init Typesense schema")
		}
		suggestionService = services.NewSuggestionService(indexAdapter, cacheProvider)
	}

	vectorCache, err := cache.NewVectorCache(cfg.Search.VectorCacheSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create vector cache")
	}

	// Services
	embeddingService := services.NewEmbeddingService(
		embeddingProvider,
		vectorCache,
		cfg.OpenAI.EmbeddingDimensions,
		cfg.Search.SemanticThreshold,
	)
	embeddingService.SetMetrics(metrics)

	parserService := services.NewQueryParserService(languageModel, cacheProvider)
	parserService.SetMetrics(metrics)

	analyticsService := services.NewSearchAnalyticsService(analyticsRepo, cacheProvider)

	searchService := services.NewSearchService(
		parserService,
		services.NewQueryCompiler(),
		productRepo,
		services.NewSearchRankingService(),
		embeddingService,
		analyticsService,
	)
	searchService.SetPageSizes(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)
	if suggestionService != nil {
		searchService.SetSuggestions(suggestionService)
	}

	// Periodic retention cleanup for analytics events.
	go runRetentionCleanup(ctx, analyticsService, cfg.Analytics.RetentionDays)

	// Handlers and routes
	searchHandler := handlers.NewSearchHandler(searchService, suggestionService, analyticsService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	router := routes.NewRouter(searchHandler, analyticsHandler, metrics)
	handler := router.SetupRoutes()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	logger.Info().Msg("Server stopped")
}

// runRetentionCleanup deletes expired analytics events once a day.
func runRetentionCleanup(ctx context.Context, analytics *services.SearchAnalyticsService, retentionDays int) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(ctx, time.Minute)
			deleted, err := analytics.Cleanup(cleanupCtx, retentionDays)
			cancel()

			logger := observability.GetLogger()
			if err != nil {
				logger.Warn().Err(err).Msg("Analytics retention cleanup failed")
				continue
			}
			if deleted > 0 {
				logger.Info().Int64("deleted", deleted).Msg("Analytics retention cleanup complete")
			}
		}
	}
}
