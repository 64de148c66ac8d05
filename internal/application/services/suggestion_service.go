package services

import (
	"context"
	"encoding/json"

	"github.com/craftline/artisan-marketplace/internal/domain/entities"
	"github.com/craftline/artisan-marketplace/internal/domain/providers"
	"github.com/craftline/artisan-marketplace/internal/domain/repositories"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/observability"
)

const (
	productSuggestCachePrefix     = "product_suggest:"
	productSuggestCacheTTLSeconds = 300
	defaultSuggestLimit           = 5
	indexBatchSize                = 100
)

// SuggestionService serves typeahead product suggestions from the search
// index and keeps the index populated from the catalog.
type SuggestionService struct {
	index repositories.ProductIndexRepository
	cache providers.CacheProvider
}

// NewSuggestionService creates a suggestion service. The cache may be nil.
func NewSuggestionService(index repositories.ProductIndexRepository, cacheProvider providers.CacheProvider) *SuggestionService {
	return &SuggestionService{
		index: index,
		cache: cacheProvider,
	}
}

// Suggest returns products whose name or tags match the typed prefix.
func (s *SuggestionService) Suggest(ctx context.Context, prefix string, limit int) ([]entities.ProductSuggestion, error) {
	if limit <= 0 {
		limit = defaultSuggestLimit
	}
	if prefix == "" {
		return []entities.ProductSuggestion{}, nil
	}

	cacheKey := productSuggestCachePrefix + prefix
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var cached []entities.ProductSuggestion
			if json.Unmarshal(data, &cached) == nil {
				return cached, nil
			}
		}
	}

	suggestions, err := s.index.Suggest(ctx, prefix, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(suggestions); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, productSuggestCacheTTLSeconds)
		}
	}

	return suggestions, nil
}

// ReindexAll backfills the suggestion index from the catalog, paging through
// active products. Returns the number of products indexed.
func (s *SuggestionService) ReindexAll(ctx context.Context, products repositories.ProductRepository) (int, error) {
	indexed := 0
	offset := 0

	for {
		batch, err := products.ListActive(ctx, indexBatchSize, offset)
		if err != nil {
			return indexed, err
		}
		if len(batch) == 0 {
			return indexed, nil
		}

		for _, product := range batch {
			if err := s.index.Index(ctx, product); err != nil {
				observability.LoggerFromContext(ctx).Warn().
					Err(err).
					Str("product_id", product.ID).
					Msg("Failed to index product")
				continue
			}
			indexed++
		}

		offset += len(batch)
	}
}
