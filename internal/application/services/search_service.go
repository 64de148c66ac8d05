package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/craftline/artisan-marketplace/internal/domain/entities"
	"github.com/craftline/artisan-marketplace/internal/domain/repositories"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/observability"
	apperrors "github.com/craftline/artisan-marketplace/pkg/errors"
)

const (
	defaultSearchTimeout = 10 * time.Second

	// Semantic enhancement only runs when the joined keywords carry enough
	// signal to embed meaningfully.
	minSemanticQueryLength = 4

	defaultPageSize = 20
	maxPageSize     = 100

	zeroResultNearMatchLimit = 5
)

// SearchOptions carries per-request pagination and ordering preferences.
type SearchOptions struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	SortBy string `json:"sort_by"`
}

// SearchService orchestrates the full search pipeline: parse, compile, fetch,
// rank, semantically enhance, paginate, and log. Every stage after the catalog
// fetch degrades rather than fails, so shoppers always get a result page as
// long as the catalog store is up.
type SearchService struct {
	parser    *QueryParserService
	compiler  *QueryCompiler
	products  repositories.ProductRepository
	ranker    *SearchRankingService
	embedding *EmbeddingService
	analytics *SearchAnalyticsService

	suggestions *SuggestionService

	defaultPageSize int
	maxPageSize     int
	timeout         time.Duration
}

// NewSearchService wires the search pipeline. The analytics service may be
// nil; searches then run without event logging or zero-result suggestions.
func NewSearchService(
	parser *QueryParserService,
	compiler *QueryCompiler,
	products repositories.ProductRepository,
	ranker *SearchRankingService,
	embedding *EmbeddingService,
	analytics *SearchAnalyticsService,
) *SearchService {
	return &SearchService{
		parser:          parser,
		compiler:        compiler,
		products:        products,
		ranker:          ranker,
		embedding:       embedding,
		analytics:       analytics,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		timeout:         defaultSearchTimeout,
	}
}

// SetSuggestions enables near-match product recovery for zero-result
// searches via the suggestion index.
func (s *SearchService) SetSuggestions(suggestions *SuggestionService) {
	s.suggestions = suggestions
}

// SetPageSizes overrides the default and maximum page sizes.
func (s *SearchService) SetPageSizes(defaultSize, maxSize int) {
	if defaultSize > 0 {
		s.defaultPageSize = defaultSize
	}
	if maxSize > 0 {
		s.maxPageSize = maxSize
	}
}

// SetTimeout overrides the per-search deadline.
func (s *SearchService) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.timeout = timeout
	}
}

// Search executes one search request end to end.
func (s *SearchService) Search(ctx context.Context, query string, opts SearchOptions, userCtx *UserContext) (*entities.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.NewValidationError("search query is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := observability.StartSpan(ctx, "SearchService.Search")
	defer span.End()

	start := time.Now()
	page, limit := s.normalizePaging(opts)

	parsed := s.parser.Parse(ctx, query, userCtx)
	storeQuery := s.compiler.Compile(parsed)

	candidates, err := s.products.Search(ctx, storeQuery)
	if err != nil {
		return nil, err
	}

	ranked := s.ranker.Rank(candidates, parsed)

	if s.embedding != nil && len(parsed.JoinedKeywords()) >= minSemanticQueryLength {
		ranked = s.embedding.EnhanceSearch(ctx, parsed.JoinedKeywords(), ranked)
	}

	if opts.SortBy != "" && opts.SortBy != SortRelevance {
		ranked = s.ranker.Sort(ranked, opts.SortBy)
	}

	total := len(ranked)
	items := paginate(ranked, page, limit)
	elapsed := time.Since(start)

	searchMode := entities.SearchModeAI
	if parsed.Source == entities.ParseSourceFallback {
		searchMode = entities.SearchModeBasic
	}

	result := &entities.SearchResult{
		Items: items,
		Pagination: entities.Pagination{
			CurrentPage: page,
			TotalPages:  totalPages(total, limit),
			Total:       total,
			HasMore:     page*limit < total,
		},
		Insights: s.buildInsights(parsed, total),
		SearchMetadata: entities.SearchMetadata{
			QueryType:        parsed.Intent,
			Confidence:       parsed.Confidence,
			ProcessingTimeMs: elapsed.Milliseconds(),
			SearchMode:       searchMode,
		},
	}

	if total == 0 && s.suggestions != nil {
		if nearMatches, err := s.suggestions.Suggest(ctx, strings.TrimSpace(query), zeroResultNearMatchLimit); err == nil {
			result.SearchMetadata.NearMatches = nearMatches
		}
	}

	if s.analytics != nil {
		if total == 0 {
			if suggestions, err := s.analytics.GetSimilarSuccessfulSearches(ctx, query, 3); err == nil {
				result.SearchMetadata.SuggestedQueries = suggestions
			}
		}

		event := &entities.SearchEvent{
			Query:          query,
			ParsedQuery:    parsed,
			ResultCount:    total,
			SearchMode:     searchMode,
			AIConfidence:   parsed.Confidence,
			ResponseTimeMs: int(elapsed.Milliseconds()),
			Successful:     total > 0,
		}
		if userCtx != nil {
			event.UserID = userCtx.UserID
			event.UserType = userCtx.UserType
			event.SessionID = userCtx.SessionID
		}
		result.SearchMetadata.EventID = s.analytics.LogSearch(ctx, event)
	}

	return result, nil
}

func (s *SearchService) normalizePaging(opts SearchOptions) (page, limit int) {
	page = opts.Page
	if page < 1 {
		page = 1
	}
	limit = opts.Limit
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	return page, limit
}

func paginate(items []entities.RankedProduct, page, limit int) []entities.RankedProduct {
	offset := (page - 1) * limit
	if offset >= len(items) {
		return []entities.RankedProduct{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func totalPages(total, limit int) int {
	if total == 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}

// buildInsights composes the shopper-facing summary line for a result set.
func (s *SearchService) buildInsights(parsed *entities.ParsedQuery, total int) string {
	if total == 0 {
		return "We couldn't find matching items. Try fewer filters or a broader search."
	}

	var parts []string
	if parsed.Intent == entities.IntentGift {
		parts = append(parts, "These handpicked pieces make thoughtful gifts.")
	}
	if parsed.Occasion != "" {
		parts = append(parts, fmt.Sprintf("Great options for a %s.", parsed.Occasion))
	}
	if parsed.Category != "" {
		parts = append(parts, fmt.Sprintf("Showing %s from independent artisans.", parsed.Category))
	}
	if total > 20 {
		parts = append(parts, "Many options available - use filters to narrow down.")
	} else if total <= 5 {
		parts = append(parts, "A small, curated selection matches your search.")
	}

	if len(parts) == 0 {
		return fmt.Sprintf("Found %d handmade items matching your search.", total)
	}
	return strings.Join(parts, " ")
}
