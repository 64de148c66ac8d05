package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/craftline/artisan-marketplace/internal/domain/entities"
	"github.com/craftline/artisan-marketplace/internal/domain/providers"
	"github.com/craftline/artisan-marketplace/internal/domain/repositories"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/observability"
	apperrors "github.com/craftline/artisan-marketplace/pkg/errors"
)

const (
	// Poor-query score weights. Lower composite score means worse query.
	poorQuerySuccessWeight     = 40.0
	poorQueryResultCountWeight = 2.0
	poorQueryConfidenceWeight  = 60.0

	// Queries searched fewer times than this are not judged.
	minSearchesForPoorQuery = 3

	analyticsWindowDays = 30

	suggestCachePrefix     = "search_suggest:"
	suggestCacheTTLSeconds = 3600

	logEventTimeout = 5 * time.Second
)

// Dashboard aggregates search activity over a reporting window.
type Dashboard struct {
	WindowDays           int                `json:"window_days"`
	TotalSearches        int                `json:"total_searches"`
	SuccessfulSearches   int                `json:"successful_searches"`
	SuccessRate          float64            `json:"success_rate"`
	AvgResultCount       float64            `json:"avg_result_count"`
	AvgConfidence        float64            `json:"avg_confidence"`
	AvgResponseTimeMs    float64            `json:"avg_response_time_ms"`
	AIModeSearches       int                `json:"ai_mode_searches"`
	BasicModeSearches    int                `json:"basic_mode_searches"`
	TopQueries           []QueryFrequency   `json:"top_queries"`
	HourlyTrends         []HourlyTrend      `json:"hourly_trends"`
	CategoryDistribution map[string]int     `json:"category_distribution"`
}

// QueryFrequency is one entry in the dashboard's top-query list.
type QueryFrequency struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// HourlyTrend buckets search volume by hour of day.
type HourlyTrend struct {
	Hour        int     `json:"hour"`
	Searches    int     `json:"searches"`
	SuccessRate float64 `json:"success_rate"`
}

// PoorQuery describes a repeatedly failing query.
type PoorQuery struct {
	Query          string  `json:"query"`
	TotalSearches  int     `json:"total_searches"`
	SuccessRate    float64 `json:"success_rate"`
	AvgResultCount float64 `json:"avg_result_count"`
	AvgConfidence  float64 `json:"avg_confidence"`
	Score          float64 `json:"score"`
}

// Recommendation is an operator-facing improvement suggestion derived from
// aggregate search behavior.
type Recommendation struct {
	Priority string `json:"priority"` // high, medium, low
	Area     string `json:"area"`
	Message  string `json:"message"`
}

// SearchAnalyticsService records search events and answers aggregate questions
// about them. Event logging is fire-and-forget so the search path never waits
// on analytics; reads go straight to the repository.
type SearchAnalyticsService struct {
	repo  repositories.SearchAnalyticsRepository
	cache providers.CacheProvider
}

// NewSearchAnalyticsService creates an analytics service. The cache may be
// nil; suggestion lookups then always recompute.
func NewSearchAnalyticsService(repo repositories.SearchAnalyticsRepository, cacheProvider providers.CacheProvider) *SearchAnalyticsService {
	return &SearchAnalyticsService{
		repo:  repo,
		cache: cacheProvider,
	}
}

// LogSearch assigns the event an ID, persists it in the background, and
// returns the ID immediately so responses can reference the event for click
// tracking. Persistence failures are logged, never surfaced.
func (s *SearchAnalyticsService) LogSearch(ctx context.Context, event *entities.SearchEvent) string {
	if s.repo == nil || event == nil {
		return ""
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.NormalizedQuery == "" {
		event.NormalizedQuery = entities.NormalizeQuery(event.Query)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if event.ClickedResults == nil {
		event.ClickedResults = []string{}
	}
	if event.ConversionEvents == nil {
		event.ConversionEvents = []entities.ConversionEvent{}
	}

	// Detach from the request context so logging survives the response.
	go func(event *entities.SearchEvent) {
		bgCtx, cancel := context.WithTimeout(context.Background(), logEventTimeout)
		defer cancel()

		if err := s.repo.LogEvent(bgCtx, event); err != nil {
			observability.GetLogger().Warn().
				Err(err).
				Str("event_id", event.ID).
				Msg("Failed to log search event")
		}
	}(event)

	return event.ID
}

// LogInteraction records a clicked result against an earlier search event.
func (s *SearchAnalyticsService) LogInteraction(ctx context.Context, eventID, productID string) error {
	if s.repo == nil {
		return apperrors.NewInternalError("analytics store not configured", nil)
	}
	if eventID == "" || productID == "" {
		return apperrors.NewValidationError("event id and product id are required")
	}
	return s.repo.AppendClick(ctx, eventID, productID)
}

// LogConversion records a purchase-funnel action against an earlier search event.
func (s *SearchAnalyticsService) LogConversion(ctx context.Context, eventID string, conversion entities.ConversionEvent) error {
	if s.repo == nil {
		return apperrors.NewInternalError("analytics store not configured", nil)
	}
	if eventID == "" || conversion.ProductID == "" {
		return apperrors.NewValidationError("event id and product id are required")
	}
	switch conversion.Type {
	case "add_to_cart", "purchase", "contact_seller":
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown conversion type %q", conversion.Type))
	}
	if conversion.CreatedAt.IsZero() {
		conversion.CreatedAt = time.Now()
	}
	return s.repo.AppendConversion(ctx, eventID, conversion)
}

// GetDashboard aggregates search activity over the last days days.
func (s *SearchAnalyticsService) GetDashboard(ctx context.Context, days int) (*Dashboard, error) {
	if s.repo == nil {
		return nil, apperrors.NewInternalError("analytics store not configured", nil)
	}
	if days <= 0 {
		days = analyticsWindowDays
	}

	events, err := s.repo.ListSince(ctx, time.Now().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}

	dashboard := &Dashboard{
		WindowDays:           days,
		TopQueries:           []QueryFrequency{},
		HourlyTrends:         make([]HourlyTrend, 0, 24),
		CategoryDistribution: make(map[string]int),
	}
	if len(events) == 0 {
		return dashboard, nil
	}

	var resultSum, confidenceSum, responseSum float64
	queryCounts := make(map[string]int)
	hourSearches := make([]int, 24)
	hourSuccesses := make([]int, 24)

	for _, event := range events {
		dashboard.TotalSearches++
		if event.Successful {
			dashboard.SuccessfulSearches++
		}
		resultSum += float64(event.ResultCount)
		confidenceSum += event.AIConfidence
		responseSum += float64(event.ResponseTimeMs)

		switch event.SearchMode {
		case entities.SearchModeAI:
			dashboard.AIModeSearches++
		case entities.SearchModeBasic:
			dashboard.BasicModeSearches++
		}

		queryCounts[event.NormalizedQuery]++
		hour := event.CreatedAt.Hour()
		hourSearches[hour]++
		if event.Successful {
			hourSuccesses[hour]++
		}

		if event.ParsedQuery != nil && event.ParsedQuery.Category != "" {
			dashboard.CategoryDistribution[event.ParsedQuery.Category]++
		}
	}

	total := float64(dashboard.TotalSearches)
	dashboard.SuccessRate = float64(dashboard.SuccessfulSearches) / total
	dashboard.AvgResultCount = resultSum / total
	dashboard.AvgConfidence = confidenceSum / total
	dashboard.AvgResponseTimeMs = responseSum / total
	dashboard.TopQueries = topQueries(queryCounts, 10)

	for hour := 0; hour < 24; hour++ {
		trend := HourlyTrend{Hour: hour, Searches: hourSearches[hour]}
		if hourSearches[hour] > 0 {
			trend.SuccessRate = float64(hourSuccesses[hour]) / float64(hourSearches[hour])
		}
		dashboard.HourlyTrends = append(dashboard.HourlyTrends, trend)
	}

	return dashboard, nil
}

func topQueries(counts map[string]int, limit int) []QueryFrequency {
	frequencies := make([]QueryFrequency, 0, len(counts))
	for query, count := range counts {
		frequencies = append(frequencies, QueryFrequency{Query: query, Count: count})
	}
	sort.Slice(frequencies, func(i, j int) bool {
		if frequencies[i].Count != frequencies[j].Count {
			return frequencies[i].Count > frequencies[j].Count
		}
		return frequencies[i].Query < frequencies[j].Query
	})
	if len(frequencies) > limit {
		frequencies = frequencies[:limit]
	}
	return frequencies
}

// GetPoorPerformingQueries returns the worst-scoring repeated queries in the
// reporting window, worst first. A query needs at least three searches before
// it is judged at all.
func (s *SearchAnalyticsService) GetPoorPerformingQueries(ctx context.Context, limit int) ([]PoorQuery, error) {
	if s.repo == nil {
		return nil, apperrors.NewInternalError("analytics store not configured", nil)
	}
	if limit <= 0 {
		limit = 10
	}

	events, err := s.repo.ListSince(ctx, time.Now().AddDate(0, 0, -analyticsWindowDays))
	if err != nil {
		return nil, err
	}

	type aggregate struct {
		searches      int
		successes     int
		resultSum     float64
		confidenceSum float64
	}
	byQuery := make(map[string]*aggregate)
	for _, event := range events {
		agg := byQuery[event.NormalizedQuery]
		if agg == nil {
			agg = &aggregate{}
			byQuery[event.NormalizedQuery] = agg
		}
		agg.searches++
		if event.Successful {
			agg.successes++
		}
		agg.resultSum += float64(event.ResultCount)
		agg.confidenceSum += event.AIConfidence
	}

	var poor []PoorQuery
	for query, agg := range byQuery {
		if agg.searches < minSearchesForPoorQuery {
			continue
		}
		searches := float64(agg.searches)
		entry := PoorQuery{
			Query:          query,
			TotalSearches:  agg.searches,
			SuccessRate:    float64(agg.successes) / searches,
			AvgResultCount: agg.resultSum / searches,
			AvgConfidence:  agg.confidenceSum / searches,
		}
		entry.Score = entry.SuccessRate*poorQuerySuccessWeight +
			entry.AvgResultCount*poorQueryResultCountWeight +
			entry.AvgConfidence*poorQueryConfidenceWeight
		poor = append(poor, entry)
	}

	sort.Slice(poor, func(i, j int) bool {
		if poor[i].Score != poor[j].Score {
			return poor[i].Score < poor[j].Score
		}
		return poor[i].Query < poor[j].Query
	})
	if len(poor) > limit {
		poor = poor[:limit]
	}
	return poor, nil
}

// GetRecommendations derives operator-facing improvement suggestions from the
// current reporting window.
func (s *SearchAnalyticsService) GetRecommendations(ctx context.Context) ([]Recommendation, error) {
	dashboard, err := s.GetDashboard(ctx, analyticsWindowDays)
	if err != nil {
		return nil, err
	}

	recommendations := []Recommendation{}
	if dashboard.TotalSearches == 0 {
		return recommendations, nil
	}

	if dashboard.SuccessRate < 0.8 {
		recommendations = append(recommendations, Recommendation{
			Priority: "high",
			Area:     "catalog_coverage",
			Message: fmt.Sprintf(
				"Only %.0f%% of searches return results. Review poor performing queries and expand catalog coverage or product tagging.",
				dashboard.SuccessRate*100),
		})
	}
	if dashboard.AvgConfidence < 0.7 {
		recommendations = append(recommendations, Recommendation{
			Priority: "medium",
			Area:     "query_parsing",
			Message: fmt.Sprintf(
				"Average parse confidence is %.2f. Shoppers may be phrasing queries the parser does not understand well.",
				dashboard.AvgConfidence),
		})
	}
	if dashboard.AvgResponseTimeMs > 2000 {
		recommendations = append(recommendations, Recommendation{
			Priority: "medium",
			Area:     "performance",
			Message: fmt.Sprintf(
				"Average search response time is %.0fms. Investigate slow external calls or missing indexes.",
				dashboard.AvgResponseTimeMs),
		})
	}

	poor, err := s.GetPoorPerformingQueries(ctx, 5)
	if err != nil {
		return nil, err
	}
	if len(poor) > 0 {
		queries := make([]string, 0, len(poor))
		for _, entry := range poor {
			queries = append(queries, entry.Query)
		}
		recommendations = append(recommendations, Recommendation{
			Priority: "low",
			Area:     "content",
			Message:  "Repeatedly failing queries: " + strings.Join(queries, ", "),
		})
	}

	return recommendations, nil
}

// GetSimilarSuccessfulSearches suggests alternative queries for a failed
// search by token-set similarity to recent successful searches.
func (s *SearchAnalyticsService) GetSimilarSuccessfulSearches(ctx context.Context, failedQuery string, limit int) ([]string, error) {
	if s.repo == nil {
		return nil, apperrors.NewInternalError("analytics store not configured", nil)
	}
	if limit <= 0 {
		limit = 3
	}

	normalized := entities.NormalizeQuery(failedQuery)
	if normalized == "" {
		return []string{}, nil
	}

	cacheKey := suggestCachePrefix + normalized
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var cached []string
			if json.Unmarshal(data, &cached) == nil {
				return cached, nil
			}
		}
	}

	events, err := s.repo.ListSuccessfulSince(ctx, time.Now().AddDate(0, 0, -analyticsWindowDays))
	if err != nil {
		return nil, err
	}

	failedTokens := tokenSet(normalized)
	type candidate struct {
		query      string
		similarity float64
	}
	seen := make(map[string]struct{})
	var candidates []candidate
	for _, event := range events {
		query := event.NormalizedQuery
		if query == "" || query == normalized {
			continue
		}
		if _, ok := seen[query]; ok {
			continue
		}
		seen[query] = struct{}{}

		similarity := jaccard(failedTokens, tokenSet(query))
		if similarity <= 0 {
			continue
		}
		candidates = append(candidates, candidate{query: query, similarity: similarity})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].similarity != candidates[j].similarity {
			return candidates[i].similarity > candidates[j].similarity
		}
		return candidates[i].query < candidates[j].query
	})

	suggestions := []string{}
	for _, c := range candidates {
		suggestions = append(suggestions, c.query)
		if len(suggestions) == limit {
			break
		}
	}

	if s.cache != nil {
		if data, err := json.Marshal(suggestions); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, suggestCacheTTLSeconds)
		}
	}

	return suggestions, nil
}

func tokenSet(query string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(query) {
		set[token] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// Cleanup removes events older than the retention window and returns how many
// were deleted.
func (s *SearchAnalyticsService) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if s.repo == nil {
		return 0, apperrors.NewInternalError("analytics store not configured", nil)
	}
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return s.repo.DeleteOlderThan(ctx, time.Now().AddDate(0, 0, -retentionDays))
}
