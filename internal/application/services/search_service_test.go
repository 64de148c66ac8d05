package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftline/artisan-marketplace/internal/domain/entities"
	"github.com/craftline/artisan-marketplace/internal/domain/providers"
	apperrors "github.com/craftline/artisan-marketplace/pkg/errors"
)

type fakeProductRepo struct {
	products  []*entities.Product
	lastQuery entities.StoreQuery
	err       error
}

func (r *fakeProductRepo) Search(_ context.Context, query entities.StoreQuery) ([]*entities.Product, error) {
	r.lastQuery = query
	if r.err != nil {
		return nil, r.err
	}
	return r.products, nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, id string) (*entities.Product, error) {
	for _, product := range r.products {
		if product.ID == id {
			return product, nil
		}
	}
	return nil, apperrors.NewNotFoundError("product not found")
}

func (r *fakeProductRepo) ListActive(_ context.Context, limit, offset int) ([]*entities.Product, error) {
	if offset >= len(r.products) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.products) {
		end = len(r.products)
	}
	return r.products[offset:end], nil
}

func newTestSearchService(products *fakeProductRepo, llm providers.LanguageModelProvider, analytics *SearchAnalyticsService) *SearchService {
	return NewSearchService(
		NewQueryParserService(llm, nil),
		NewQueryCompiler(),
		products,
		NewSearchRankingService(),
		nil,
		analytics,
	)
}

func giftSearchCatalog() []*entities.Product {
	return []*entities.Product{
		{
			ID: "vase", Name: "Blue Glazed Vase", Description: "hand-thrown pottery vase",
			Category: "Pottery", Price: 1500, Tags: []string{"blue", "vase"},
			Views: 800, Likes: 40, Rating: 4.5, IsActive: true, AvailableQuantity: 3,
		},
		{
			ID: "bowl", Name: "Clay Serving Bowl", Description: "rustic pottery bowl",
			Category: "Pottery", Price: 900, Tags: []string{"bowl"},
			Views: 200, Likes: 10, Rating: 4.0, IsActive: true, AvailableQuantity: 5,
		},
		{
			ID: "plate", Name: "Ceramic Plate", Description: "simple dinner plate",
			Category: "Pottery", Price: 400,
			Views: 50, Likes: 2, Rating: 3.5, IsActive: true, AvailableQuantity: 10,
		},
	}
}

func TestSearch_EndToEndWithModel(t *testing.T) {
	llm := &fakeLanguageModel{response: `{
		"intent": "gift",
		"category": "Pottery",
		"keywords": ["blue", "pottery"],
		"priceRange": {"max": 2000}
	}`}
	products := &fakeProductRepo{products: giftSearchCatalog()}
	svc := newTestSearchService(products, llm, nil)

	result, err := svc.Search(context.Background(), "blue pottery under 2000 for gifts", SearchOptions{}, nil)

	require.NoError(t, err)
	require.Len(t, result.Items, 3)

	// The vase matches both keywords in name+description plus category and
	// price; it must lead.
	assert.Equal(t, "vase", result.Items[0].Product.ID)
	assert.Greater(t, result.Items[0].RelevanceScore, result.Items[1].RelevanceScore)

	assert.Equal(t, entities.SearchModeAI, result.SearchMetadata.SearchMode)
	assert.Equal(t, entities.IntentGift, result.SearchMetadata.QueryType)
	assert.Equal(t, 1.0, result.SearchMetadata.Confidence)
	assert.GreaterOrEqual(t, result.SearchMetadata.ProcessingTimeMs, int64(0))
	assert.Contains(t, result.Insights, "gifts")

	// The compiled filter reached the catalog store with the sellable guard.
	assert.Contains(t, products.lastQuery.Where, entities.Eq("category", "Pottery"))
	assert.Contains(t, products.lastQuery.Where, entities.Lte("price", 2000.0))
	assert.Contains(t, products.lastQuery.Where, entities.Eq("is_active", true))
	assert.Contains(t, products.lastQuery.Where, entities.Gte("available_quantity", 1))
}

func TestSearch_ModelFailureDegradesToBasicMode(t *testing.T) {
	llm := &fakeLanguageModel{err: providers.ErrLanguageModelUnavailable}
	products := &fakeProductRepo{products: giftSearchCatalog()}
	svc := newTestSearchService(products, llm, nil)

	result, err := svc.Search(context.Background(), "blue pottery under 2000 for gifts", SearchOptions{}, nil)

	require.NoError(t, err)
	assert.Equal(t, entities.SearchModeBasic, result.SearchMetadata.SearchMode)
	assert.NotEmpty(t, result.Items)
	assert.Equal(t, "vase", result.Items[0].Product.ID)
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	svc := newTestSearchService(&fakeProductRepo{}, nil, nil)

	_, err := svc.Search(context.Background(), "   ", SearchOptions{}, nil)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
}

func TestSearch_CatalogFailurePropagates(t *testing.T) {
	products := &fakeProductRepo{err: apperrors.NewInternalError("db down", nil)}
	svc := newTestSearchService(products, nil, nil)

	_, err := svc.Search(context.Background(), "pottery", SearchOptions{}, nil)
	assert.Error(t, err)
}

func TestSearch_Pagination(t *testing.T) {
	var catalog []*entities.Product
	for i := 0; i < 25; i++ {
		catalog = append(catalog, &entities.Product{
			ID: string(rune('a'+i)), Name: "Pottery Piece",
			Category: "Pottery", IsActive: true, AvailableQuantity: 1,
		})
	}
	products := &fakeProductRepo{products: catalog}
	svc := newTestSearchService(products, nil, nil)

	result, err := svc.Search(context.Background(), "pottery", SearchOptions{Page: 2, Limit: 10}, nil)

	require.NoError(t, err)
	assert.Len(t, result.Items, 10)
	assert.Equal(t, 2, result.Pagination.CurrentPage)
	assert.Equal(t, 3, result.Pagination.TotalPages)
	assert.Equal(t, 25, result.Pagination.Total)
	assert.True(t, result.Pagination.HasMore)

	lastPage, err := svc.Search(context.Background(), "pottery", SearchOptions{Page: 3, Limit: 10}, nil)
	require.NoError(t, err)
	assert.Len(t, lastPage.Items, 5)
	assert.False(t, lastPage.Pagination.HasMore)

	beyond, err := svc.Search(context.Background(), "pottery", SearchOptions{Page: 9, Limit: 10}, nil)
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
}

func TestSearch_PagingDefaultsAndCaps(t *testing.T) {
	products := &fakeProductRepo{products: giftSearchCatalog()}
	svc := newTestSearchService(products, nil, nil)
	svc.SetPageSizes(2, 3)

	defaulted, err := svc.Search(context.Background(), "pottery", SearchOptions{Page: -4}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, defaulted.Pagination.CurrentPage)
	assert.Len(t, defaulted.Items, 2)

	capped, err := svc.Search(context.Background(), "pottery", SearchOptions{Limit: 500}, nil)
	require.NoError(t, err)
	assert.Len(t, capped.Items, 3)
}

func TestSearch_SortOverride(t *testing.T) {
	products := &fakeProductRepo{products: giftSearchCatalog()}
	svc := newTestSearchService(products, nil, nil)

	result, err := svc.Search(context.Background(), "pottery", SearchOptions{SortBy: SortPriceAsc}, nil)

	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	assert.Equal(t, "plate", result.Items[0].Product.ID)
	assert.Equal(t, "bowl", result.Items[1].Product.ID)
	assert.Equal(t, "vase", result.Items[2].Product.ID)
}

func TestSearch_LogsEventAndReturnsEventID(t *testing.T) {
	repo := newFakeAnalyticsRepo()
	analytics := NewSearchAnalyticsService(repo, nil)
	products := &fakeProductRepo{products: giftSearchCatalog()}
	svc := newTestSearchService(products, nil, analytics)

	userCtx := &UserContext{UserID: "user-1", UserType: "buyer", SessionID: "sess-9"}
	result, err := svc.Search(context.Background(), "blue pottery", SearchOptions{}, userCtx)

	require.NoError(t, err)
	require.NotEmpty(t, result.SearchMetadata.EventID)

	event := waitForEvent(t, repo)
	assert.Equal(t, result.SearchMetadata.EventID, event.ID)
	assert.Equal(t, "blue pottery", event.Query)
	assert.Equal(t, 3, event.ResultCount)
	assert.True(t, event.Successful)
	assert.Equal(t, entities.SearchModeBasic, event.SearchMode)
	assert.Equal(t, "user-1", event.UserID)
	assert.Equal(t, "sess-9", event.SessionID)
	require.NotNil(t, event.ParsedQuery)
	assert.Equal(t, entities.ParseSourceFallback, event.ParsedQuery.Source)
}

func TestSearch_ZeroResultsSuggestsSimilarQueries(t *testing.T) {
	repo := newFakeAnalyticsRepo()
	repo.addEvent("blue pottery", 6, 0.9)
	analytics := NewSearchAnalyticsService(repo, nil)
	products := &fakeProductRepo{}
	svc := newTestSearchService(products, nil, analytics)

	result, err := svc.Search(context.Background(), "blue pottery bowls", SearchOptions{}, nil)

	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, []string{"blue pottery"}, result.SearchMetadata.SuggestedQueries)
	assert.Contains(t, result.Insights, "couldn't find")

	// The zero-result search still gets logged.
	event := waitForEvent(t, repo)
	assert.False(t, event.Successful)
	assert.Zero(t, event.ResultCount)
}

type fakeProductIndex struct {
	suggestions []entities.ProductSuggestion
	lastPrefix  string
}

func (f *fakeProductIndex) Index(_ context.Context, _ *entities.Product) error { return nil }

func (f *fakeProductIndex) Delete(_ context.Context, _ string) error { return nil }

func (f *fakeProductIndex) Suggest(_ context.Context, prefix string, limit int) ([]entities.ProductSuggestion, error) {
	f.lastPrefix = prefix
	if limit < len(f.suggestions) {
		return f.suggestions[:limit], nil
	}
	return f.suggestions, nil
}

func TestSearch_ZeroResultsSurfacesNearMatchProducts(t *testing.T) {
	index := &fakeProductIndex{suggestions: []entities.ProductSuggestion{
		{ID: "vase", Name: "Blue Pottery Vase", Category: "Pottery", Price: 1500},
	}}
	svc := newTestSearchService(&fakeProductRepo{}, nil, nil)
	svc.SetSuggestions(NewSuggestionService(index, nil))

	result, err := svc.Search(context.Background(), "blue pottery bowls", SearchOptions{}, nil)

	require.NoError(t, err)
	assert.Empty(t, result.Items)
	require.Len(t, result.SearchMetadata.NearMatches, 1)
	assert.Equal(t, "vase", result.SearchMetadata.NearMatches[0].ID)
	assert.Equal(t, "blue pottery bowls", index.lastPrefix)
}

func TestSearch_NearMatchesOmittedWhenResultsExist(t *testing.T) {
	index := &fakeProductIndex{suggestions: []entities.ProductSuggestion{
		{ID: "vase", Name: "Blue Pottery Vase"},
	}}
	svc := newTestSearchService(&fakeProductRepo{products: giftSearchCatalog()}, nil, nil)
	svc.SetSuggestions(NewSuggestionService(index, nil))

	result, err := svc.Search(context.Background(), "pottery", SearchOptions{}, nil)

	require.NoError(t, err)
	assert.NotEmpty(t, result.Items)
	assert.Empty(t, result.SearchMetadata.NearMatches)
	assert.Empty(t, index.lastPrefix)
}

func TestSearch_SemanticEnhancementSkippedForShortKeywords(t *testing.T) {
	products := &fakeProductRepo{products: giftSearchCatalog()}
	embedProvider := &fakeEmbedProvider{fail: true}
	vectors := newTestVectorCache(t)
	embedding := NewEmbeddingService(embedProvider, vectors, 8, 0.99)

	svc := NewSearchService(
		NewQueryParserService(nil, nil),
		NewQueryCompiler(),
		products,
		NewSearchRankingService(),
		embedding,
		nil,
	)

	// "mug" joins to 3 characters: below the semantic minimum, so the
	// embedding provider is never consulted.
	_, err := svc.Search(context.Background(), "mug", SearchOptions{}, nil)
	require.NoError(t, err)
	assert.Zero(t, embedProvider.calls)

	// A longer keyword set does trigger enhancement.
	_, err = svc.Search(context.Background(), "pottery", SearchOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, embedProvider.calls)
}

func TestSearch_RespectsCallerDeadline(t *testing.T) {
	products := &fakeProductRepo{products: giftSearchCatalog()}
	svc := newTestSearchService(products, nil, nil)
	svc.SetTimeout(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context still flows through; the in-memory repo ignores
	// it, so the search completes. This guards the wiring, not the store.
	_, err := svc.Search(ctx, "pottery", SearchOptions{}, nil)
	assert.NoError(t, err)
}

func TestBuildInsights(t *testing.T) {
	svc := newTestSearchService(&fakeProductRepo{}, nil, nil)

	tests := []struct {
		name   string
		parsed *entities.ParsedQuery
		total  int
		want   string
	}{
		{
			name:   "zero results",
			parsed: &entities.ParsedQuery{},
			total:  0,
			want:   "couldn't find",
		},
		{
			name:   "gift intent",
			parsed: &entities.ParsedQuery{Intent: entities.IntentGift},
			total:  10,
			want:   "thoughtful gifts",
		},
		{
			name:   "occasion",
			parsed: &entities.ParsedQuery{Occasion: "wedding"},
			total:  10,
			want:   "for a wedding",
		},
		{
			name:   "category",
			parsed: &entities.ParsedQuery{Category: "Jewelry"},
			total:  10,
			want:   "Showing Jewelry",
		},
		{
			name:   "large result set",
			parsed: &entities.ParsedQuery{},
			total:  50,
			want:   "narrow down",
		},
		{
			name:   "small result set",
			parsed: &entities.ParsedQuery{},
			total:  3,
			want:   "curated selection",
		},
		{
			name:   "plain medium result set",
			parsed: &entities.ParsedQuery{},
			total:  12,
			want:   "Found 12 handmade items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, svc.buildInsights(tt.parsed, tt.total), tt.want)
		})
	}
}
