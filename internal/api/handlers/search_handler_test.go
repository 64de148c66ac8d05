package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftline/artisan-marketplace/internal/application/services"
	"github.com/craftline/artisan-marketplace/internal/domain/entities"
	apperrors "github.com/craftline/artisan-marketplace/pkg/errors"
)

type stubProductRepo struct {
	products []*entities.Product
}

func (r *stubProductRepo) Search(_ context.Context, _ entities.StoreQuery) ([]*entities.Product, error) {
	return r.products, nil
}

func (r *stubProductRepo) GetByID(_ context.Context, _ string) (*entities.Product, error) {
	return nil, apperrors.NewNotFoundError("product not found")
}

func (r *stubProductRepo) ListActive(_ context.Context, _, _ int) ([]*entities.Product, error) {
	return nil, nil
}

type stubAnalyticsRepo struct {
	mu     sync.Mutex
	events []*entities.SearchEvent
	clicks map[string]int
}

func newStubAnalyticsRepo() *stubAnalyticsRepo {
	return &stubAnalyticsRepo{clicks: map[string]int{}}
}

func (r *stubAnalyticsRepo) LogEvent(_ context.Context, event *entities.SearchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *stubAnalyticsRepo) AppendClick(_ context.Context, eventID, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if eventID == "missing" {
		return apperrors.NewNotFoundError("search event not found")
	}
	r.clicks[eventID]++
	return nil
}

func (r *stubAnalyticsRepo) AppendConversion(_ context.Context, _ string, _ entities.ConversionEvent) error {
	return nil
}

func (r *stubAnalyticsRepo) ListSince(_ context.Context, _ time.Time) ([]*entities.SearchEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entities.SearchEvent{}, r.events...), nil
}

func (r *stubAnalyticsRepo) ListSuccessfulSince(_ context.Context, _ time.Time) ([]*entities.SearchEvent, error) {
	return nil, nil
}

func (r *stubAnalyticsRepo) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newTestSearchHandler(products []*entities.Product) *SearchHandler {
	searchService := services.NewSearchService(
		services.NewQueryParserService(nil, nil),
		services.NewQueryCompiler(),
		&stubProductRepo{products: products},
		services.NewSearchRankingService(),
		nil,
		nil,
	)
	return NewSearchHandler(searchService, nil, services.NewSearchAnalyticsService(newStubAnalyticsRepo(), nil))
}

func TestSearchHandler_Search(t *testing.T) {
	handler := newTestSearchHandler([]*entities.Product{
		{ID: "p1", Name: "Blue Vase", Category: "Pottery", IsActive: true, AvailableQuantity: 2},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=blue+vase", nil)
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result entities.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Items, 1)
	assert.Equal(t, "p1", result.Items[0].Product.ID)
	assert.Equal(t, 1, result.Pagination.Total)
	assert.Equal(t, entities.SearchModeBasic, result.SearchMetadata.SearchMode)
}

func TestSearchHandler_SearchMissingQuery(t *testing.T) {
	handler := newTestSearchHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "required")
}

func TestSearchHandler_SearchPassesPaginationParams(t *testing.T) {
	var products []*entities.Product
	for i := 0; i < 30; i++ {
		products = append(products, &entities.Product{
			ID: "p", Name: "Pottery Bowl", IsActive: true, AvailableQuantity: 1,
		})
	}
	handler := newTestSearchHandler(products)

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=pottery&page=2&limit=10", nil)
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result entities.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Pagination.CurrentPage)
	assert.Len(t, result.Items, 10)
}

func TestSearchHandler_LogInteraction(t *testing.T) {
	repo := newStubAnalyticsRepo()
	handler := NewSearchHandler(nil, nil, services.NewSearchAnalyticsService(repo, nil))

	body := strings.NewReader(`{"event_id": "evt-1", "product_id": "prod-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/search/interactions", body)
	rec := httptest.NewRecorder()

	handler.LogInteraction(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, repo.clicks["evt-1"])
}

func TestSearchHandler_LogInteractionUnknownEvent(t *testing.T) {
	handler := NewSearchHandler(nil, nil, services.NewSearchAnalyticsService(newStubAnalyticsRepo(), nil))

	body := strings.NewReader(`{"event_id": "missing", "product_id": "prod-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/search/interactions", body)
	rec := httptest.NewRecorder()

	handler.LogInteraction(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchHandler_LogInteractionInvalidBody(t *testing.T) {
	handler := NewSearchHandler(nil, nil, services.NewSearchAnalyticsService(newStubAnalyticsRepo(), nil))

	req := httptest.NewRequest(http.MethodPost, "/api/search/interactions", strings.NewReader("not json"))
	rec := httptest.NewRecorder()

	handler.LogInteraction(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandler_LogConversionRejectsUnknownType(t *testing.T) {
	handler := NewSearchHandler(nil, nil, services.NewSearchAnalyticsService(newStubAnalyticsRepo(), nil))

	body := strings.NewReader(`{"event_id": "evt-1", "product_id": "prod-1", "type": "teleport"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/search/conversions", body)
	rec := httptest.NewRecorder()

	handler.LogConversion(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandler_SuggestWithoutIndex(t *testing.T) {
	handler := NewSearchHandler(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/search/suggest?q=vas", nil)
	rec := httptest.NewRecorder()

	handler.Suggest(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnalyticsHandler_Dashboard(t *testing.T) {
	repo := newStubAnalyticsRepo()
	repo.events = append(repo.events, &entities.SearchEvent{
		NormalizedQuery: "blue pottery",
		ResultCount:     5,
		Successful:      true,
		SearchMode:      entities.SearchModeAI,
		CreatedAt:       time.Now().Add(-time.Hour),
	})
	handler := NewAnalyticsHandler(services.NewSearchAnalyticsService(repo, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/dashboard?days=7", nil)
	rec := httptest.NewRecorder()

	handler.GetDashboard(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var dashboard services.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dashboard))
	assert.Equal(t, 1, dashboard.TotalSearches)
	assert.Equal(t, 7, dashboard.WindowDays)
}

func TestAnalyticsHandler_SimilarSearchesRequiresQuery(t *testing.T) {
	handler := NewAnalyticsHandler(services.NewSearchAnalyticsService(newStubAnalyticsRepo(), nil))

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/similar-searches", nil)
	rec := httptest.NewRecorder()

	handler.GetSimilarSearches(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
