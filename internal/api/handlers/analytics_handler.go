package handlers

import (
	"net/http"
	"strings"

	"github.com/craftline/artisan-marketplace/internal/application/services"
)

// AnalyticsHandler handles operator-facing search analytics endpoints.
type AnalyticsHandler struct {
	analytics *services.SearchAnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analytics *services.SearchAnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// GetDashboard handles GET /api/analytics/dashboard
func (h *AnalyticsHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.analytics.GetDashboard(r.Context(), queryInt(r, "days", 30))
	if err != nil {
		respondWithAppError(w, r, err, "failed to build dashboard")
		return
	}
	respondWithJSON(w, http.StatusOK, dashboard)
}

// GetPoorQueries handles GET /api/analytics/poor-queries
func (h *AnalyticsHandler) GetPoorQueries(w http.ResponseWriter, r *http.Request) {
	poor, err := h.analytics.GetPoorPerformingQueries(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		respondWithAppError(w, r, err, "failed to list poor performing queries")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"queries": poor,
		"count":   len(poor),
	})
}

// GetRecommendations handles GET /api/analytics/recommendations
func (h *AnalyticsHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	recommendations, err := h.analytics.GetRecommendations(r.Context())
	if err != nil {
		respondWithAppError(w, r, err, "failed to build recommendations")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"recommendations": recommendations,
		"count":           len(recommendations),
	})
}

// GetSimilarSearches handles GET /api/analytics/similar-searches
func (h *AnalyticsHandler) GetSimilarSearches(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	suggestions, err := h.analytics.GetSimilarSuccessfulSearches(r.Context(), query, queryInt(r, "limit", 3))
	if err != nil {
		respondWithAppError(w, r, err, "failed to find similar searches")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}
