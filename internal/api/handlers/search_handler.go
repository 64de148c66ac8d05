package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/craftline/artisan-marketplace/internal/application/services"
	"github.com/craftline/artisan-marketplace/internal/domain/entities"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/observability"
	apperrors "github.com/craftline/artisan-marketplace/pkg/errors"
)

// SearchHandler handles shopper-facing search endpoints.
type SearchHandler struct {
	search      *services.SearchService
	suggestions *services.SuggestionService
	analytics   *services.SearchAnalyticsService
}

// NewSearchHandler creates a new search handler. Suggestions and analytics
// may be nil when those subsystems are not configured.
func NewSearchHandler(search *services.SearchService, suggestions *services.SuggestionService, analytics *services.SearchAnalyticsService) *SearchHandler {
	return &SearchHandler{
		search:      search,
		suggestions: suggestions,
		analytics:   analytics,
	}
}

// Search handles GET /api/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		respondWithError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	opts := services.SearchOptions{
		Page:   queryInt(r, "page", 0),
		Limit:  queryInt(r, "limit", 0),
		SortBy: r.URL.Query().Get("sort_by"),
	}

	var userCtx *services.UserContext
	if userID, userType := r.URL.Query().Get("user_id"), r.URL.Query().Get("user_type"); userID != "" || userType != "" {
		userCtx = &services.UserContext{
			UserID:    userID,
			UserType:  userType,
			SessionID: r.URL.Query().Get("session_id"),
		}
	}

	result, err := h.search.Search(r.Context(), query, opts, userCtx)
	if err != nil {
		respondWithAppError(w, r, err, "search failed")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

type interactionRequest struct {
	EventID   string `json:"event_id"`
	ProductID string `json:"product_id"`
}

// LogInteraction handles POST /api/search/interactions
func (h *SearchHandler) LogInteraction(w http.ResponseWriter, r *http.Request) {
	if h.analytics == nil {
		respondWithError(w, http.StatusServiceUnavailable, "analytics is not configured")
		return
	}

	var payload interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := h.analytics.LogInteraction(r.Context(), payload.EventID, payload.ProductID); err != nil {
		respondWithAppError(w, r, err, "failed to log interaction")
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

type conversionRequest struct {
	EventID   string `json:"event_id"`
	ProductID string `json:"product_id"`
	Type      string `json:"type"`
}

// LogConversion handles POST /api/search/conversions
func (h *SearchHandler) LogConversion(w http.ResponseWriter, r *http.Request) {
	if h.analytics == nil {
		respondWithError(w, http.StatusServiceUnavailable, "analytics is not configured")
		return
	}

	var payload conversionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	conversion := entities.ConversionEvent{
		ProductID: payload.ProductID,
		Type:      payload.Type,
		CreatedAt: time.Now(),
	}
	if err := h.analytics.LogConversion(r.Context(), payload.EventID, conversion); err != nil {
		respondWithAppError(w, r, err, "failed to log conversion")
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

// Suggest handles GET /api/search/suggest
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	if h.suggestions == nil {
		respondWithError(w, http.StatusServiceUnavailable, "suggestions are not configured")
		return
	}

	prefix := strings.TrimSpace(r.URL.Query().Get("q"))
	if prefix == "" {
		respondWithError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	suggestions, err := h.suggestions.Suggest(r.Context(), prefix, queryInt(r, "limit", 5))
	if err != nil {
		respondWithAppError(w, r, err, "failed to fetch suggestions")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps application error types onto HTTP status codes.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case apperrors.ErrorTypeValidation:
			respondWithError(w, http.StatusBadRequest, appErr.Message)
			return
		case apperrors.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, appErr.Message)
			return
		case apperrors.ErrorTypeConflict:
			respondWithError(w, http.StatusConflict, appErr.Message)
			return
		case apperrors.ErrorTypeUnauthorized:
			respondWithError(w, http.StatusUnauthorized, appErr.Message)
			return
		}
	}

	observability.LoggerFromContext(r.Context()).Error().Err(err).Msg(fallbackMessage)
	respondWithError(w, http.StatusInternalServerError, fallbackMessage)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
