package routes

import (
	"net/http"

	"github.com/craftline/artisan-marketplace/internal/api/handlers"
	"github.com/craftline/artisan-marketplace/internal/api/middleware"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	searchHandler    *handlers.SearchHandler
	analyticsHandler *handlers.AnalyticsHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	searchHandler *handlers.SearchHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		searchHandler:    searchHandler,
		analyticsHandler: analyticsHandler,
		metrics:          metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Search endpoints
	r.mux.HandleFunc("GET /api/search", r.searchHandler.Search)
	r.mux.HandleFunc("GET /api/search/suggest", r.searchHandler.Suggest)
	r.mux.HandleFunc("POST /api/search/interactions", r.searchHandler.LogInteraction)
	r.mux.HandleFunc("POST /api/search/conversions", r.searchHandler.LogConversion)

	// Analytics endpoints
	if r.analyticsHandler != nil {
		r.mux.HandleFunc("GET /api/analytics/dashboard", r.analyticsHandler.GetDashboard)
		r.mux.HandleFunc("GET /api/analytics/poor-queries", r.analyticsHandler.GetPoorQueries)
		r.mux.HandleFunc("GET /api/analytics/recommendations", r.analyticsHandler.GetRecommendations)
		r.mux.HandleFunc("GET /api/analytics/similar-searches", r.analyticsHandler.GetSimilarSearches)
	}

	// Apply middleware chain: observability wraps logging wraps CORS
	var handler http.Handler = r.mux
	handler = middleware.CORSMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	return handler
}
