package entities

import (
	"strings"
	"time"
)

// Search modes recorded on analytics events.
const (
	SearchModeAI    = "ai"
	SearchModeBasic = "basic"
)

// ConversionEvent records a purchase-funnel action attributed to a search.
type ConversionEvent struct {
	ProductID string    `json:"product_id"`
	Type      string    `json:"type"` // add_to_cart, purchase, contact_seller
	CreatedAt time.Time `json:"created_at"`
}

// SearchEvent represents a single search interaction for analytics.
// Once persisted, only ClickedResults and ConversionEvents may grow;
// every other field is immutable.
type SearchEvent struct {
	ID               string            `json:"id" db:"id"`
	Query            string            `json:"query" db:"query"`
	NormalizedQuery  string            `json:"normalized_query" db:"normalized_query"`
	ParsedQuery      *ParsedQuery      `json:"parsed_query,omitempty" db:"parsed_query"`
	ResultCount      int               `json:"result_count" db:"result_count"`
	UserID           string            `json:"user_id,omitempty" db:"user_id"`
	UserType         string            `json:"user_type" db:"user_type"`
	SessionID        string            `json:"session_id,omitempty" db:"session_id"`
	SearchMode       string            `json:"search_mode" db:"search_mode"`
	AIConfidence     float64           `json:"ai_confidence" db:"ai_confidence"`
	ResponseTimeMs   int               `json:"response_time_ms" db:"response_time_ms"`
	Successful       bool              `json:"successful" db:"successful"`
	ClickedResults   []string          `json:"clicked_results" db:"clicked_results"`
	ConversionEvents []ConversionEvent `json:"conversion_events" db:"conversion_events"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
}

// NormalizeQuery lowercases, trims, and collapses whitespace in a query so
// analytics can group repeated searches of the same text.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(query))), " ")
}
