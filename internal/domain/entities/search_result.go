package entities

// Pagination describes the page of results returned from a search.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	Total       int  `json:"total"`
	HasMore     bool `json:"has_more"`
}

// SearchMetadata carries diagnostic information about how a search was handled.
type SearchMetadata struct {
	QueryType        string  `json:"query_type"`
	Confidence       float64 `json:"confidence"`
	ProcessingTimeMs int64   `json:"processing_time_ms"`
	SearchMode       string  `json:"search_mode"`
	EventID          string  `json:"event_id,omitempty"`

	// SuggestedQueries holds recovery suggestions for zero-result searches.
	SuggestedQueries []string `json:"suggested_queries,omitempty"`

	// NearMatches holds close product hits from the suggestion index when a
	// search returned nothing.
	NearMatches []ProductSuggestion `json:"near_matches,omitempty"`
}

// SearchResult is the full response of one search request.
type SearchResult struct {
	Items          []RankedProduct `json:"items"`
	Pagination     Pagination      `json:"pagination"`
	Insights       string          `json:"insights"`
	SearchMetadata SearchMetadata  `json:"search_metadata"`
}
