package entities

// RankedProduct is a catalog product with per-request ranking signals
// attached. It is ephemeral and recomputed on every search.
type RankedProduct struct {
	Product        *Product `json:"product"`
	RelevanceScore float64  `json:"relevance_score"`

	// SemanticSimilarity is the cosine similarity between the query and
	// product embeddings, in [-1, 1]. SemanticScore is the similarity scaled
	// by 100. Both are nil when semantic enhancement did not run.
	SemanticSimilarity *float64 `json:"semantic_similarity,omitempty"`
	SemanticScore      *float64 `json:"semantic_score,omitempty"`

	// ScoreBreakdown maps signal name to its contribution to RelevanceScore.
	ScoreBreakdown map[string]float64 `json:"score_breakdown,omitempty"`
}
