package providers

import (
	"context"
	"errors"
)

// ErrEmbeddingUnavailable indicates the embedding provider could not serve
// the request. Callers are expected to degrade to the deterministic fallback.
var ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

// EmbeddingProvider produces fixed-dimension embedding vectors for texts.
// Vectors are returned in the same order as the input texts.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
