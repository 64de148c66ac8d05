package services

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sort"
	"strings"

	"github.com/craftline/artisan-marketplace/internal/adapters/cache"
	"github.com/craftline/artisan-marketplace/internal/domain/entities"
	"github.com/craftline/artisan-marketplace/internal/domain/providers"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/observability"
)

// DefaultSemanticThreshold is the minimum cosine similarity a product must
// reach to survive semantic filtering.
const DefaultSemanticThreshold = 0.3

// neutralSemanticScore is attached to every result when semantic enhancement
// cannot run to completion, so response shapes stay stable.
const neutralSemanticScore = 0.5

// EmbeddingService produces embedding vectors for search texts and uses them
// to re-rank and filter search results. It never returns an error to callers:
// when the external provider is down it degrades to deterministic hash-based
// vectors, and when enhancement fails mid-flight results pass through with a
// neutral score.
type EmbeddingService struct {
	provider   providers.EmbeddingProvider
	vectors    *cache.VectorCache
	metrics    *observability.Metrics
	dimensions int
	threshold  float64
}

// NewEmbeddingService creates an embedding service. The provider may be nil,
// in which case every vector comes from the deterministic fallback.
func NewEmbeddingService(provider providers.EmbeddingProvider, vectors *cache.VectorCache, dimensions int, threshold float64) *EmbeddingService {
	if threshold <= 0 {
		threshold = DefaultSemanticThreshold
	}
	return &EmbeddingService{
		provider:   provider,
		vectors:    vectors,
		dimensions: dimensions,
		threshold:  threshold,
	}
}

// SetMetrics attaches fallback metrics recording.
func (s *EmbeddingService) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

// Embed returns the embedding vector for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) []float32 {
	return s.EmbedBatch(ctx, []string{text})[0]
}

// EmbedBatch returns one vector per input text, in input order. Cached texts
// are served from the vector cache; all remaining texts go to the provider in
// a single call. Provider failure degrades the uncached texts to fallback
// vectors without failing the batch.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	results := make([][]float32, len(texts))

	var missingIdx []int
	var missingTexts []string
	for i, text := range texts {
		if s.vectors != nil {
			if vector, ok := s.vectors.Get(text); ok {
				results[i] = vector
				if s.metrics != nil {
					s.metrics.CacheHitCount.Add(ctx, 1)
				}
				continue
			}
			if s.metrics != nil {
				s.metrics.CacheMissCount.Add(ctx, 1)
			}
		}
		missingIdx = append(missingIdx, i)
		missingTexts = append(missingTexts, text)
	}

	if len(missingTexts) == 0 {
		return results
	}

	vectors := s.fetchVectors(ctx, missingTexts)
	for j, i := range missingIdx {
		results[i] = vectors[j]
		if s.vectors != nil {
			s.vectors.Put(texts[i], vectors[j])
		}
	}

	return results
}

func (s *EmbeddingService) fetchVectors(ctx context.Context, texts []string) [][]float32 {
	if s.provider != nil {
		vectors, err := s.provider.Embed(ctx, texts)
		if err == nil && len(vectors) == len(texts) {
			return vectors
		}
		logger := observability.LoggerFromContext(ctx)
		logger.Warn().
			Err(err).
			Int("texts", len(texts)).
			Msg("Embedding provider failed, using fallback vectors")
		observability.RecordFallback(ctx, s.metrics, "embedding", "provider_unavailable")
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = s.fallbackVector(text)
	}
	return vectors
}

// fallbackVector derives a unit-length pseudo-embedding from the text alone.
// The same text always yields the same vector, across restarts and processes,
// so cached fallback vectors stay comparable with each other.
func (s *EmbeddingService) fallbackVector(text string) []float32 {
	digest := sha256.Sum256([]byte(cache.Key(text)))
	state := binary.BigEndian.Uint64(digest[:8])

	vector := make([]float32, s.dimensions)
	var norm float64
	for i := range vector {
		state = splitmix64(state)
		value := float64(state>>11)/float64(1<<52) - 1 // uniform in [-1, 1)
		vector[i] = float32(value)
		norm += value * value
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		return vector
	}
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}
	return vector
}

func splitmix64(state uint64) uint64 {
	state += 0x9e3779b97f4a7c15
	z := state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Similarity returns the cosine similarity of two vectors in [-1, 1].
// Mismatched lengths and zero-magnitude vectors yield 0.
func Similarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EnhanceSearch re-orders items by semantic similarity to the query and drops
// items below the similarity threshold. If enhancement cannot complete, the
// input order is preserved and every item carries a neutral semantic score.
func (s *EmbeddingService) EnhanceSearch(ctx context.Context, query string, items []entities.RankedProduct) []entities.RankedProduct {
	if len(items) == 0 {
		return items
	}

	texts := make([]string, 0, len(items)+1)
	texts = append(texts, query)
	for _, item := range items {
		texts = append(texts, productEmbeddingText(item.Product))
	}

	vectors := s.EmbedBatch(ctx, texts)
	queryVector := vectors[0]
	if len(queryVector) == 0 {
		return attachNeutralScores(items)
	}

	enhanced := make([]entities.RankedProduct, 0, len(items))
	for i, item := range items {
		similarity := Similarity(queryVector, vectors[i+1])
		score := similarity * 100
		item.SemanticSimilarity = &similarity
		item.SemanticScore = &score
		if similarity < s.threshold {
			continue
		}
		enhanced = append(enhanced, item)
	}

	sort.SliceStable(enhanced, func(i, j int) bool {
		return *enhanced[i].SemanticSimilarity > *enhanced[j].SemanticSimilarity
	})

	return enhanced
}

func attachNeutralScores(items []entities.RankedProduct) []entities.RankedProduct {
	out := make([]entities.RankedProduct, len(items))
	for i, item := range items {
		similarity := neutralSemanticScore
		score := similarity * 100
		item.SemanticSimilarity = &similarity
		item.SemanticScore = &score
		out[i] = item
	}
	return out
}

func productEmbeddingText(product *entities.Product) string {
	if product == nil {
		return ""
	}
	parts := []string{product.Name, product.Description, product.Category}
	parts = append(parts, product.Tags...)
	return strings.TrimSpace(strings.Join(parts, " "))
}
