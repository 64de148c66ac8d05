package services

import (
	"sort"
	"strings"

	"github.com/craftline/artisan-marketplace/internal/domain/entities"
)

// Relevance weights. Scores are additive; the breakdown on each ranked
// product records every non-zero contribution under these names.
const (
	keywordNameWeight   = 10.0
	keywordDescWeight   = 5.0
	categoryMatchWeight = 15.0
	priceInRangeWeight  = 8.0
	viewsWeight         = 0.01
	likesWeight         = 0.1
	ratingWeight        = 2.0
	customizableWeight  = 5.0
	defaultPriceCeiling = 100000.0
)

// Sort keys accepted by Sort. Anything else falls back to relevance order.
const (
	SortRelevance  = "relevance"
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortNewest     = "newest"
	SortPopularity = "popularity"
	SortRating     = "rating"
)

// SearchRankingService scores candidate products against a parsed query.
// Scoring is pure: no I/O, no randomness, and equal scores keep the candidate
// order handed in.
type SearchRankingService struct{}

// NewSearchRankingService creates a ranking service.
func NewSearchRankingService() *SearchRankingService {
	return &SearchRankingService{}
}

// Rank scores every candidate and returns them ordered by relevance,
// highest first. Ties preserve the input order.
func (s *SearchRankingService) Rank(products []*entities.Product, parsed *entities.ParsedQuery) []entities.RankedProduct {
	ranked := make([]entities.RankedProduct, 0, len(products))
	for _, product := range products {
		score, breakdown := s.score(product, parsed)
		ranked = append(ranked, entities.RankedProduct{
			Product:        product,
			RelevanceScore: score,
			ScoreBreakdown: breakdown,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})

	return ranked
}

func (s *SearchRankingService) score(product *entities.Product, parsed *entities.ParsedQuery) (float64, map[string]float64) {
	breakdown := make(map[string]float64)

	name := strings.ToLower(product.Name)
	description := strings.ToLower(product.Description)
	for _, keyword := range parsed.Keywords {
		keyword = strings.ToLower(keyword)
		if strings.Contains(name, keyword) {
			breakdown["keyword_name"] += keywordNameWeight
		}
		if strings.Contains(description, keyword) {
			breakdown["keyword_description"] += keywordDescWeight
		}
	}

	if parsed.Category != "" && strings.EqualFold(product.Category, parsed.Category) {
		breakdown["category_match"] = categoryMatchWeight
	}

	if parsed.PriceRange != nil && priceInRange(product.Price, parsed.PriceRange) {
		breakdown["price_in_range"] = priceInRangeWeight
	}

	popularity := float64(product.Views)*viewsWeight +
		float64(product.Likes)*likesWeight +
		product.Rating*ratingWeight
	if popularity != 0 {
		breakdown["popularity"] = popularity
	}

	if parsed.Customizable != nil && *parsed.Customizable && product.IsCustomizable {
		breakdown["customizable"] = customizableWeight
	}

	total := 0.0
	for _, contribution := range breakdown {
		total += contribution
	}
	return total, breakdown
}

func priceInRange(price float64, priceRange *entities.PriceRange) bool {
	min := 0.0
	if priceRange.Min != nil {
		min = *priceRange.Min
	}
	max := defaultPriceCeiling
	if priceRange.Max != nil {
		max = *priceRange.Max
	}
	return price >= min && price <= max
}

// Sort re-orders already-ranked items by an explicit sort key. An empty or
// unknown key keeps relevance order. Ties preserve the input order.
func (s *SearchRankingService) Sort(items []entities.RankedProduct, sortKey string) []entities.RankedProduct {
	var less func(a, b entities.RankedProduct) bool

	switch sortKey {
	case SortPriceAsc:
		less = func(a, b entities.RankedProduct) bool { return a.Product.Price < b.Product.Price }
	case SortPriceDesc:
		less = func(a, b entities.RankedProduct) bool { return a.Product.Price > b.Product.Price }
	case SortNewest:
		less = func(a, b entities.RankedProduct) bool { return a.Product.CreatedAt.After(b.Product.CreatedAt) }
	case SortPopularity:
		less = func(a, b entities.RankedProduct) bool {
			return popularityOf(a.Product) > popularityOf(b.Product)
		}
	case SortRating:
		less = func(a, b entities.RankedProduct) bool { return a.Product.Rating > b.Product.Rating }
	default:
		less = func(a, b entities.RankedProduct) bool { return a.RelevanceScore > b.RelevanceScore }
	}

	sorted := make([]entities.RankedProduct, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	return sorted
}

func popularityOf(product *entities.Product) float64 {
	return float64(product.Views)*viewsWeight +
		float64(product.Likes)*likesWeight +
		product.Rating*ratingWeight
}
