package services

import (
	"github.com/craftline/artisan-marketplace/internal/domain/entities"
)

// QueryCompiler translates a ParsedQuery into the StoreQuery predicate tree
// the catalog store executes. Compilation is pure and deterministic: the same
// parsed query always compiles to the same store query.
type QueryCompiler struct{}

// NewQueryCompiler creates a query compiler.
func NewQueryCompiler() *QueryCompiler {
	return &QueryCompiler{}
}

// Compile builds the catalog filter. Every compiled query restricts to active,
// in-stock products; all other predicates come from the parsed fields.
// Keywords compile to one OR-group matching name, description, tags, or craft
// type, so a product matching any keyword anywhere qualifies as a candidate
// and ranking decides order.
func (c *QueryCompiler) Compile(parsed *entities.ParsedQuery) entities.StoreQuery {
	query := entities.StoreQuery{}

	if parsed.Category != "" {
		query.Where = append(query.Where, entities.Eq("category", parsed.Category))
	}

	if parsed.PriceRange != nil {
		if parsed.PriceRange.Min != nil {
			query.Where = append(query.Where, entities.Gte("price", *parsed.PriceRange.Min))
		}
		if parsed.PriceRange.Max != nil {
			query.Where = append(query.Where, entities.Lte("price", *parsed.PriceRange.Max))
		}
	}

	if parsed.Customizable != nil {
		query.Where = append(query.Where, entities.Eq("is_customizable", *parsed.Customizable))
	}

	if parsed.Location != "" {
		query.Where = append(query.Where, entities.Contains("seller_location", parsed.Location))
	}

	if keywordGroup := compileKeywords(parsed.Keywords); len(keywordGroup) > 0 {
		query.Where = append(query.Where, entities.Or(keywordGroup...))
	}

	if colorGroup := compileColors(parsed.Colors); len(colorGroup) > 0 {
		query.Where = append(query.Where, entities.Or(colorGroup...))
	}

	query.Where = append(query.Where,
		entities.Eq("is_active", true),
		entities.Gte("available_quantity", 1),
	)

	return query
}

func compileKeywords(keywords []string) []entities.Predicate {
	var group []entities.Predicate
	for _, keyword := range keywords {
		group = append(group,
			entities.Contains("name", keyword),
			entities.Contains("description", keyword),
			entities.Has("tags", keyword),
			entities.Contains("craft_type", keyword),
		)
	}
	return group
}

func compileColors(colors []string) []entities.Predicate {
	var group []entities.Predicate
	for _, color := range colors {
		group = append(group,
			entities.Has("tags", color),
			entities.Contains("name", color),
			entities.Contains("description", color),
		)
	}
	return group
}
