package repositories

import (
	"context"

	"github.com/craftline/artisan-marketplace/internal/domain/entities"
)

// ProductIndexRepository maintains the product suggestion index used for
// autocomplete and zero-result recovery.
type ProductIndexRepository interface {
	Index(ctx context.Context, product *entities.Product) error
	Delete(ctx context.Context, id string) error
	Suggest(ctx context.Context, prefix string, limit int) ([]entities.ProductSuggestion, error)
}
