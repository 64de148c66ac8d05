package repositories

import (
	"context"

	"github.com/craftline/artisan-marketplace/internal/domain/entities"
)

// ProductRepository provides read access to the product catalog.
type ProductRepository interface {
	// Search returns all products matching the compiled store query.
	Search(ctx context.Context, query entities.StoreQuery) ([]*entities.Product, error)

	// GetByID returns one product by id.
	GetByID(ctx context.Context, id string) (*entities.Product, error)

	// ListActive returns active, in-stock products in batches for indexing.
	ListActive(ctx context.Context, limit, offset int) ([]*entities.Product, error)
}
