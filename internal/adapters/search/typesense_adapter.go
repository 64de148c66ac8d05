package search

import (
	"context"
	"fmt"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/craftline/artisan-marketplace/internal/domain/entities"
	"github.com/craftline/artisan-marketplace/internal/domain/repositories"
	tsclient "github.com/craftline/artisan-marketplace/internal/infrastructure/clients/typesense"
)

// TypesenseAdapter maintains the product suggestion index in Typesense.
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.ProductIndexRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// InitSchema ensures the products collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	_, err := a.client.Client().Collection(tsclient.ProductsCollection).Retrieve(ctx)
	if err == nil {
		return nil
	}

	schema := &api.CollectionSchema{
		Name: tsclient.ProductsCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "name", Type: "string"},
			{Name: "category", Type: "string", Facet: pointer.True()},
			{Name: "tags", Type: "string[]", Optional: pointer.True()},
			{Name: "price", Type: "float"},
			{Name: "rating", Type: "float"},
			{Name: "popularity", Type: "int32"},
			{Name: "is_active", Type: "bool"},
		},
		DefaultSortingField: pointer.String("popularity"),
	}

	if _, err := a.client.Client().Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("failed to create typesense collection: %w", err)
	}

	return nil
}

// Index upserts a product document into the suggestion index
func (a *TypesenseAdapter) Index(ctx context.Context, product *entities.Product) error {
	document := map[string]interface{}{
		"id":         product.ID,
		"name":       product.Name,
		"category":   product.Category,
		"tags":       product.Tags,
		"price":      product.Price,
		"rating":     product.Rating,
		"popularity": product.Views + product.Likes*10,
		"is_active":  product.IsActive,
	}

	_, err := a.client.Client().Collection(tsclient.ProductsCollection).Documents().Upsert(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to index product: %w", err)
	}

	return nil
}

// Delete removes a product from the suggestion index
func (a *TypesenseAdapter) Delete(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(tsclient.ProductsCollection).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete product from index: %w", err)
	}
	return nil
}

// Suggest returns prefix matches on product names and tags
func (a *TypesenseAdapter) Suggest(ctx context.Context, prefix string, limit int) ([]entities.ProductSuggestion, error) {
	if limit <= 0 {
		limit = 5
	}

	searchParams := &api.SearchCollectionParams{
		Q:        pointer.String(prefix),
		QueryBy:  pointer.String("name,tags"),
		FilterBy: pointer.String("is_active:=true"),
		SortBy:   pointer.String("_text_match:desc,popularity:desc"),
		PerPage:  pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(tsclient.ProductsCollection).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search product index: %w", err)
	}

	suggestions := []entities.ProductSuggestion{}
	if result.Hits == nil {
		return suggestions, nil
	}

	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		doc := *hit.Document

		suggestion := entities.ProductSuggestion{}
		if v, ok := doc["id"].(string); ok {
			suggestion.ID = v
		}
		if v, ok := doc["name"].(string); ok {
			suggestion.Name = v
		}
		if v, ok := doc["category"].(string); ok {
			suggestion.Category = v
		}
		if v, ok := doc["price"].(float64); ok {
			suggestion.Price = v
		}
		if v, ok := doc["rating"].(float64); ok {
			suggestion.Rating = v
		}

		suggestions = append(suggestions, suggestion)
	}

	return suggestions, nil
}
