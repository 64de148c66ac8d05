package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"

	"github.com/craftline/artisan-marketplace/internal/domain/entities"
	"github.com/craftline/artisan-marketplace/internal/domain/repositories"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/clients/postgres"
	apperrors "github.com/craftline/artisan-marketplace/pkg/errors"
)

const productsTable = "products"

var productColumns = []interface{}{
	"id", "name", "description", "category", "craft_type", "price", "tags",
	"seller_id", "seller_location", "views", "likes", "rating",
	"is_customizable", "is_active", "available_quantity", "created_at", "updated_at",
}

// ProductAdapter implements ProductRepository over PostgreSQL.
type ProductAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProductAdapter creates a new product adapter
func NewProductAdapter(client *postgres.Client) repositories.ProductRepository {
	return &ProductAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Search returns all products matching the compiled store query,
// newest first so ranking ties keep a deterministic candidate order.
func (a *ProductAdapter) Search(ctx context.Context, query entities.StoreQuery) ([]*entities.Product, error) {
	sqlQuery, args, err := BuildProductSQL(a.db, query)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build product query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to search products", err)
	}
	defer rows.Close()

	var products []*entities.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate products", err)
	}

	return products, nil
}

// GetByID retrieves a product by ID
func (a *ProductAdapter) GetByID(ctx context.Context, id string) (*entities.Product, error) {
	sqlQuery, args, err := a.db.Select(productColumns...).
		From(productsTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build product query", err)
	}

	row := a.client.DB().QueryRowContext(ctx, sqlQuery, args...)
	product, err := scanProduct(row)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeNotFound {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("product with id %s not found", id))
		}
		return nil, err
	}

	return product, nil
}

// ListActive returns active, in-stock products in batches for indexing
func (a *ProductAdapter) ListActive(ctx context.Context, limit, offset int) ([]*entities.Product, error) {
	if limit <= 0 {
		limit = 100
	}

	sqlQuery, args, err := a.db.Select(productColumns...).
		From(productsTable).
		Where(goqu.Ex{"is_active": true}, goqu.I("available_quantity").Gt(0)).
		Order(goqu.I("created_at").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build product query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list products", err)
	}
	defer rows.Close()

	var products []*entities.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate products", err)
	}

	return products, nil
}

// BuildProductSQL renders a StoreQuery into SQL. Exposed for tests so the
// predicate translation can be checked without a live database.
func BuildProductSQL(db *goqu.Database, query entities.StoreQuery) (string, []interface{}, error) {
	dataset := db.Select(productColumns...).From(productsTable)

	for _, predicate := range query.Where {
		expr, err := translatePredicate(predicate)
		if err != nil {
			return "", nil, err
		}
		dataset = dataset.Where(expr)
	}

	return dataset.Order(goqu.I("created_at").Desc()).Prepared(true).ToSQL()
}

func translatePredicate(p entities.Predicate) (exp.Expression, error) {
	switch p.Op {
	case entities.OpEq:
		return goqu.I(p.Field).Eq(p.Value), nil
	case entities.OpGte:
		return goqu.I(p.Field).Gte(p.Value), nil
	case entities.OpLte:
		return goqu.I(p.Field).Lte(p.Value), nil
	case entities.OpContains:
		return goqu.I(p.Field).ILike("%" + escapeLikePattern(fmt.Sprintf("%v", p.Value)) + "%"), nil
	case entities.OpHas:
		return goqu.L("? = ANY(?)", p.Value, goqu.I(p.Field)), nil
	case entities.OpAnd, entities.OpOr:
		sub := make([]exp.Expression, 0, len(p.Sub))
		for _, s := range p.Sub {
			expr, err := translatePredicate(s)
			if err != nil {
				return nil, err
			}
			sub = append(sub, expr)
		}
		if p.Op == entities.OpAnd {
			return goqu.And(sub...), nil
		}
		return goqu.Or(sub...), nil
	default:
		return nil, fmt.Errorf("unsupported predicate op %q", p.Op)
	}
}

// likePatternEscaper neutralizes LIKE metacharacters in user-typed terms so
// they match literally.
var likePatternEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLikePattern(value string) string {
	return likePatternEscaper.Replace(value)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*entities.Product, error) {
	product := &entities.Product{}
	var description, craftType, sellerLocation sql.NullString

	err := row.Scan(
		&product.ID,
		&product.Name,
		&description,
		&product.Category,
		&craftType,
		&product.Price,
		pq.Array(&product.Tags),
		&product.SellerID,
		&sellerLocation,
		&product.Views,
		&product.Likes,
		&product.Rating,
		&product.IsCustomizable,
		&product.IsActive,
		&product.AvailableQuantity,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("product not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to scan product", err)
	}

	product.Description = description.String
	product.CraftType = craftType.String
	product.SellerLocation = sellerLocation.String

	return product, nil
}
