package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProductNotFound = errors.New("product not found")

type Repository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	GetVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]Variant, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) ListProducts(ctx context.Context) ([]Product, error) {
	query := `
		SELECT id, slug, name, description, base_price, active, created_at, updated_at
		FROM products
		WHERE active = TRUE
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.BasePrice, &p.Active, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}

	return products, nil
}

func (r *postgresRepository) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	query := `
		SELECT id, slug, name, description, base_price, active, created_at, updated_at
		FROM products
		WHERE slug = $1 AND active = TRUE
	`

	var p Product
	err := r.db.QueryRow(ctx, query, slug).Scan(
		&p.ID, &p.Slug, &p.Name, &p.Description, &p.BasePrice, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by slug %s: %w", slug, err)
	}

	variantsQuery := `
		SELECT id, product_id, sku, size, color, price, stock, created_at, updated_at
		FROM product_variants
		WHERE product_id = $1
		ORDER BY sku
	`

	rows, err := r.db.Query(ctx, variantsQuery, p.ID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query variants for product %s: %w", p.ID, err)
	}
	defer rows.Close()

	p.Variants = make([]Variant, 0)
	for rows.Next() {
		var v Variant
		err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Size, &v.Color, &v.Price, &v.Stock, &v.CreatedAt, &v.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan variant for product %s: %w", p.ID, err)
		}
		p.Variants = append(p.Variants, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating variants for product %s: %w", p.ID, err)
	}

	return &p, nil
}

func (r *postgresRepository) GetVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]Variant, error) {
	query := `
		SELECT id, product_id, sku, size, color, price, stock, created_at, updated_at
		FROM product_variants
		WHERE id = ANY($1)
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query variants: %w", err)
	}
	defer rows.Close()

	variants := make([]Variant, 0, len(ids))
	for rows.Next() {
		var v Variant
		err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Size, &v.Color, &v.Price, &v.Stock, &v.CreatedAt, &v.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating variants: %w", err)
	}

	return variants, nil
}
