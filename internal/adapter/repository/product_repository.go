package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartwala/cartwala/internal/domain/product"
)

// ProductRepository reads the product catalog and per-retailer prices
type ProductRepository struct {
	db *pgxpool.Pool
}

// NewProductRepository creates a product repository backed by pgx
func NewProductRepository(db *pgxpool.Pool) product.Repository {
	return &ProductRepository{db: db}
}

// SearchByName returns catalog candidates for a free-text item name,
// shortest (most specific) names first
func (r *ProductRepository) SearchByName(ctx context.Context, name string, limit int) ([]product.Suggestion, error) {
	query := `
		SELECT id, name, unit
		FROM products
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY length(name), name
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	var products []product.Product
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Unit); err != nil {
			return nil, fmt.Errorf("failed to read product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	suggestions := make([]product.Suggestion, 0, len(products))
	for _, p := range products {
		prices, err := r.pricesFor(ctx, p.ID, nil)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, product.Suggestion{Product: p, Prices: prices})
	}

	return suggestions, nil
}

// FindByID returns one product with its prices
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*product.Suggestion, error) {
	query := `SELECT id, name, unit FROM products WHERE id = $1`

	var p product.Product
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Unit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %s not found", id)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	prices, err := r.pricesFor(ctx, p.ID, nil)
	if err != nil {
		return nil, err
	}

	return &product.Suggestion{Product: p, Prices: prices}, nil
}

// PricesForRetailers returns the prices of a product restricted to the
// given retailers
func (r *ProductRepository) PricesForRetailers(ctx context.Context, productID string, retailers []string) ([]product.Price, error) {
	return r.pricesFor(ctx, productID, retailers)
}

func (r *ProductRepository) pricesFor(ctx context.Context, productID string, retailers []string) ([]product.Price, error) {
	query := `
		SELECT product_id, retailer, price_paise, in_stock
		FROM product_prices
		WHERE product_id = $1 AND ($2::text[] IS NULL OR retailer = ANY($2))
		ORDER BY price_paise
	`

	rows, err := r.db.Query(ctx, query, productID, retailers)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}
	defer rows.Close()

	var prices []product.Price
	for rows.Next() {
		var p product.Price
		if err := rows.Scan(&p.ProductID, &p.Retailer, &p.PricePaise, &p.InStock); err != nil {
			return nil, fmt.Errorf("failed to read price: %w", err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prices: %w", err)
	}

	return prices, nil
}
