package product

import (
	"context"
)

// Repository defines the read contract for the product catalog
type Repository interface {
	// SearchByName returns catalog candidates for a free-text item name,
	// each with its per-retailer prices, best matches first
	SearchByName(ctx context.Context, name string, limit int) ([]Suggestion, error)

	// FindByID returns one product with its prices
	FindByID(ctx context.Context, id string) (*Suggestion, error)

	// PricesForRetailers returns the prices of a product restricted to
	// the given retailers
	PricesForRetailers(ctx context.Context, productID string, retailers []string) ([]Price, error)
}
