package cart

import (
	"context"
)

// Repository defines the persistence contract for carts
type Repository interface {
	// Create persists a new cart
	Create(ctx context.Context, c *Cart) error

	// FindActiveByUser returns the user's active cart with its items,
	// or ErrNotFound if the user has none
	FindActiveByUser(ctx context.Context, userID string) (*Cart, error)

	// AddItem appends a line to a cart
	AddItem(ctx context.Context, item *Item) error

	// RemoveItemByName deletes all lines matching the item name
	// (case-insensitive) and returns how many were removed
	RemoveItemByName(ctx context.Context, cartID, name string) (int, error)

	// UpdateItem persists changes to a cart line
	UpdateItem(ctx context.Context, item *Item) error

	// UpdateStatus moves a cart through its lifecycle
	UpdateStatus(ctx context.Context, cartID string, status Status) error

	// ClearByUser abandons the user's active cart, if any
	ClearByUser(ctx context.Context, userID string) error
}
