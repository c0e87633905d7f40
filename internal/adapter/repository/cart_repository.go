package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartwala/cartwala/internal/domain/cart"
)

// CartRepository persists carts and their items
type CartRepository struct {
	db *pgxpool.Pool
}

// NewCartRepository creates a cart repository backed by pgx
func NewCartRepository(db *pgxpool.Pool) cart.Repository {
	return &CartRepository{db: db}
}

// Create persists a new cart
func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	query := `
		INSERT INTO carts (id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query, c.ID, c.UserID, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

// FindActiveByUser loads the user's active cart with its items
func (r *CartRepository) FindActiveByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	query := `
		SELECT id, user_id, status, created_at, updated_at
		FROM carts
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	c := &cart.Cart{}
	err := r.db.QueryRow(ctx, query, userID, cart.StatusActive).Scan(
		&c.ID, &c.UserID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	items, err := r.itemsForCart(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Items = items

	return c, nil
}

func (r *CartRepository) itemsForCart(ctx context.Context, cartID string) ([]cart.Item, error) {
	query := `
		SELECT id, cart_id, item_name, quantity, COALESCE(product_id, ''), COALESCE(retailer, '')
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	defer rows.Close()

	var items []cart.Item
	for rows.Next() {
		var it cart.Item
		if err := rows.Scan(&it.ID, &it.CartID, &it.Name, &it.Quantity, &it.ProductID, &it.Retailer); err != nil {
			return nil, fmt.Errorf("failed to read cart item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cart items: %w", err)
	}

	return items, nil
}

// AddItem appends a line to a cart
func (r *CartRepository) AddItem(ctx context.Context, item *cart.Item) error {
	query := `
		INSERT INTO cart_items (id, cart_id, item_name, quantity, product_id, retailer, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), now())
	`

	_, err := r.db.Exec(ctx, query, item.ID, item.CartID, item.Name, item.Quantity, item.ProductID, item.Retailer)
	if err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

// RemoveItemByName deletes lines matching the item name
func (r *CartRepository) RemoveItemByName(ctx context.Context, cartID, name string) (int, error) {
	query := `DELETE FROM cart_items WHERE cart_id = $1 AND lower(item_name) = lower($2)`

	tag, err := r.db.Exec(ctx, query, cartID, name)
	if err != nil {
		return 0, fmt.Errorf("failed to remove cart item: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// UpdateItem persists changes to a cart line
func (r *CartRepository) UpdateItem(ctx context.Context, item *cart.Item) error {
	query := `
		UPDATE cart_items
		SET quantity = $2, product_id = NULLIF($3, ''), retailer = NULLIF($4, '')
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, item.ID, item.Quantity, item.ProductID, item.Retailer)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return nil
}

// UpdateStatus moves a cart through its lifecycle
func (r *CartRepository) UpdateStatus(ctx context.Context, cartID string, status cart.Status) error {
	query := `UPDATE carts SET status = $2, updated_at = now() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, cartID, status)
	if err != nil {
		return fmt.Errorf("failed to update cart status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

// ClearByUser abandons the user's active cart, if any
func (r *CartRepository) ClearByUser(ctx context.Context, userID string) error {
	query := `UPDATE carts SET status = $2, updated_at = now() WHERE user_id = $1 AND status = $3`

	_, err := r.db.Exec(ctx, query, userID, cart.StatusAbandoned, cart.StatusActive)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
