package cart

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyItemName = errors.New("item name cannot be empty")
	ErrNotFound      = errors.New("cart not found")
)

// Status represents the lifecycle state of a cart
type Status string

const (
	StatusActive    Status = "active"
	StatusOrdered   Status = "ordered"
	StatusAbandoned Status = "abandoned"
)

// Cart is a user's grocery basket under construction
type Cart struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Status    Status    `json:"status"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is a single line in a cart. ProductID and Retailer are filled in
// once the user picks a concrete product or a retailer for the item.
type Item struct {
	ID        string `json:"id"`
	CartID    string `json:"cart_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	ProductID string `json:"product_id,omitempty"`
	Retailer  string `json:"retailer,omitempty"`
}

// NewCart creates an active cart for a user
func NewCart(userID string) *Cart {
	now := time.Now()
	return &Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewItem creates a cart line for an item name
func NewItem(cartID, name string, quantity int) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyItemName
	}
	if quantity < 1 {
		quantity = 1
	}
	return &Item{
		ID:       uuid.New().String(),
		CartID:   cartID,
		Name:     name,
		Quantity: quantity,
	}, nil
}

// ItemNames returns the distinct item names in cart order
func (c *Cart) ItemNames() []string {
	seen := make(map[string]bool, len(c.Items))
	names := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		key := strings.ToLower(it.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, it.Name)
	}
	return names
}
