package user

import (
	"context"
)

// Repository defines the persistence contract for users
type Repository interface {
	// Create persists a new user
	Create(ctx context.Context, u *User) error

	// FindByID looks a user up by id
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByWaNumber looks a user up by WhatsApp number
	FindByWaNumber(ctx context.Context, waNumber string) (*User, error)

	// Update persists changes to an existing user
	Update(ctx context.Context, u *User) error
}
