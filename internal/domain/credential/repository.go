package credential

import (
	"context"
)

// Repository defines the persistence contract for retailer credentials
type Repository interface {
	// Save upserts the credential for a user and retailer
	Save(ctx context.Context, c *Credential) error

	// FindByUserAndRetailer returns the stored credential, or ErrNotFound
	FindByUserAndRetailer(ctx context.Context, userID, retailer string) (*Credential, error)

	// ListByUser returns all credentials a user has stored
	ListByUser(ctx context.Context, userID string) ([]*Credential, error)

	// CountByUser counts how many retailers a user has connected
	CountByUser(ctx context.Context, userID string) (int, error)

	// DeleteByUser removes every credential for a user
	DeleteByUser(ctx context.Context, userID string) error
}
