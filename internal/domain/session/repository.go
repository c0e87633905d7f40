package session

import (
	"context"
)

// Repository defines the persistence contract the flow resolver depends on.
//
// The store is last-write-wins: Save replaces the whole row, which is how
// flows discard stale working data (FlowData is written wholesale, never
// merged). Ordering between concurrent writers is the caller's concern.
type Repository interface {
	// Get returns the session for a user, or the canonical empty session
	// if none exists. Absence is never an error.
	Get(ctx context.Context, userID string) (*Session, error)

	// Save upserts the full session row
	Save(ctx context.Context, s *Session) error

	// Clear resets the session to the canonical empty value
	Clear(ctx context.Context, userID string) error
}
