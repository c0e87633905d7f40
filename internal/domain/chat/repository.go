package chat

import (
	"context"
)

// Repository defines the persistence contract for conversation history
type Repository interface {
	// SaveMessage appends a message to the history
	SaveMessage(ctx context.Context, m *Message) error

	// GetUserHistory returns a user's messages, newest first
	GetUserHistory(ctx context.Context, userID string, limit, offset int) ([]Message, error)

	// DeleteUserHistory wipes a user's history
	DeleteUserHistory(ctx context.Context, userID string) error

	// CountUserMessages counts a user's messages
	CountUserMessages(ctx context.Context, userID string) (int, error)
}
