package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartwala/cartwala/internal/domain/chat"
)

// ChatRepository persists conversation history in the chat_messages table
type ChatRepository struct {
	db *pgxpool.Pool
}

// NewChatRepository creates a chat repository backed by pgx
func NewChatRepository(db *pgxpool.Pool) chat.Repository {
	return &ChatRepository{db: db}
}

// SaveMessage appends a message to the history
func (r *ChatRepository) SaveMessage(ctx context.Context, m *chat.Message) error {
	query := `
		INSERT INTO chat_messages (id, user_id, direction, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query, m.ID, m.UserID, m.Direction, m.Body, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}
	return nil
}

// GetUserHistory returns a user's messages, newest first
func (r *ChatRepository) GetUserHistory(ctx context.Context, userID string, limit, offset int) ([]chat.Message, error) {
	query := `
		SELECT id, user_id, direction, body, created_at
		FROM chat_messages
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Direction, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to read chat message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chat messages: %w", err)
	}

	return messages, nil
}

// DeleteUserHistory wipes a user's history
func (r *ChatRepository) DeleteUserHistory(ctx context.Context, userID string) error {
	query := `DELETE FROM chat_messages WHERE user_id = $1`

	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete chat history: %w", err)
	}
	return nil
}

// CountUserMessages counts a user's messages
func (r *ChatRepository) CountUserMessages(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM chat_messages WHERE user_id = $1`

	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chat messages: %w", err)
	}
	return count, nil
}
