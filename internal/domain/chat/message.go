package chat

import (
	"time"

	"github.com/google/uuid"
)

// Direction distinguishes who sent a message
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Message is one entry in a user's conversation history
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Direction Direction `json:"direction"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage creates a history entry
func NewMessage(userID string, direction Direction, body string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		UserID:    userID,
		Direction: direction,
		Body:      body,
		CreatedAt: time.Now(),
	}
}
