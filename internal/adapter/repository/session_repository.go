package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartwala/cartwala/internal/domain/session"
)

// SessionRepository persists conversation sessions in the sessions table
type SessionRepository struct {
	db *pgxpool.Pool
}

// NewSessionRepository creates a session repository backed by pgx
func NewSessionRepository(db *pgxpool.Pool) session.Repository {
	return &SessionRepository{db: db}
}

// Get loads a user's session; a missing row yields the canonical empty
// session, never an error
func (r *SessionRepository) Get(ctx context.Context, userID string) (*session.Session, error) {
	query := `
		SELECT flow_kind, flow_step, flow_data, updated_at
		FROM sessions
		WHERE user_id = $1
	`

	s := &session.Session{UserID: userID}
	var rawData []byte
	err := r.db.QueryRow(ctx, query, userID).Scan(&s.Flow, &s.Step, &rawData, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Empty(userID), nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if len(rawData) > 0 {
		if err := json.Unmarshal(rawData, &s.Data); err != nil {
			return nil, fmt.Errorf("failed to decode session data: %w", err)
		}
	}

	return s, nil
}

// Save upserts the whole session row; flow data is replaced, not merged
func (r *SessionRepository) Save(ctx context.Context, s *session.Session) error {
	if err := s.Validate(); err != nil {
		return err
	}

	rawData, err := json.Marshal(s.Data)
	if err != nil {
		return fmt.Errorf("failed to encode session data: %w", err)
	}

	query := `
		INSERT INTO sessions (user_id, flow_kind, flow_step, flow_data, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			flow_kind = EXCLUDED.flow_kind,
			flow_step = EXCLUDED.flow_step,
			flow_data = EXCLUDED.flow_data,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.Exec(ctx, query, s.UserID, s.Flow, s.Step, rawData, time.Now()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Clear resets the session to the canonical empty value
func (r *SessionRepository) Clear(ctx context.Context, userID string) error {
	empty := session.Empty(userID)
	return r.Save(ctx, empty)
}
