package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartwala/cartwala/internal/domain/credential"
)

// CredentialRepository persists retailer logins in the
// retailer_credentials table
type CredentialRepository struct {
	db *pgxpool.Pool
}

// NewCredentialRepository creates a credential repository backed by pgx
func NewCredentialRepository(db *pgxpool.Pool) credential.Repository {
	return &CredentialRepository{db: db}
}

// Save upserts the credential for a user and retailer
func (r *CredentialRepository) Save(ctx context.Context, c *credential.Credential) error {
	query := `
		INSERT INTO retailer_credentials (id, user_id, retailer, login_id, login_type, secret, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, retailer) DO UPDATE SET
			login_id = EXCLUDED.login_id,
			login_type = EXCLUDED.login_type,
			secret = EXCLUDED.secret,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query,
		c.ID, c.UserID, c.Retailer, c.LoginID, c.LoginType, c.Secret, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save retailer_credentials row: %w", err)
	}
	return nil
}

// FindByUserAndRetailer returns the stored credential, or ErrNotFound
func (r *CredentialRepository) FindByUserAndRetailer(ctx context.Context, userID, retailer string) (*credential.Credential, error) {
	query := `
		SELECT id, user_id, retailer, login_id, login_type, secret, created_at, updated_at
		FROM retailer_credentials
		WHERE user_id = $1 AND retailer = $2
	`

	c := &credential.Credential{}
	err := r.db.QueryRow(ctx, query, userID, retailer).Scan(
		&c.ID, &c.UserID, &c.Retailer, &c.LoginID, &c.LoginType, &c.Secret, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, credential.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load retailer_credentials row: %w", err)
	}
	return c, nil
}

// ListByUser returns all credentials a user has stored
func (r *CredentialRepository) ListByUser(ctx context.Context, userID string) ([]*credential.Credential, error) {
	query := `
		SELECT id, user_id, retailer, login_id, login_type, secret, created_at, updated_at
		FROM retailer_credentials
		WHERE user_id = $1
		ORDER BY retailer
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list retailer_credentials rows: %w", err)
	}
	defer rows.Close()

	var creds []*credential.Credential
	for rows.Next() {
		c := &credential.Credential{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Retailer, &c.LoginID, &c.LoginType, &c.Secret, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to read retailer_credentials row: %w", err)
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read retailer_credentials rows: %w", err)
	}

	return creds, nil
}

// CountByUser counts how many retailers a user has connected
func (r *CredentialRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM retailer_credentials WHERE user_id = $1`

	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count retailer_credentials rows: %w", err)
	}
	return count, nil
}

// DeleteByUser removes every credential for a user
func (r *CredentialRepository) DeleteByUser(ctx context.Context, userID string) error {
	query := `DELETE FROM retailer_credentials WHERE user_id = $1`

	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete retailer_credentials rows: %w", err)
	}
	return nil
}
