package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartwala/cartwala/internal/domain/user"
)

// UserRepository persists users in the users table
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a user repository backed by pgx
func NewUserRepository(db *pgxpool.Pool) user.Repository {
	return &UserRepository{db: db}
}

// Create persists a new user
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, wa_number, name, address, address_confirmed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		u.ID, u.WaNumber, u.Name, u.Address, u.AddressConfirmed, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByID looks a user up by id
func (r *UserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	return r.findBy(ctx, "id", id)
}

// FindByWaNumber looks a user up by WhatsApp number
func (r *UserRepository) FindByWaNumber(ctx context.Context, waNumber string) (*user.User, error) {
	return r.findBy(ctx, "wa_number", waNumber)
}

func (r *UserRepository) findBy(ctx context.Context, column, value string) (*user.User, error) {
	query := fmt.Sprintf(`
		SELECT id, wa_number, name, address, address_confirmed, created_at, updated_at
		FROM users
		WHERE %s = $1
	`, column)

	u := &user.User{}
	err := r.db.QueryRow(ctx, query, value).Scan(
		&u.ID, &u.WaNumber, &u.Name, &u.Address, &u.AddressConfirmed, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// Update persists changes to an existing user
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users
		SET name = $2, address = $3, address_confirmed = $4, updated_at = $5
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, u.ID, u.Name, u.Address, u.AddressConfirmed, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}
