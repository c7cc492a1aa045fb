package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/maimood/mood-coach/internal/store"
)

// UserRepository provides PostgreSQL-backed account storage.
type UserRepository struct {
	pool *Pool
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(pool *Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new account. A duplicate email surfaces as a conflict.
func (r *UserRepository) Create(ctx context.Context, email, displayName, passwordHash string) (*store.User, error) {
	user := &store.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
	}

	query := `
		INSERT INTO users (id, email, display_name, display_name_norm, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		user.ID, email, displayName, store.NormalizeDisplayName(displayName), passwordHash,
	).Scan(&user.CreatedAt)
	if err != nil {
		return nil, store.Classify(err)
	}

	return user, nil
}

const userColumns = "id, email, display_name, password_hash, created_at"

// GetByEmail returns the account with the given email, ErrNotFound otherwise.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*store.User, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	return scanUser(row)
}

// GetByID returns the account with the given id, ErrNotFound otherwise.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*store.User, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

// GetByDisplayName matches on the normalized display name, so lookups work
// with any spelling of diacritics, dashes and case.
func (r *UserRepository) GetByDisplayName(ctx context.Context, name string) (*store.User, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE display_name_norm = $1",
		store.NormalizeDisplayName(name),
	)
	return scanUser(row)
}

// UpdatePassword replaces the account's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := r.pool.Exec(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", passwordHash, id)
	if err != nil {
		return store.Classify(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return store.Classify(err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, store.Classify(err)
	}
	return &u, nil
}
