package postgres

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/maimood/mood-coach/internal/store"
)

// ResetTokenRepository provides PostgreSQL-backed password-reset tokens.
type ResetTokenRepository struct {
	pool *Pool
}

// NewResetTokenRepository creates a new PostgreSQL reset token repository.
func NewResetTokenRepository(pool *Pool) *ResetTokenRepository {
	return &ResetTokenRepository{pool: pool}
}

// Create issues a new single-use reset token for the user.
func (r *ResetTokenRepository) Create(ctx context.Context, userID string, expiresAt time.Time) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)

	query := "INSERT INTO password_resets (token, user_id, expires_at) VALUES ($1, $2, $3)"
	if _, err := r.pool.Exec(ctx, query, token, userID, expiresAt); err != nil {
		return "", store.Classify(err)
	}

	return token, nil
}

// Consume validates and deletes the token atomically, returning the user id
// it belongs to. A second consume of the same token fails with ErrNotFound.
func (r *ResetTokenRepository) Consume(ctx context.Context, token string) (string, error) {
	query := `
		DELETE FROM password_resets
		WHERE token = $1 AND expires_at > NOW()
		RETURNING user_id
	`

	var userID string
	err := r.pool.QueryRow(ctx, query, token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", store.Classify(err)
	}

	return userID, nil
}
