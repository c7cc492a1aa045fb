// Package store defines the persisted record model and the repository
// contracts implemented by the PostgreSQL backend.
package store

import (
	"context"
	"time"
)

// FaceCoords is the stored face bounding box in source image pixels.
type FaceCoords struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Record is one persisted analysis outcome. Records are append-only: written
// once on explicit user action, never updated or deleted.
type Record struct {
	ID string

	// Owner snapshot. Email and display name are informational copies taken
	// at save time; UserID is authoritative.
	UserID          string
	UserEmail       string
	UserDisplayName string

	Mode string

	// Emotion fields, canonical vocabulary spellings.
	Emotion      string
	ImageEmotion string
	AudioEmotion string

	Confidence    float64
	HasConfidence bool

	FaceCoords *FaceCoords

	// Capture metadata.
	FileName string
	FileSize int64
	FileType string
	HasImage bool
	HasAudio bool

	// Optional inline media; makes a record self-contained at the cost of
	// row size.
	OriginalImageBase64 string
	CropImageBase64     string

	// Device metadata, informational only.
	UserAgent string
	Language  string
	Platform  string

	// CreatedAt is assigned server-side on insert.
	CreatedAt time.Time
}

// User is an account in the auth store.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}

// StoredSession is a persisted web session.
type StoredSession struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// RecordRepository is the persistence client contract.
type RecordRepository interface {
	// Save appends a record and returns its id. Fails with
	// ErrNothingToSave when the record has no emotion or no owner.
	Save(ctx context.Context, rec *Record) (string, error)
	// ListByUser returns the owner's records, newest first, capped to
	// limit. Scoping happens in the store, not client-side.
	ListByUser(ctx context.Context, userID string, limit int) ([]Record, error)
	// CountByUser returns the owner's total record count.
	CountByUser(ctx context.Context, userID string) (int, error)
}

// UserRepository manages accounts.
type UserRepository interface {
	Create(ctx context.Context, email, displayName, passwordHash string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByDisplayName matches on the normalized form, so "Jan Novák" finds
	// "jan-novak".
	GetByDisplayName(ctx context.Context, name string) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// SessionRepository persists web sessions across restarts.
type SessionRepository interface {
	Save(ctx context.Context, s *StoredSession) error
	Get(ctx context.Context, id string) (*StoredSession, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// ResetTokenRepository manages password-reset tokens.
type ResetTokenRepository interface {
	Create(ctx context.Context, userID string, expiresAt time.Time) (string, error)
	// Consume validates and deletes the token, returning the user id it
	// belongs to.
	Consume(ctx context.Context, token string) (string, error)
}
