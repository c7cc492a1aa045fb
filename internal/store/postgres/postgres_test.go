//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/maimood/mood-coach/internal/config"
	"github.com/maimood/mood-coach/internal/store"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func createTestUser(t *testing.T, pool *Pool, email, name string) *store.User {
	t.Helper()
	user, err := NewUserRepository(pool).Create(context.Background(), email, name, "hash")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func TestUserRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewUserRepository(pool)

	t.Run("CreateAndGet", func(t *testing.T) {
		user, err := repo.Create(ctx, "jan@example.com", "Jan Novák", "bcrypt-hash")
		if err != nil {
			t.Fatalf("Failed to create user: %v", err)
		}
		if user.ID == "" {
			t.Error("Expected generated user id")
		}

		got, err := repo.GetByEmail(ctx, "jan@example.com")
		if err != nil {
			t.Fatalf("Failed to get user by email: %v", err)
		}
		if got.DisplayName != "Jan Novák" {
			t.Errorf("Expected display name 'Jan Novák', got '%s'", got.DisplayName)
		}

		byID, err := repo.GetByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("Failed to get user by id: %v", err)
		}
		if byID.Email != "jan@example.com" {
			t.Errorf("Expected email 'jan@example.com', got '%s'", byID.Email)
		}
	})

	t.Run("GetByDisplayNameNormalized", func(t *testing.T) {
		got, err := repo.GetByDisplayName(ctx, "jan-novak")
		if err != nil {
			t.Fatalf("Failed to get user by display name: %v", err)
		}
		if got.Email != "jan@example.com" {
			t.Errorf("Expected lookup to find jan@example.com, got '%s'", got.Email)
		}
	})

	t.Run("DuplicateEmailIsConflict", func(t *testing.T) {
		_, err := repo.Create(ctx, "jan@example.com", "Other", "hash")
		if store.KindOf(err) != store.KindConflict {
			t.Errorf("Expected conflict kind, got %v (err: %v)", store.KindOf(err), err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, "missing@example.com")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpdatePassword", func(t *testing.T) {
		user, _ := repo.GetByEmail(ctx, "jan@example.com")
		if err := repo.UpdatePassword(ctx, user.ID, "new-hash"); err != nil {
			t.Fatalf("Failed to update password: %v", err)
		}
		got, _ := repo.GetByID(ctx, user.ID)
		if got.PasswordHash != "new-hash" {
			t.Errorf("Expected updated hash, got '%s'", got.PasswordHash)
		}

		if err := repo.UpdatePassword(ctx, "00000000-0000-0000-0000-000000000000", "x"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for unknown user, got %v", err)
		}
	})
}

func TestRecordRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewRecordRepository(pool)
	user := createTestUser(t, pool, "rec@example.com", "Rec User")
	other := createTestUser(t, pool, "other@example.com", "Other User")

	t.Run("SaveAndList", func(t *testing.T) {
		rec := &store.Record{
			UserID:          user.ID,
			UserEmail:       user.Email,
			UserDisplayName: user.DisplayName,
			Mode:            "image",
			Emotion:         "happy",
			Confidence:      0.87,
			HasConfidence:   true,
			FaceCoords:      &store.FaceCoords{X: 10, Y: 20, W: 100, H: 120},
			FileName:        "camera-capture.jpg",
			FileType:        "image/jpeg",
			HasImage:        true,
		}

		id, err := repo.Save(ctx, rec)
		if err != nil {
			t.Fatalf("Failed to save record: %v", err)
		}
		if id == "" {
			t.Error("Expected generated record id")
		}

		records, err := repo.ListByUser(ctx, user.ID, 50)
		if err != nil {
			t.Fatalf("Failed to list records: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(records))
		}
		got := records[0]
		if got.Emotion != "happy" || !got.HasConfidence || got.Confidence != 0.87 {
			t.Errorf("Unexpected record %+v", got)
		}
		if got.FaceCoords == nil || got.FaceCoords.W != 100 {
			t.Errorf("Expected face coords to round-trip, got %+v", got.FaceCoords)
		}
		if got.CreatedAt.IsZero() {
			t.Error("Expected server-assigned created_at")
		}
	})

	t.Run("NothingToSave", func(t *testing.T) {
		_, err := repo.Save(ctx, &store.Record{UserID: user.ID})
		if !errors.Is(err, store.ErrNothingToSave) {
			t.Errorf("Expected ErrNothingToSave for missing emotion, got %v", err)
		}

		_, err = repo.Save(ctx, &store.Record{Emotion: "happy"})
		if !errors.Is(err, store.ErrNothingToSave) {
			t.Errorf("Expected ErrNothingToSave for missing owner, got %v", err)
		}
	})

	t.Run("ListIsScopedAndOrdered", func(t *testing.T) {
		for i, emo := range []string{"sad", "angry", "neutral"} {
			_, err := repo.Save(ctx, &store.Record{UserID: user.ID, Mode: "image", Emotion: emo})
			if err != nil {
				t.Fatalf("Failed to save record %d: %v", i, err)
			}
		}
		if _, err := repo.Save(ctx, &store.Record{UserID: other.ID, Mode: "image", Emotion: "fear"}); err != nil {
			t.Fatalf("Failed to save other user's record: %v", err)
		}

		records, err := repo.ListByUser(ctx, user.ID, 50)
		if err != nil {
			t.Fatalf("Failed to list records: %v", err)
		}
		if len(records) != 4 {
			t.Fatalf("Expected 4 records for owner, got %d", len(records))
		}
		for _, rec := range records {
			if rec.UserID != user.ID {
				t.Errorf("Listing leaked record of user %s", rec.UserID)
			}
		}
		for i := 1; i < len(records); i++ {
			if records[i].CreatedAt.After(records[i-1].CreatedAt) {
				t.Error("Records not sorted newest first")
			}
		}

		capped, err := repo.ListByUser(ctx, user.ID, 2)
		if err != nil {
			t.Fatalf("Failed to list capped records: %v", err)
		}
		if len(capped) != 2 {
			t.Errorf("Expected limit to cap results at 2, got %d", len(capped))
		}
	})

	t.Run("CountByUser", func(t *testing.T) {
		count, err := repo.CountByUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 4 {
			t.Errorf("Expected 4, got %d", count)
		}

		count, err = repo.CountByUser(ctx, other.ID)
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1, got %d", count)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewSessionRepository(pool)
	user := createTestUser(t, pool, "sess@example.com", "Sess User")

	t.Run("SaveAndGet", func(t *testing.T) {
		s := &store.StoredSession{
			ID:        "session-1",
			UserID:    user.ID,
			CreatedAt: time.Now().UTC(),
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}
		if err := repo.Save(ctx, s); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		got, err := repo.Get(ctx, "session-1")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if got.UserID != user.ID {
			t.Errorf("Expected user %s, got %s", user.ID, got.UserID)
		}
	})

	t.Run("ExpiredIsNotFound", func(t *testing.T) {
		s := &store.StoredSession{
			ID:        "session-expired",
			UserID:    user.ID,
			CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
			ExpiresAt: time.Now().UTC().Add(-time.Hour),
		}
		if err := repo.Save(ctx, s); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		_, err := repo.Get(ctx, "session-expired")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for expired session, got %v", err)
		}
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		count, err := repo.DeleteExpired(ctx)
		if err != nil {
			t.Fatalf("Failed to delete expired: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 expired session deleted, got %d", count)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx, "session-1"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if _, err := repo.Get(ctx, "session-1"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
	})
}

func TestResetTokenRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewResetTokenRepository(pool)
	user := createTestUser(t, pool, "reset@example.com", "Reset User")

	t.Run("CreateAndConsume", func(t *testing.T) {
		token, err := repo.Create(ctx, user.ID, time.Now().UTC().Add(time.Hour))
		if err != nil {
			t.Fatalf("Failed to create token: %v", err)
		}
		if token == "" {
			t.Fatal("Expected non-empty token")
		}

		userID, err := repo.Consume(ctx, token)
		if err != nil {
			t.Fatalf("Failed to consume token: %v", err)
		}
		if userID != user.ID {
			t.Errorf("Expected user %s, got %s", user.ID, userID)
		}

		// Single use.
		if _, err := repo.Consume(ctx, token); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second consume, got %v", err)
		}
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		token, err := repo.Create(ctx, user.ID, time.Now().UTC().Add(-time.Minute))
		if err != nil {
			t.Fatalf("Failed to create token: %v", err)
		}
		if _, err := repo.Consume(ctx, token); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for expired token, got %v", err)
		}
	})
}

func TestMigrations(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	applied, err := pool.MigrationsApplied(context.Background())
	if err != nil {
		t.Fatalf("Failed to get applied migrations: %v", err)
	}

	if len(applied) == 0 || applied[0] != "001_initial.sql" {
		t.Errorf("Expected 001_initial.sql to be applied, got %v", applied)
	}
}
