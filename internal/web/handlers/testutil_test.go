package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/maimood/mood-coach/internal/store"
	"github.com/maimood/mood-coach/internal/web/middleware"
)

// memoryUserRepo is an in-memory UserRepository for handler tests.
type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]store.User // by id
	next  int
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]store.User)}
}

func (m *memoryUserRepo) Create(_ context.Context, email, displayName, passwordHash string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, store.Classify(&pq.Error{Code: "23505"})
		}
	}
	m.next++
	user := store.User{
		ID:           fmt.Sprintf("user-%d", m.next),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	m.users[user.ID] = user
	return &user, nil
}

func (m *memoryUserRepo) GetByEmail(_ context.Context, email string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memoryUserRepo) GetByID(_ context.Context, id string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		user := u
		return &user, nil
	}
	return nil, store.ErrNotFound
}

func (m *memoryUserRepo) GetByDisplayName(_ context.Context, name string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if store.NormalizeDisplayName(u.DisplayName) == store.NormalizeDisplayName(name) {
			user := u
			return &user, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memoryUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	m.users[id] = u
	return nil
}

// memoryRecordRepo is an in-memory RecordRepository for handler tests.
type memoryRecordRepo struct {
	mu      sync.Mutex
	records []store.Record
	next    int
	failErr error // when set, every call fails with this error
}

func newMemoryRecordRepo() *memoryRecordRepo {
	return &memoryRecordRepo{}
}

func (m *memoryRecordRepo) Save(_ context.Context, rec *store.Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return "", m.failErr
	}
	if rec == nil || rec.Emotion == "" || rec.UserID == "" {
		return "", store.ErrNothingToSave
	}
	m.next++
	saved := *rec
	saved.ID = fmt.Sprintf("rec-%d", m.next)
	saved.CreatedAt = time.Now()
	m.records = append(m.records, saved)
	return saved.ID, nil
}

func (m *memoryRecordRepo) ListByUser(_ context.Context, userID string, limit int) ([]store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	var out []store.Record
	for _, rec := range m.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRecordRepo) CountByUser(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return 0, m.failErr
	}
	count := 0
	for _, rec := range m.records {
		if rec.UserID == userID {
			count++
		}
	}
	return count, nil
}

// memoryResetRepo is an in-memory ResetTokenRepository for handler tests.
type memoryResetRepo struct {
	mu     sync.Mutex
	tokens map[string]struct {
		userID    string
		expiresAt time.Time
	}
	next int
}

func newMemoryResetRepo() *memoryResetRepo {
	return &memoryResetRepo{tokens: make(map[string]struct {
		userID    string
		expiresAt time.Time
	})}
}

func (m *memoryResetRepo) Create(_ context.Context, userID string, expiresAt time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	token := fmt.Sprintf("token-%d", m.next)
	m.tokens[token] = struct {
		userID    string
		expiresAt time.Time
	}{userID, expiresAt}
	return token, nil
}

func (m *memoryResetRepo) Consume(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.tokens[token]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", store.ErrNotFound
	}
	delete(m.tokens, token)
	return entry.userID, nil
}

// memorySessionRepo is an in-memory SessionRepository for handler tests.
type memorySessionRepo struct {
	mu       sync.Mutex
	sessions map[string]store.StoredSession
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[string]store.StoredSession)}
}

func (m *memorySessionRepo) Save(_ context.Context, s *store.StoredSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memorySessionRepo) Get(_ context.Context, id string) (*store.StoredSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || time.Now().After(s.ExpiresAt) {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (m *memorySessionRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memorySessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

// newTestSessionManager builds a session manager over an in-memory repo.
func newTestSessionManager(t *testing.T) *middleware.SessionManager {
	t.Helper()
	sm := middleware.NewSessionManager("test-secret", newMemorySessionRepo(), time.Hour)
	t.Cleanup(sm.Stop)
	return sm
}

// authedContext returns a context carrying a session for the user.
func authedContext(ctx context.Context, userID string) context.Context {
	return middleware.SetSessionInContext(ctx, &middleware.Session{
		ID:        "test-session",
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	})
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message.
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
