package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/maimood/mood-coach/internal/store"
)

const (
	sessionCookieName      = "mood_coach_session"
	defaultSessionDuration = 7 * 24 * time.Hour
	cleanupInterval        = time.Hour
)

// Session represents an authenticated user session.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionManager signs session cookies and persists sessions through the
// repository, so logins survive server restarts.
type SessionManager struct {
	secret   []byte
	repo     store.SessionRepository
	duration time.Duration
	done     chan struct{}
}

// NewSessionManager creates a new session manager. The repository is
// required; sessions are never held only in memory.
func NewSessionManager(secret string, repo store.SessionRepository, duration time.Duration) *SessionManager {
	// Use a default secret if none provided (for development)
	if secret == "" {
		secret = "mood-coach-dev-secret-change-in-production"
	}
	if duration <= 0 {
		duration = defaultSessionDuration
	}

	sm := &SessionManager{
		secret:   []byte(secret),
		repo:     repo,
		duration: duration,
		done:     make(chan struct{}),
	}
	go sm.cleanupLoop()
	return sm
}

// Stop terminates the expired-session cleanup goroutine.
func (sm *SessionManager) Stop() {
	close(sm.done)
}

func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sm.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if count, err := sm.repo.DeleteExpired(ctx); err != nil {
				log.Printf("session cleanup failed: %v", err)
			} else if count > 0 {
				log.Printf("session cleanup removed %d expired sessions", count)
			}
			cancel()
		}
	}
}

// CreateSession creates and persists a new session for a user.
func (sm *SessionManager) CreateSession(ctx context.Context, userID string) (*Session, error) {
	idBytes := make([]byte, 32)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, err
	}
	sessionID := base64.URLEncoding.EncodeToString(idBytes)

	session := &Session{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(sm.duration),
	}

	err := sm.repo.Save(ctx, &store.StoredSession{
		ID:        session.ID,
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// GetSession retrieves a session by ID, nil if missing or expired.
func (sm *SessionManager) GetSession(ctx context.Context, sessionID string) *Session {
	stored, err := sm.repo.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("session lookup failed: %v", err)
		}
		return nil
	}

	return &Session{
		ID:        stored.ID,
		UserID:    stored.UserID,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}
}

// DeleteSession removes a session.
func (sm *SessionManager) DeleteSession(ctx context.Context, sessionID string) {
	if err := sm.repo.Delete(ctx, sessionID); err != nil {
		log.Printf("session delete failed: %v", err)
	}
}

// SetSessionCookie sets the signed session cookie on the response.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, session *Session) {
	signature := sm.signData(session.ID)
	cookieValue := session.ID + "." + signature

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    cookieValue,
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sm.duration.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie.
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest extracts the session from a request. The cookie must
// carry a valid HMAC signature; a bearer session id is accepted as well.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil {
		parts := strings.SplitN(cookie.Value, ".", 2)
		if len(parts) == 2 && sm.verifySignature(parts[0], parts[1]) {
			if session := sm.GetSession(r.Context(), parts[0]); session != nil {
				return session
			}
		}
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		sessionID := strings.TrimPrefix(authHeader, "Bearer ")
		if session := sm.GetSession(r.Context(), sessionID); session != nil {
			return session
		}
	}

	return nil
}

// signData creates an HMAC signature for data.
func (sm *SessionManager) signData(data string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

// verifySignature verifies an HMAC signature.
func (sm *SessionManager) verifySignature(data, signature string) bool {
	expected := sm.signData(data)
	return hmac.Equal([]byte(signature), []byte(expected))
}
