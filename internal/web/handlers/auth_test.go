package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newAuthHandler(t *testing.T) (*AuthHandler, *memoryUserRepo, *memoryResetRepo) {
	t.Helper()
	users := newMemoryUserRepo()
	resets := newMemoryResetRepo()
	sm := newTestSessionManager(t)
	return NewAuthHandler(users, resets, sm), users, resets
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRegister_Success(t *testing.T) {
	h, users, _ := newAuthHandler(t)

	rec := postJSON(t, h.Register, "/api/v1/auth/register", map[string]string{
		"email":            "new@example.com",
		"display_name":     "New User",
		"password":         "secret123",
		"confirm_password": "secret123",
	})

	assertStatusCode(t, rec, http.StatusOK)

	var resp LoginResponse
	parseJSONResponse(t, rec, &resp)
	if !resp.Success || resp.User == nil || resp.User.Email != "new@example.com" {
		t.Errorf("unexpected response %+v", resp)
	}

	// Password must be stored hashed, never plaintext.
	stored, err := users.GetByEmail(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	if stored.PasswordHash == "secret123" {
		t.Error("password stored in plaintext")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")) != nil {
		t.Error("stored hash does not verify against the password")
	}

	// Session cookie set.
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected session cookie")
	}
}

func TestRegister_Validation(t *testing.T) {
	h, _, _ := newAuthHandler(t)

	tests := []struct {
		name    string
		body    map[string]string
		wantErr string
	}{
		{
			name:    "missing fields",
			body:    map[string]string{"email": "a@b.c"},
			wantErr: "all fields are required",
		},
		{
			name: "short password",
			body: map[string]string{
				"email": "a@b.c", "display_name": "A",
				"password": "12345", "confirm_password": "12345",
			},
			wantErr: "password must be at least 6 characters",
		},
		{
			name: "mismatched passwords",
			body: map[string]string{
				"email": "a@b.c", "display_name": "A",
				"password": "123456", "confirm_password": "654321",
			},
			wantErr: "passwords do not match",
		},
		{
			name: "bad email",
			body: map[string]string{
				"email": "not-an-email", "display_name": "A",
				"password": "123456", "confirm_password": "123456",
			},
			wantErr: "invalid email address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.Register, "/api/v1/auth/register", tt.body)
			assertStatusCode(t, rec, http.StatusBadRequest)
			assertJSONError(t, rec, tt.wantErr)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	h, _, _ := newAuthHandler(t)

	body := map[string]string{
		"email": "dup@example.com", "display_name": "Dup",
		"password": "secret123", "confirm_password": "secret123",
	}
	postJSON(t, h.Register, "/api/v1/auth/register", body)
	rec := postJSON(t, h.Register, "/api/v1/auth/register", body)

	assertStatusCode(t, rec, http.StatusConflict)
	assertJSONError(t, rec, "email already registered")
}

func TestLogin_Success(t *testing.T) {
	h, users, _ := newAuthHandler(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	users.Create(context.Background(), "jan@example.com", "Jan", string(hash))

	rec := postJSON(t, h.Login, "/api/v1/auth/login", map[string]string{
		"email":    "jan@example.com",
		"password": "secret123",
	})

	assertStatusCode(t, rec, http.StatusOK)

	var resp LoginResponse
	parseJSONResponse(t, rec, &resp)
	if !resp.Success || resp.User == nil || resp.User.DisplayName != "Jan" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	h, users, _ := newAuthHandler(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	users.Create(context.Background(), "jan@example.com", "Jan", string(hash))

	rec := postJSON(t, h.Login, "/api/v1/auth/login", map[string]string{
		"email":    "jan@example.com",
		"password": "wrong",
	})

	assertStatusCode(t, rec, http.StatusUnauthorized)
}

func TestLogin_UnknownUserSameError(t *testing.T) {
	h, _, _ := newAuthHandler(t)

	rec := postJSON(t, h.Login, "/api/v1/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever",
	})

	assertStatusCode(t, rec, http.StatusUnauthorized)

	var resp LoginResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Error != "invalid credentials" {
		t.Errorf("expected generic error, got '%s'", resp.Error)
	}
}

func TestStatus_Unauthenticated(t *testing.T) {
	h, _, _ := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/status", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp StatusResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Authenticated {
		t.Error("expected unauthenticated status")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	h, users, resets := newAuthHandler(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("oldpass"), bcrypt.DefaultCost)
	user, _ := users.Create(context.Background(), "reset@example.com", "Reset", string(hash))

	// Request: response is the same for unknown accounts.
	rec := postJSON(t, h.RequestReset, "/api/v1/auth/reset", map[string]string{"email": "reset@example.com"})
	assertStatusCode(t, rec, http.StatusOK)

	rec = postJSON(t, h.RequestReset, "/api/v1/auth/reset", map[string]string{"email": "unknown@example.com"})
	assertStatusCode(t, rec, http.StatusOK)

	// A token was only created for the real account.
	token, err := resets.Create(context.Background(), user.ID, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}

	// Confirm with the token.
	rec = postJSON(t, h.ConfirmReset, "/api/v1/auth/reset/confirm", map[string]string{
		"token":            token,
		"password":         "newpass123",
		"confirm_password": "newpass123",
	})
	assertStatusCode(t, rec, http.StatusOK)

	stored, _ := users.GetByID(context.Background(), user.ID)
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("newpass123")) != nil {
		t.Error("password was not updated")
	}

	// Token is single use.
	rec = postJSON(t, h.ConfirmReset, "/api/v1/auth/reset/confirm", map[string]string{
		"token":            token,
		"password":         "another123",
		"confirm_password": "another123",
	})
	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, "invalid or expired token")
}
