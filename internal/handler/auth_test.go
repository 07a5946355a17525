package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bookbarn/api/internal/auth"
	"github.com/bookbarn/api/internal/database"
	"github.com/bookbarn/api/internal/enum"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type mockAuthStore struct {
	usersByEmail map[string]database.User
	usersByID    map[uuid.UUID]database.User
}

func (m *mockAuthStore) GetUserByEmail(ctx context.Context, email string) (database.User, error) {
	u, ok := m.usersByEmail[email]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthStore) GetUser(ctx context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.usersByID[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func newAuthFixture(t *testing.T, password string) (*chi.Mux, database.User) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := database.User{
		ID:           uuid.New(),
		Email:        "jo@example.com",
		PasswordHash: string(hash),
		FullName:     "Jo Reader",
		Role:         enum.UserRoleCustomer,
	}
	store := &mockAuthStore{
		usersByEmail: map[string]database.User{user.Email: user},
		usersByID:    map[uuid.UUID]database.User{user.ID: user},
	}
	r := chi.NewRouter()
	NewAuthHandler(store, testSecret).RegisterRoutes(r)
	return r, user
}

func postJSON(t *testing.T, r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	r, user := newAuthFixture(t, "hunter2")

	rec := postJSON(t, r, "/auth/login", map[string]string{
		"email":    "jo@example.com",
		"password": "hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("missing tokens in response")
	}
	claims, err := auth.ValidateToken(testSecret, resp.AccessToken)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != enum.UserRoleCustomer {
		t.Errorf("claims = %+v", claims)
	}
	if resp.User.Email != user.Email {
		t.Errorf("user email = %q, want %q", resp.User.Email, user.Email)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	r, _ := newAuthFixture(t, "hunter2")

	rec := postJSON(t, r, "/auth/login", map[string]string{
		"email":    "jo@example.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	r, _ := newAuthFixture(t, "hunter2")

	rec := postJSON(t, r, "/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "hunter2",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLoginMissingFields(t *testing.T) {
	r, _ := newAuthFixture(t, "hunter2")

	rec := postJSON(t, r, "/auth/login", map[string]string{"email": "jo@example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRefresh(t *testing.T) {
	r, user := newAuthFixture(t, "hunter2")

	refreshToken, err := auth.GenerateRefreshToken(testSecret, user.ID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rec := postJSON(t, r, "/auth/refresh", map[string]string{"refresh_token": refreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	claims, err := auth.ValidateToken(testSecret, resp.AccessToken)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("user id = %s, want %s", claims.UserID, user.ID)
	}
}

func TestRefreshInvalidToken(t *testing.T) {
	r, _ := newAuthFixture(t, "hunter2")

	rec := postJSON(t, r, "/auth/refresh", map[string]string{"refresh_token": "garbage"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRefreshUnknownUser(t *testing.T) {
	r, _ := newAuthFixture(t, "hunter2")

	refreshToken, err := auth.GenerateRefreshToken(testSecret, uuid.New())
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rec := postJSON(t, r, "/auth/refresh", map[string]string{"refresh_token": refreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
