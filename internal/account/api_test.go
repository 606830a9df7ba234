package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/epic-events/crm/internal/shared/config"
	"github.com/epic-events/crm/internal/shared/errors"
	"github.com/epic-events/crm/internal/shared/types"
	"github.com/golang-jwt/jwt/v5"
)

type fakeStore struct {
	users map[string]*User
}

func (s *fakeStore) Get(ctx context.Context, id types.ID) (*User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, errors.NotFound("user", id.String())
}

func (s *fakeStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := s.users[email]
	if !ok {
		return nil, errors.NotFound("user", email)
	}
	return u, nil
}

func testHandler(t *testing.T) (*Handler, *User) {
	t.Helper()

	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	user := &User{
		ID:           types.NewID(),
		Email:        "ada@epicevents.test",
		PasswordHash: hash,
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Role:         RoleSales,
	}

	cfg := config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 8 * time.Hour,
	}

	return NewHandler(&fakeStore{users: map[string]*User{user.Email: user}}, cfg), user
}

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- ObtainPair Tests ---

func TestObtainPair(t *testing.T) {
	handler, user := testHandler(t)
	router := handler.Routes()

	rec := postJSON(router, "/", `{"email":"ada@epicevents.test","password":"s3cret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var pair TokenPair
	if err := json.NewDecoder(rec.Body).Decode(&pair); err != nil {
		t.Fatalf("Failed to decode token pair: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatal("Both tokens should be issued")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(pair.Access, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("Access token should parse and validate: %v", err)
	}
	if claims.TokenType != "access" {
		t.Errorf("Expected token type 'access', got '%s'", claims.TokenType)
	}
	if claims.Subject != user.ID.String() {
		t.Errorf("Expected subject %s, got %s", user.ID, claims.Subject)
	}
	if claims.Role != string(RoleSales) {
		t.Errorf("Expected role 'sales', got '%s'", claims.Role)
	}
}

func TestObtainPairRejectsBadCredentials(t *testing.T) {
	handler, _ := testHandler(t)
	router := handler.Routes()

	tests := []struct {
		name string
		body string
	}{
		{"wrong password", `{"email":"ada@epicevents.test","password":"wrong"}`},
		{"unknown email", `{"email":"nobody@epicevents.test","password":"s3cret"}`},
	}

	var bodies []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(router, "/", tt.body)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401, got %d", rec.Code)
			}
			bodies = append(bodies, rec.Body.String())
		})
	}

	// Unknown email and wrong password must be indistinguishable.
	if len(bodies) == 2 && bodies[0] != bodies[1] {
		t.Error("Credential failures should produce identical responses")
	}
}

func TestObtainPairValidation(t *testing.T) {
	handler, _ := testHandler(t)
	router := handler.Routes()

	rec := postJSON(router, "/", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing fields, got %d", rec.Code)
	}

	rec = postJSON(router, "/", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", rec.Code)
	}
}

// --- Refresh Tests ---

func TestRefresh(t *testing.T) {
	handler, _ := testHandler(t)
	router := handler.Routes()

	rec := postJSON(router, "/", `{"email":"ada@epicevents.test","password":"s3cret"}`)
	var pair TokenPair
	if err := json.NewDecoder(rec.Body).Decode(&pair); err != nil {
		t.Fatalf("Failed to decode token pair: %v", err)
	}

	rec = postJSON(router, "/refresh", `{"refresh":"`+pair.Refresh+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var fresh TokenPair
	if err := json.NewDecoder(rec.Body).Decode(&fresh); err != nil {
		t.Fatalf("Failed to decode refreshed pair: %v", err)
	}
	if fresh.Access == "" || fresh.Refresh == "" {
		t.Error("Refresh should issue a full new pair")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	handler, _ := testHandler(t)
	router := handler.Routes()

	rec := postJSON(router, "/", `{"email":"ada@epicevents.test","password":"s3cret"}`)
	var pair TokenPair
	if err := json.NewDecoder(rec.Body).Decode(&pair); err != nil {
		t.Fatalf("Failed to decode token pair: %v", err)
	}

	// An access token is not valid on the refresh endpoint.
	rec = postJSON(router, "/refresh", `{"refresh":"`+pair.Access+`"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	handler, _ := testHandler(t)
	router := handler.Routes()

	rec := postJSON(router, "/refresh", `{"refresh":"not-a-token"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}
