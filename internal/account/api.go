package account

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/epic-events/crm/internal/shared/config"
	"github.com/epic-events/crm/internal/shared/errors"
	"github.com/epic-events/crm/internal/shared/types"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Claims extends JWT claims with the identity the access layer needs.
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"` // "access" or "refresh"
}

// UserStore is the lookup surface the token endpoints need.
type UserStore interface {
	Get(ctx context.Context, id types.ID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// Handler provides the token endpoints
type Handler struct {
	store UserStore
	cfg   config.AuthConfig
}

// NewHandler creates a new account handler
func NewHandler(store UserStore, cfg config.AuthConfig) *Handler {
	return &Handler{store: store, cfg: cfg}
}

// Routes registers the token routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.ObtainPair)
	r.Post("/refresh", h.Refresh)
	return r
}

// ObtainPair exchanges email+password for an access/refresh token pair
func (h *Handler) ObtainPair(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"email":    "email is required",
			"password": "password is required",
		}))
		return
	}

	user, err := h.store.GetByEmail(r.Context(), req.Email)
	if err != nil {
		// Same response for unknown email and wrong password.
		writeError(w, errors.Unauthorized("invalid credentials"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, errors.Unauthorized("invalid credentials"))
		return
	}

	pair, err := h.issuePair(user)
	if err != nil {
		writeError(w, errors.Wrap(err, "failed to issue tokens"))
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// Refresh exchanges a refresh token for a new token pair
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(req.Refresh, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid || claims.TokenType != "refresh" {
		writeError(w, errors.Unauthorized("invalid refresh token"))
		return
	}

	userID, err := types.ParseID(claims.Subject)
	if err != nil {
		writeError(w, errors.Unauthorized("invalid refresh token"))
		return
	}

	// Re-resolve the user so role changes take effect on refresh.
	user, err := h.store.Get(r.Context(), userID)
	if err != nil {
		writeError(w, errors.Unauthorized("invalid refresh token"))
		return
	}

	pair, err := h.issuePair(user)
	if err != nil {
		writeError(w, errors.Wrap(err, "failed to issue tokens"))
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) issuePair(user *User) (*TokenPair, error) {
	access, err := h.sign(user, "access", h.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := h.sign(user, "refresh", h.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (h *Handler) sign(user *User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:     user.Email,
		Role:      string(user.Role),
		TokenType: tokenType,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.JWTSecret))
}

// HashPassword hashes a plaintext password for storage
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
