package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/epic-events/crm/internal/account"
	"github.com/epic-events/crm/internal/shared/config"
	"github.com/epic-events/crm/internal/shared/types"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const principalContextKey contextKey = "principal"

// Principal is the authenticated actor making a request.
type Principal struct {
	ID    types.ID     `json:"sub"`
	Email string       `json:"email"`
	Role  account.Role `json:"role"`
}

// IsManagement reports whether the principal carries the administrative
// override role.
func (p *Principal) IsManagement() bool {
	return p.Role == account.RoleManagement
}

// Middleware creates bearer-token authentication middleware. Requests
// without a resolvable principal are rejected with 401 before reaching
// any handler.
func Middleware(cfg config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims := &account.Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			// Refresh tokens are not valid for API access.
			if claims.TokenType != "access" {
				writeError(w, http.StatusUnauthorized, "invalid token type")
				return
			}

			id, err := types.ParseID(claims.Subject)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token subject")
				return
			}

			role, err := account.ParseRole(claims.Role)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token role")
				return
			}

			principal := &Principal{
				ID:    id,
				Email: claims.Email,
				Role:  role,
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// GetPrincipal extracts the principal from request context
func GetPrincipal(ctx context.Context) *Principal {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	if !ok {
		return nil
	}
	return p
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
