// Package account holds the user identity model and the fixed role set
// gating every operation in the API.
package account

import (
	"fmt"
	"time"

	"github.com/epic-events/crm/internal/shared/types"
)

// Role is the closed set of team roles. Every authorization branch must
// switch over all three values.
type Role string

const (
	RoleSales      Role = "sales"
	RoleSupport    Role = "support"
	RoleManagement Role = "management"
)

// ParseRole validates a role string against the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSales, RoleSupport, RoleManagement:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Label returns the display name for the role.
func (r Role) Label() string {
	switch r {
	case RoleSales:
		return "Sales Team"
	case RoleSupport:
		return "Support Team"
	case RoleManagement:
		return "Management Team"
	}
	return string(r)
}

// User represents a team member able to authenticate against the API.
type User struct {
	ID           types.ID          `json:"id"`
	Email        string            `json:"email"`
	PasswordHash string            `json:"-"`
	FirstName    string            `json:"first_name"`
	LastName     string            `json:"last_name"`
	Contact      types.ContactInfo `json:"contact"`
	Role         Role              `json:"role"`

	DateCreated time.Time  `json:"date_created"`
	DateUpdated *time.Time `json:"date_updated"`
}

// FullName returns the user's full name
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// TokenRequest is the request to obtain a token pair.
type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the request to refresh an access token.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// TokenPair is the issued access/refresh token response.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
