package account

import (
	"context"
	"strings"

	"github.com/epic-events/crm/internal/shared/errors"
	"github.com/epic-events/crm/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for users
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new account repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password_hash, first_name, last_name,
	phone_number, mobile_number, role, date_created, date_updated`

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	var phone, mobile *string
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&phone, &mobile, &user.Role, &user.DateCreated, &user.DateUpdated,
	)
	if err != nil {
		return nil, err
	}
	if phone != nil {
		user.Contact.PhoneNumber = *phone
	}
	if mobile != nil {
		user.Contact.MobileNumber = *mobile
	}
	return user, nil
}

// Create inserts a new user
func (r *Repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO crm.users (
			id, email, password_hash, first_name, last_name,
			phone_number, mobile_number, role
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Contact.PhoneNumber, user.Contact.MobileNumber, user.Role,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Validation("validation failed", map[string]string{
				"email": "user with this email already exists",
			})
		}
		return errors.Wrap(err, "failed to create user")
	}

	return nil
}

// Get retrieves a user by ID
func (r *Repository) Get(ctx context.Context, id types.ID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM crm.users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("user", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user")
	}

	return user, nil
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM crm.users WHERE email = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("user", email)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user by email")
	}

	return user, nil
}
