package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/epic-events/crm/internal/access"
	"github.com/epic-events/crm/internal/shared/errors"
	"github.com/epic-events/crm/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for clients
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new client repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = `c.id, c.company_name, c.status, c.sales_contact,
	c.first_name, c.last_name, c.email, c.phone_number, c.mobile_number,
	c.date_created, c.date_updated`

// scopeCondition translates a visibility scope into a WHERE fragment
// over the clients table (aliased c).
func scopeCondition(scope access.Scope, args *[]interface{}) string {
	switch scope.Kind {
	case access.ScopeAll:
		return "TRUE"
	case access.ScopeOwnedBySales:
		*args = append(*args, scope.ContactID)
		return fmt.Sprintf("c.sales_contact = $%d", len(*args))
	case access.ScopeWithEvent:
		return `EXISTS (
			SELECT 1 FROM crm.contracts co
			JOIN crm.events e ON e.contract_id = co.id
			WHERE co.client_id = c.id)`
	}
	return "FALSE"
}

func scanClient(row pgx.Row) (*Client, error) {
	client := &Client{}
	var phone, mobile *string
	err := row.Scan(
		&client.ID, &client.CompanyName, &client.Status, &client.SalesContact,
		&client.FirstName, &client.LastName, &client.Email, &phone, &mobile,
		&client.DateCreated, &client.DateUpdated,
	)
	if err != nil {
		return nil, err
	}
	if phone != nil {
		client.Contact.PhoneNumber = *phone
	}
	if mobile != nil {
		client.Contact.MobileNumber = *mobile
	}
	return client, nil
}

// Create inserts a new client
func (r *Repository) Create(ctx context.Context, client *Client) error {
	query := `
		INSERT INTO crm.clients (
			id, company_name, status, sales_contact,
			first_name, last_name, email, phone_number, mobile_number
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING date_created`

	err := r.pool.QueryRow(ctx, query,
		client.ID, client.CompanyName, client.Status, client.SalesContact,
		client.FirstName, client.LastName, client.Email,
		client.Contact.PhoneNumber, client.Contact.MobileNumber,
	).Scan(&client.DateCreated)

	if err != nil {
		return errors.Wrap(err, "failed to create client")
	}

	return nil
}

// Get retrieves a client by ID within the given visibility scope. A
// client outside the scope is reported as not found.
func (r *Repository) Get(ctx context.Context, id types.ID, scope access.Scope) (*Client, error) {
	args := []interface{}{id}
	cond := scopeCondition(scope, &args)

	query := fmt.Sprintf(`
		SELECT `+clientColumns+`
		FROM crm.clients c
		WHERE c.id = $1 AND %s`, cond)

	client, err := scanClient(r.pool.QueryRow(ctx, query, args...))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("client", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get client")
	}

	return client, nil
}

// Update persists the mutable client fields and stamps date_updated at
// the moment of persistence.
func (r *Repository) Update(ctx context.Context, client *Client) error {
	query := `
		UPDATE crm.clients SET
			company_name = $2, status = $3, sales_contact = $4,
			first_name = $5, last_name = $6, email = $7,
			phone_number = $8, mobile_number = $9,
			date_updated = NOW()
		WHERE id = $1
		RETURNING date_updated`

	err := r.pool.QueryRow(ctx, query,
		client.ID, client.CompanyName, client.Status, client.SalesContact,
		client.FirstName, client.LastName, client.Email,
		client.Contact.PhoneNumber, client.Contact.MobileNumber,
	).Scan(&client.DateUpdated)

	if err == pgx.ErrNoRows {
		return errors.NotFound("client", client.ID.String())
	}
	if err != nil {
		if strings.Contains(err.Error(), "foreign key") {
			return errors.Validation("validation failed", map[string]string{
				"sales_contact": "unknown user",
			})
		}
		return errors.Wrap(err, "failed to update client")
	}

	return nil
}

// List lists clients within the visibility scope with optional filters
func (r *Repository) List(ctx context.Context, scope access.Scope, filter ListFilter) ([]Client, int, error) {
	var args []interface{}
	conditions := []string{scopeCondition(scope, &args)}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)))
	}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(c.company_name ILIKE $%d OR c.first_name ILIKE $%d OR c.last_name ILIKE $%d OR c.email ILIKE $%d)",
			n, n, n, n))
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM crm.clients c %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count clients")
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT `+clientColumns+`
		FROM crm.clients c
		%s
		ORDER BY c.company_name
		LIMIT $%d OFFSET $%d`, whereClause, len(args)+1, len(args)+2)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list clients")
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan client")
		}
		clients = append(clients, *client)
	}

	return clients, total, nil
}

// ContractSummaries loads the contracts of a client with their events,
// for the detail response.
func (r *Repository) ContractSummaries(ctx context.Context, clientID types.ID) ([]ContractSummary, error) {
	query := `
		SELECT co.id, co.status, co.amount,
			e.id, e.status, e.event_date
		FROM crm.contracts co
		LEFT JOIN crm.events e ON e.contract_id = co.id
		WHERE co.client_id = $1
		ORDER BY co.date_created`

	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list client contracts")
	}
	defer rows.Close()

	summaries := []ContractSummary{}
	for rows.Next() {
		var s ContractSummary
		var contractStatus string
		var eventID *types.ID
		var eventStatus *string
		err := rows.Scan(&s.ContractID, &contractStatus, &s.ContractAmount,
			&eventID, &eventStatus, &s.EventDate)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan contract summary")
		}
		s.ContractStatus = contractStatus
		s.EventID = eventID
		s.EventStatus = eventStatus
		summaries = append(summaries, s)
	}

	return summaries, nil
}
