package contract

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

// Repository provides database operations for contracts
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new contract repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Contracts are always read joined to their client so the derived sales
// owner travels with the record.
const contractColumns = `co.id, co.client_id, co.status, co.amount,
	co.payment_due, cl.sales_contact, co.date_created, co.date_updated`

const contractFrom = `FROM crm.contracts co JOIN crm.clients cl ON cl.id = co.client_id`

// scopeCondition translates a visibility scope into a WHERE fragment
// over the contracts join (aliases co, cl).
func scopeCondition(scope access.Scope, args *[]interface{}) string {
	switch scope.Kind {
	case access.ScopeAll:
		return "TRUE"
	case access.ScopeOwnedBySales:
		*args = append(*args, scope.ContactID)
		return fmt.Sprintf("cl.sales_contact = $%d", len(*args))
	case access.ScopeWithEvent:
		return `EXISTS (SELECT 1 FROM crm.events e WHERE e.contract_id = co.id)`
	}
	return "FALSE"
}

func scanContract(row pgx.Row) (*Contract, error) {
	contract := &Contract{}
	err := row.Scan(
		&contract.ID, &contract.ClientID, &contract.Status, &contract.Amount,
		&contract.PaymentDue, &contract.SalesContact,
		&contract.DateCreated, &contract.DateUpdated,
	)
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// ClientOwner resolves the sales contact of a client referenced by a
// create payload. Missing clients are a validation concern, so the
// caller gets a distinguishable not-found.
func (r *Repository) ClientOwner(ctx context.Context, clientID types.ID) (types.ID, error) {
	var owner types.ID
	err := r.pool.QueryRow(ctx,
		`SELECT sales_contact FROM crm.clients WHERE id = $1`, clientID,
	).Scan(&owner)

	if err == pgx.ErrNoRows {
		return "", errors.NotFound("client", clientID.String())
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve client owner")
	}

	return owner, nil
}

// Create inserts a new contract
func (r *Repository) Create(ctx context.Context, contract *Contract) error {
	query := `
		INSERT INTO crm.contracts (id, client_id, status, amount, payment_due)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING date_created`

	err := r.pool.QueryRow(ctx, query,
		contract.ID, contract.ClientID, contract.Status, contract.Amount, contract.PaymentDue,
	).Scan(&contract.DateCreated)

	if err != nil {
		return errors.Wrap(err, "failed to create contract")
	}

	return nil
}

// Get retrieves a contract by ID within the given visibility scope. A
// contract outside the scope is reported as not found.
func (r *Repository) Get(ctx context.Context, id types.ID, scope access.Scope) (*Contract, error) {
	args := []interface{}{id}
	cond := scopeCondition(scope, &args)

	query := fmt.Sprintf(`
		SELECT `+contractColumns+`
		`+contractFrom+`
		WHERE co.id = $1 AND %s`, cond)

	contract, err := scanContract(r.pool.QueryRow(ctx, query, args...))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("contract", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get contract")
	}

	return contract, nil
}

// Update persists the mutable contract fields and stamps date_updated
// at the moment of persistence.
func (r *Repository) Update(ctx context.Context, contract *Contract) error {
	query := `
		UPDATE crm.contracts SET
			status = $2, amount = $3, payment_due = $4,
			date_updated = NOW()
		WHERE id = $1
		RETURNING date_updated`

	err := r.pool.QueryRow(ctx, query,
		contract.ID, contract.Status, contract.Amount, contract.PaymentDue,
	).Scan(&contract.DateUpdated)

	if err == pgx.ErrNoRows {
		return errors.NotFound("contract", contract.ID.String())
	}
	if err != nil {
		return errors.Wrap(err, "failed to update contract")
	}

	return nil
}

// List lists contracts within the visibility scope with optional filters
func (r *Repository) List(ctx context.Context, scope access.Scope, filter ListFilter) ([]Contract, int, error) {
	var args []interface{}
	conditions := []string{scopeCondition(scope, &args)}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("co.status = $%d", len(args)))
	}

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		conditions = append(conditions, fmt.Sprintf("co.client_id = $%d", len(args)))
	}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(cl.company_name ILIKE $%d OR cl.first_name ILIKE $%d OR cl.last_name ILIKE $%d OR cl.email ILIKE $%d)",
			n, n, n, n))
	}

	if filter.AmountMin != nil {
		args = append(args, *filter.AmountMin)
		conditions = append(conditions, fmt.Sprintf("co.amount >= $%d", len(args)))
	}

	if filter.AmountMax != nil {
		args = append(args, *filter.AmountMax)
		conditions = append(conditions, fmt.Sprintf("co.amount <= $%d", len(args)))
	}

	if filter.PaymentDueBefore != nil {
		args = append(args, *filter.PaymentDueBefore)
		conditions = append(conditions, fmt.Sprintf("co.payment_due <= $%d", len(args)))
	}

	if filter.PaymentDueAfter != nil {
		args = append(args, *filter.PaymentDueAfter)
		conditions = append(conditions, fmt.Sprintf("co.payment_due >= $%d", len(args)))
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) "+contractFrom+" %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count contracts")
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT `+contractColumns+`
		`+contractFrom+`
		%s
		ORDER BY co.date_created
		LIMIT $%d OFFSET $%d`, whereClause, len(args)+1, len(args)+2)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list contracts")
	}
	defer rows.Close()

	var contracts []Contract
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan contract")
		}
		contracts = append(contracts, *contract)
	}

	return contracts, total, nil
}

// Event loads the event attached to a contract, or nil when none
// exists, for the detail response.
func (r *Repository) Event(ctx context.Context, contractID types.ID) (*EventSummary, error) {
	query := `
		SELECT id, status, support_contact, event_date
		FROM crm.events
		WHERE contract_id = $1`

	event := &EventSummary{}
	err := r.pool.QueryRow(ctx, query, contractID).Scan(
		&event.ID, &event.Status, &event.SupportContact, &event.EventDate,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get contract event")
	}

	return event, nil
}
