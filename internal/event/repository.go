package event

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

// Repository provides database operations for events
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new event repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Events are always read joined through contract to client so the
// derived chain (client, sales owner) travels with the record.
const eventColumns = `e.id, e.contract_id, e.support_contact, e.status,
	e.attendees, e.event_date, e.notes, co.client_id, cl.sales_contact,
	e.date_created, e.date_updated`

const eventFrom = `FROM crm.events e
	JOIN crm.contracts co ON co.id = e.contract_id
	JOIN crm.clients cl ON cl.id = co.client_id`

// scopeCondition translates a visibility scope into a WHERE fragment
// over the events join (aliases e, co, cl).
func scopeCondition(scope access.Scope, args *[]interface{}) string {
	switch scope.Kind {
	case access.ScopeAll:
		return "TRUE"
	case access.ScopeOwnedBySales:
		*args = append(*args, scope.ContactID)
		return fmt.Sprintf("cl.sales_contact = $%d", len(*args))
	case access.ScopeWithEvent:
		// An event is trivially its own descendant event.
		return "TRUE"
	}
	return "FALSE"
}

func scanEvent(row pgx.Row) (*Event, error) {
	event := &Event{}
	err := row.Scan(
		&event.ID, &event.ContractID, &event.SupportContact, &event.Status,
		&event.Attendees, &event.EventDate, &event.Notes,
		&event.ClientID, &event.SalesContact,
		&event.DateCreated, &event.DateUpdated,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ContractOwner resolves a contract's client and the sales contact at
// the top of its chain. Missing contracts are a validation concern for
// create.
func (r *Repository) ContractOwner(ctx context.Context, contractID types.ID) (clientID, owner types.ID, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT cl.id, cl.sales_contact
		FROM crm.contracts co
		JOIN crm.clients cl ON cl.id = co.client_id
		WHERE co.id = $1`, contractID,
	).Scan(&clientID, &owner)

	if err == pgx.ErrNoRows {
		return "", "", errors.NotFound("contract", contractID.String())
	}
	if err != nil {
		return "", "", errors.Wrap(err, "failed to resolve contract owner")
	}

	return clientID, owner, nil
}

// Create inserts a new event. The one-event-per-contract constraint is
// enforced by the database; a violation surfaces as a validation error
// keyed on the contract field.
func (r *Repository) Create(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO crm.events (id, contract_id, support_contact, status, attendees, event_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING date_created`

	err := r.pool.QueryRow(ctx, query,
		event.ID, event.ContractID, event.SupportContact, event.Status,
		event.Attendees, event.EventDate, event.Notes,
	).Scan(&event.DateCreated)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Validation("validation failed", map[string]string{
				"contract": "contract already has an event",
			})
		}
		return errors.Wrap(err, "failed to create event")
	}

	return nil
}

// Get retrieves an event by ID within the given visibility scope. An
// event outside the scope is reported as not found.
func (r *Repository) Get(ctx context.Context, id types.ID, scope access.Scope) (*Event, error) {
	args := []interface{}{id}
	cond := scopeCondition(scope, &args)

	query := fmt.Sprintf(`
		SELECT `+eventColumns+`
		`+eventFrom+`
		WHERE e.id = $1 AND %s`, cond)

	event, err := scanEvent(r.pool.QueryRow(ctx, query, args...))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("event", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get event")
	}

	return event, nil
}

// Update persists the mutable event fields and stamps date_updated at
// the moment of persistence.
func (r *Repository) Update(ctx context.Context, event *Event) error {
	query := `
		UPDATE crm.events SET
			support_contact = $2, status = $3, attendees = $4,
			event_date = $5, notes = $6,
			date_updated = NOW()
		WHERE id = $1
		RETURNING date_updated`

	err := r.pool.QueryRow(ctx, query,
		event.ID, event.SupportContact, event.Status,
		event.Attendees, event.EventDate, event.Notes,
	).Scan(&event.DateUpdated)

	if err == pgx.ErrNoRows {
		return errors.NotFound("event", event.ID.String())
	}
	if err != nil {
		return errors.Wrap(err, "failed to update event")
	}

	return nil
}

// List lists events within the visibility scope with optional filters
func (r *Repository) List(ctx context.Context, scope access.Scope, filter ListFilter) ([]Event, int, error) {
	var args []interface{}
	conditions := []string{scopeCondition(scope, &args)}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)))
	}

	if filter.SupportContact != nil {
		args = append(args, *filter.SupportContact)
		conditions = append(conditions, fmt.Sprintf("e.support_contact = $%d", len(args)))
	}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(cl.company_name ILIKE $%d OR cl.first_name ILIKE $%d OR cl.last_name ILIKE $%d OR cl.email ILIKE $%d)",
			n, n, n, n))
	}

	if filter.EventDateBefore != nil {
		args = append(args, *filter.EventDateBefore)
		conditions = append(conditions, fmt.Sprintf("e.event_date <= $%d", len(args)))
	}

	if filter.EventDateAfter != nil {
		args = append(args, *filter.EventDateAfter)
		conditions = append(conditions, fmt.Sprintf("e.event_date >= $%d", len(args)))
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) "+eventFrom+" %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count events")
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT `+eventColumns+`
		`+eventFrom+`
		%s
		ORDER BY e.date_created
		LIMIT $%d OFFSET $%d`, whereClause, len(args)+1, len(args)+2)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list events")
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan event")
		}
		events = append(events, *event)
	}

	return events, total, nil
}
