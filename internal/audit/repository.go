package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/epic-events/crm/internal/shared/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for the audit log
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts an audit entry
func (r *Repository) Append(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO crm.audit_log (
			id, actor_id, actor_role, action, resource_type, resource_id
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING recorded_at`

	err := r.pool.QueryRow(ctx, query,
		entry.ID, entry.ActorID, entry.ActorRole, entry.Action,
		entry.ResourceType, entry.ResourceID,
	).Scan(&entry.RecordedAt)

	if err != nil {
		return errors.Wrap(err, "failed to append audit entry")
	}

	return nil
}

// List lists audit entries, newest first
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Entry, int, error) {
	var conditions []string
	var args []interface{}

	if filter.ResourceType != "" {
		args = append(args, filter.ResourceType)
		conditions = append(conditions, fmt.Sprintf("resource_type = $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM crm.audit_log %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count audit entries")
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT id, actor_id, actor_role, action, resource_type, resource_id, recorded_at
		FROM crm.audit_log
		%s
		ORDER BY recorded_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, len(args)+1, len(args)+2)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list audit entries")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		err := rows.Scan(&entry.ID, &entry.ActorID, &entry.ActorRole, &entry.Action,
			&entry.ResourceType, &entry.ResourceID, &entry.RecordedAt)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan audit entry")
		}
		entries = append(entries, entry)
	}

	return entries, total, nil
}
