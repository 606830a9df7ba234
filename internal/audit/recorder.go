package audit

import (
	"context"
	"fmt"

	"github.com/epic-events/crm/internal/shared/auth"
	"github.com/epic-events/crm/internal/shared/types"
)

// Store is the persistence surface the recorder writes to.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
}

// Recorder appends entries for successful writes. A nil Recorder is a
// no-op so handlers can run without auditing configured.
type Recorder struct {
	store Store
}

// NewRecorder creates a recorder over a store
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record appends an entry for the principal's write. Failures are
// reported but never fail the request that triggered them.
func (r *Recorder) Record(ctx context.Context, p *auth.Principal, action Action, resourceType string, resourceID types.ID) {
	if r == nil || r.store == nil || p == nil {
		return
	}

	entry := NewEntry(p.ID, p.Role, action, resourceType, resourceID)
	if err := r.store.Append(ctx, entry); err != nil {
		fmt.Printf("Warning: audit append failed: %v\n", err)
	}
}
