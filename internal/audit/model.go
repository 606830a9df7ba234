// Package audit records successful write operations for later review.
package audit

import (
	"time"

	"github.com/epic-events/crm/internal/account"
	"github.com/epic-events/crm/internal/shared/types"
)

// Action identifies the kind of write an entry records.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Entry is one audit log record
type Entry struct {
	ID           types.ID     `json:"id"`
	ActorID      types.ID     `json:"actor_id"`
	ActorRole    account.Role `json:"actor_role"`
	Action       Action       `json:"action"`
	ResourceType string       `json:"resource_type"`
	ResourceID   types.ID     `json:"resource_id"`
	RecordedAt   time.Time    `json:"recorded_at"`
}

// NewEntry builds an entry for a write performed now
func NewEntry(actorID types.ID, actorRole account.Role, action Action, resourceType string, resourceID types.ID) *Entry {
	return &Entry{
		ID:           types.NewID(),
		ActorID:      actorID,
		ActorRole:    actorRole,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// ListFilter defines filters for listing audit entries
type ListFilter struct {
	ResourceType string `json:"resource_type,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}
