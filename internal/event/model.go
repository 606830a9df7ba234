package event

import (
	"time"

	"github.com/epic-events/crm/internal/shared/types"
)

// Status defines the lifecycle status of an event
type Status string

const (
	StatusCreated   Status = "created"
	StatusInProcess Status = "in_process"
	StatusEnded     Status = "ended"
)

// Statuses lists the fixed status values, create default first.
func Statuses() []Status {
	return []Status{StatusCreated, StatusInProcess, StatusEnded}
}

// Valid reports whether the status is one of the fixed values
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusInProcess, StatusEnded:
		return true
	}
	return false
}

// Label returns the display name for the status
func (s Status) Label() string {
	switch s {
	case StatusCreated:
		return "Created"
	case StatusInProcess:
		return "In Process"
	case StatusEnded:
		return "Ended"
	}
	return string(s)
}

// Event represents the delivery side of a signed contract. At most one
// event exists per contract. SupportContact is assignable and may be
// unset; ClientID and SalesContact are derived through the contract.
type Event struct {
	ID             types.ID  `json:"id"`
	ContractID     types.ID  `json:"contract"`
	SupportContact *types.ID `json:"support_contact"`
	Status         Status    `json:"status"`

	Attendees *int       `json:"attendees"`
	EventDate *time.Time `json:"event_date"`
	Notes     string     `json:"notes"`

	ClientID     types.ID `json:"client"`
	SalesContact types.ID `json:"sales_contact"`

	DateCreated time.Time  `json:"date_created"`
	DateUpdated *time.Time `json:"date_updated"`
}

// CreateRequest is the request to create an event
type CreateRequest struct {
	ContractID     types.ID   `json:"contract"`
	SupportContact *types.ID  `json:"support_contact"`
	Status         *Status    `json:"status"`
	Attendees      *int       `json:"attendees"`
	EventDate      *time.Time `json:"event_date"`
	Notes          string     `json:"notes"`
}

// UpdateRequest is the request to update an event. The owning contract
// is fixed at creation.
type UpdateRequest struct {
	SupportContact *types.ID  `json:"support_contact,omitempty"`
	Status         *Status    `json:"status,omitempty"`
	Attendees      *int       `json:"attendees,omitempty"`
	EventDate      *time.Time `json:"event_date,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

// ListFilter defines filters for listing events. Search matches the
// owning client's company and contact fields.
type ListFilter struct {
	Status          *Status    `json:"status,omitempty"`
	SupportContact  *types.ID  `json:"support_contact,omitempty"`
	Search          string     `json:"search,omitempty"`
	EventDateBefore *time.Time `json:"event_date_before,omitempty"`
	EventDateAfter  *time.Time `json:"event_date_after,omitempty"`
	Limit           int        `json:"limit,omitempty"`
	Offset          int        `json:"offset,omitempty"`
}

// StatusInfo is one entry of the status enumeration endpoint
type StatusInfo struct {
	Status Status `json:"status"`
	Label  string `json:"label"`
}
