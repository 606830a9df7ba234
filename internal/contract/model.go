package contract

import (
	"time"

	"github.com/epic-events/crm/internal/shared/types"
)

// Status defines the lifecycle status of a contract
type Status string

const (
	StatusUnsigned Status = "unsigned"
	StatusSigned   Status = "signed"
	StatusPayed    Status = "payed"
)

// Statuses lists the fixed status values, create default first.
func Statuses() []Status {
	return []Status{StatusUnsigned, StatusSigned, StatusPayed}
}

// Valid reports whether the status is one of the fixed values
func (s Status) Valid() bool {
	switch s {
	case StatusUnsigned, StatusSigned, StatusPayed:
		return true
	}
	return false
}

// Label returns the display name for the status
func (s Status) Label() string {
	switch s {
	case StatusUnsigned:
		return "Not Signed"
	case StatusSigned:
		return "Signed"
	case StatusPayed:
		return "Payed"
	}
	return string(s)
}

// Contract represents an agreement with a client. SalesContact is
// derived from the owning client, never stored on the contract itself.
type Contract struct {
	ID       types.ID `json:"id"`
	ClientID types.ID `json:"client"`
	Status   Status   `json:"status"`
	Amount   float64  `json:"amount"`

	PaymentDue *time.Time `json:"payment_due"`

	SalesContact types.ID `json:"sales_contact"`

	DateCreated time.Time  `json:"date_created"`
	DateUpdated *time.Time `json:"date_updated"`
}

// CreateRequest is the request to create a contract
type CreateRequest struct {
	ClientID   types.ID   `json:"client"`
	Status     *Status    `json:"status"`
	Amount     float64    `json:"amount"`
	PaymentDue *time.Time `json:"payment_due"`
}

// UpdateRequest is the request to update a contract. The owning client
// is fixed at creation.
type UpdateRequest struct {
	Status     *Status    `json:"status,omitempty"`
	Amount     *float64   `json:"amount,omitempty"`
	PaymentDue *time.Time `json:"payment_due,omitempty"`
}

// ListFilter defines filters for listing contracts. Search matches the
// owning client's company and contact fields.
type ListFilter struct {
	Status           *Status    `json:"status,omitempty"`
	ClientID         *types.ID  `json:"client,omitempty"`
	Search           string     `json:"search,omitempty"`
	AmountMin        *float64   `json:"amount_min,omitempty"`
	AmountMax        *float64   `json:"amount_max,omitempty"`
	PaymentDueBefore *time.Time `json:"payment_due_before,omitempty"`
	PaymentDueAfter  *time.Time `json:"payment_due_after,omitempty"`
	Limit            int        `json:"limit,omitempty"`
	Offset           int        `json:"offset,omitempty"`
}

// EventSummary is the event embedded in a contract detail response.
type EventSummary struct {
	ID             types.ID   `json:"id"`
	Status         string     `json:"status"`
	SupportContact *types.ID  `json:"support_contact"`
	EventDate      *time.Time `json:"event_date"`
}

// Detail is the detail response: the contract plus its event, when one
// exists.
type Detail struct {
	Contract
	Event *EventSummary `json:"event"`
}

// StatusInfo is one entry of the status enumeration endpoint
type StatusInfo struct {
	Status Status `json:"status"`
	Label  string `json:"label"`
}
