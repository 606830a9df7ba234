package client

import (
	"time"

	"github.com/epic-events/crm/internal/shared/types"
)

// Status defines the lifecycle status of a client
type Status string

const (
	StatusProspect Status = "prospect"
	StatusExisting Status = "existing"
)

// Statuses lists the fixed status values, create default first.
func Statuses() []Status {
	return []Status{StatusProspect, StatusExisting}
}

// Valid reports whether the status is one of the fixed values
func (s Status) Valid() bool {
	switch s {
	case StatusProspect, StatusExisting:
		return true
	}
	return false
}

// Label returns the display name for the status
func (s Status) Label() string {
	switch s {
	case StatusProspect:
		return "Prospective Client"
	case StatusExisting:
		return "Existing Client"
	}
	return string(s)
}

// Client represents a company in the portfolio. SalesContact is never
// zero: ownership is assigned on create and only reassigned, never
// cleared.
type Client struct {
	ID          types.ID `json:"id"`
	CompanyName string   `json:"company_name"`
	Status      Status   `json:"status"`
	SalesContact types.ID `json:"sales_contact"`

	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Email     string            `json:"email"`
	Contact   types.ContactInfo `json:"contact"`

	DateCreated time.Time  `json:"date_created"`
	DateUpdated *time.Time `json:"date_updated"`
}

// CreateRequest is the request to create a client. The sales contact is
// not part of the payload: it is always the creating principal.
type CreateRequest struct {
	CompanyName  string  `json:"company_name"`
	Status       *Status `json:"status"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Email        string  `json:"email"`
	PhoneNumber  string  `json:"phone_number"`
	MobileNumber string  `json:"mobile_number"`
}

// UpdateRequest is the request to update a client. SalesContact may be
// reassigned to another user but never cleared.
type UpdateRequest struct {
	CompanyName  *string   `json:"company_name,omitempty"`
	Status       *Status   `json:"status,omitempty"`
	SalesContact *types.ID `json:"sales_contact,omitempty"`
	FirstName    *string   `json:"first_name,omitempty"`
	LastName     *string   `json:"last_name,omitempty"`
	Email        *string   `json:"email,omitempty"`
	PhoneNumber  *string   `json:"phone_number,omitempty"`
	MobileNumber *string   `json:"mobile_number,omitempty"`
}

// ListFilter defines filters for listing clients
type ListFilter struct {
	Status *Status `json:"status,omitempty"`
	Search string  `json:"search,omitempty"`
	Limit  int     `json:"limit,omitempty"`
	Offset int     `json:"offset,omitempty"`
}

// ContractSummary is the per-contract line embedded in a client detail
// response, with the event when one exists.
type ContractSummary struct {
	ContractID     types.ID   `json:"contract_id"`
	ContractStatus string     `json:"contract_status"`
	ContractAmount float64    `json:"contract_amount"`
	EventID        *types.ID  `json:"event_id,omitempty"`
	EventStatus    *string    `json:"event_status,omitempty"`
	EventDate      *time.Time `json:"event_date,omitempty"`
}

// Detail is the detail response: the client plus its contracts and
// their events.
type Detail struct {
	Client
	ContractsAndEvents []ContractSummary `json:"contracts_and_events"`
}

// StatusInfo is one entry of the status enumeration endpoint
type StatusInfo struct {
	Status Status `json:"status"`
	Label  string `json:"label"`
}
