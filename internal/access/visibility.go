// Package access implements the record-level access rules: which records
// a principal may list or retrieve, and which operations it may perform.
// Visibility and authorization are separate gates composed by the entity
// handlers; both are pure functions of the principal and the ownership
// chain of the record.
package access

import (
	"github.com/epic-events/crm/internal/account"
	"github.com/epic-events/crm/internal/shared/auth"
	"github.com/epic-events/crm/internal/shared/types"
)

// ScopeKind enumerates the shapes a visible set can take.
type ScopeKind int

const (
	// ScopeNone matches no records.
	ScopeNone ScopeKind = iota
	// ScopeAll matches every record.
	ScopeAll
	// ScopeOwnedBySales matches records whose client chain is owned by
	// the sales contact in Scope.ContactID.
	ScopeOwnedBySales
	// ScopeWithEvent matches records that have at least one descendant
	// event, regardless of which support contact is assigned.
	ScopeWithEvent
)

// Scope describes a visible set. Repositories translate it into a SQL
// filter; the predicates below apply it to a loaded record.
type Scope struct {
	Kind      ScopeKind
	ContactID types.ID
}

// ClientScope returns the set of clients the principal may list or
// retrieve. Sales sees all clients; support sees clients with at least
// one event somewhere under them; management bypasses filtering.
func ClientScope(p *auth.Principal) Scope {
	switch p.Role {
	case account.RoleSales:
		return Scope{Kind: ScopeAll}
	case account.RoleSupport:
		return Scope{Kind: ScopeWithEvent}
	case account.RoleManagement:
		return Scope{Kind: ScopeAll}
	}
	return Scope{Kind: ScopeNone}
}

// ContractScope returns the set of contracts the principal may list or
// retrieve. The rules mirror ClientScope: a contract is reachable for
// support only through its event.
func ContractScope(p *auth.Principal) Scope {
	switch p.Role {
	case account.RoleSales:
		return Scope{Kind: ScopeAll}
	case account.RoleSupport:
		return Scope{Kind: ScopeWithEvent}
	case account.RoleManagement:
		return Scope{Kind: ScopeAll}
	}
	return Scope{Kind: ScopeNone}
}

// EventScope returns the set of events the principal may list or
// retrieve. Support sees every event; sales only events whose client
// chain it owns; management bypasses filtering.
func EventScope(p *auth.Principal) Scope {
	switch p.Role {
	case account.RoleSales:
		return Scope{Kind: ScopeOwnedBySales, ContactID: p.ID}
	case account.RoleSupport:
		return Scope{Kind: ScopeAll}
	case account.RoleManagement:
		return Scope{Kind: ScopeAll}
	}
	return Scope{Kind: ScopeNone}
}

// Chain is the resolved ownership chain of a record: the sales contact
// at the top (client.sales_contact) and whether a descendant event
// exists at the bottom.
type Chain struct {
	SalesContact types.ID
	HasEvent     bool
}

// Matches applies the scope to a record's ownership chain.
func (s Scope) Matches(c Chain) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeOwnedBySales:
		return c.SalesContact == s.ContactID
	case ScopeWithEvent:
		return c.HasEvent
	}
	return false
}

// ClientVisibleTo reports whether a client with the given chain is in
// the principal's visible set.
func ClientVisibleTo(p *auth.Principal, c Chain) bool {
	return ClientScope(p).Matches(c)
}

// ContractVisibleTo reports whether a contract with the given chain is
// in the principal's visible set.
func ContractVisibleTo(p *auth.Principal, c Chain) bool {
	return ContractScope(p).Matches(c)
}

// EventVisibleTo reports whether an event with the given chain is in
// the principal's visible set. An event always has itself as descendant.
func EventVisibleTo(p *auth.Principal, c Chain) bool {
	c.HasEvent = true
	return EventScope(p).Matches(c)
}
