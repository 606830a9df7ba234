package access

import (
	"github.com/epic-events/crm/internal/account"
	"github.com/epic-events/crm/internal/shared/auth"
	"github.com/epic-events/crm/internal/shared/types"
)

// Role gates. These answer "may this role attempt the operation at all",
// before any record is looked at. Reads are never role-gated; the
// visible set is the only read filter.

// CanWriteClients reports whether the principal's role may create or
// update clients.
func CanWriteClients(p *auth.Principal) bool {
	switch p.Role {
	case account.RoleSales:
		return true
	case account.RoleSupport:
		return false
	case account.RoleManagement:
		return true
	}
	return false
}

// CanCreateContracts reports whether the principal's role may create
// contracts. Ownership of the target client is checked separately.
func CanCreateContracts(p *auth.Principal) bool {
	switch p.Role {
	case account.RoleSales:
		return true
	case account.RoleSupport:
		return false
	case account.RoleManagement:
		return true
	}
	return false
}

// CanUpdateContracts reports whether the principal's role may update
// contracts.
func CanUpdateContracts(p *auth.Principal) bool {
	switch p.Role {
	case account.RoleSales:
		return true
	case account.RoleSupport:
		return false
	case account.RoleManagement:
		return true
	}
	return false
}

// CanCreateEvents reports whether the principal's role may create
// events. Only the sales side opens events; support takes over after.
func CanCreateEvents(p *auth.Principal) bool {
	switch p.Role {
	case account.RoleSales:
		return true
	case account.RoleSupport:
		return false
	case account.RoleManagement:
		return true
	}
	return false
}

// CanUpdateEvents reports whether the principal's role may update
// events. Any support member may update any event; assignment via
// support_contact is not enforced on update.
func CanUpdateEvents(p *auth.Principal) bool {
	switch p.Role {
	case account.RoleSales:
		return false
	case account.RoleSupport:
		return true
	case account.RoleManagement:
		return true
	}
	return false
}

// Ownership gates. These answer "is this principal the sales owner of
// the record's client chain". Evaluated by the handler against the
// resolved related entity, after the role gate has passed.

// OwnsAsSales reports whether the principal is the given sales contact.
// Management overrides ownership.
func OwnsAsSales(p *auth.Principal, salesContact types.ID) bool {
	if p.IsManagement() {
		return true
	}
	return p.ID == salesContact
}
