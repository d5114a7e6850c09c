// Package identity describes the acting user of a request.
//
// An Identity is built from a stored user and passed explicitly to every
// scoping, access and write operation. Capabilities are derived from the role
// and the superuser flag on each call, so they can never disagree with the
// role.
package identity

import (
	"github.com/suteetoe/fleetbill/internal/model"
)

// Identity is the acting user. The zero value is anonymous and has no
// capabilities.
type Identity struct {
	UserID    uint
	Username  string
	Role      model.Role
	Superuser bool
	TenantID  *uint
	BranchID  *uint
}

// FromUser builds the identity of a stored user
func FromUser(u *model.User) Identity {
	if u == nil {
		return Identity{}
	}
	return Identity{
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		Superuser: u.IsSuperuser,
		TenantID:  copyID(u.TenantID),
		BranchID:  copyID(u.BranchID),
	}
}

// Anonymous is an identity without any capability
func Anonymous() Identity { return Identity{} }

// IsAuthenticated reports whether the identity belongs to a stored user
func (i Identity) IsAuthenticated() bool { return i.UserID != 0 }

// IsSystemAdmin is true for superusers and the admin role
func (i Identity) IsSystemAdmin() bool {
	return i.IsAuthenticated() && (i.Superuser || i.Role == model.RoleAdmin)
}

// IsTenantOwner is true for business owners that are not superusers
func (i Identity) IsTenantOwner() bool {
	return i.IsAuthenticated() && i.Role == model.RoleBusinessOwner && !i.Superuser
}

// IsStaffMember is true for staff and branch managers that are not superusers
func (i Identity) IsStaffMember() bool {
	return i.IsAuthenticated() && i.Role.CountsAsStaff() && !i.Superuser
}

// IsBranchManager is true for branch managers that are not superusers
func (i Identity) IsBranchManager() bool {
	return i.IsAuthenticated() && i.Role == model.RoleBranchManager && !i.Superuser
}

// HasTenant reports whether the identity is bound to a tenant
func (i Identity) HasTenant() bool { return i.TenantID != nil && *i.TenantID != 0 }

// Tenant returns the bound tenant, or 0
func (i Identity) Tenant() uint {
	if !i.HasTenant() {
		return 0
	}
	return *i.TenantID
}

// IsTenantMember is true for owners and staff bound to a tenant: the
// identities whose data access is limited to that tenant.
func (i Identity) IsTenantMember() bool {
	return (i.IsTenantOwner() || i.IsStaffMember()) && i.HasTenant()
}

// BelongsTo reports whether the identity is a member of tenant.
func (i Identity) BelongsTo(tenant *uint) bool {
	return i.IsTenantMember() && tenant != nil && *tenant == i.Tenant()
}

func copyID(id *uint) *uint {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
