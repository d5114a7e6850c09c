// Package access answers capability questions for an acting identity.
//
// Every answer is a pure function of the identity and, where given, the
// target entity. Nothing is cached and nothing is read from the store.
package access

import (
	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/identity"
	"github.com/suteetoe/fleetbill/internal/model"
)

// Gate is the access-control surface used by handlers and services
type Gate struct{}

// NewGate returns a Gate
func NewGate() *Gate { return &Gate{} }

// CanList reports whether id may list entities of kind. A true answer does
// not widen what is returned: listings are always scoped.
func (g *Gate) CanList(id identity.Identity, kind model.Kind) bool {
	if id.IsSystemAdmin() {
		return true
	}
	if !id.IsTenantMember() {
		return false
	}
	if kind == model.KindAuditLog {
		return id.IsTenantOwner()
	}
	return true
}

// CanCreate reports whether id may create an entity of kind
func (g *Gate) CanCreate(id identity.Identity, kind model.Kind) bool {
	if id.IsSystemAdmin() {
		return true
	}
	if !id.IsTenantMember() {
		return false
	}
	switch kind {
	case model.KindTenant, model.KindAuditLog:
		return false
	case model.KindUser, model.KindBranch:
		return id.IsTenantOwner()
	}
	return true
}

// CanView reports whether id may read e
func (g *Gate) CanView(id identity.Identity, e model.Entity) bool {
	if e == nil {
		return false
	}
	if id.IsSystemAdmin() {
		return true
	}
	if !id.IsTenantMember() {
		return false
	}
	switch e.EntityKind() {
	case model.KindUser:
		return isSelf(id, e) || (id.IsTenantOwner() && id.BelongsTo(e.OwningTenant()))
	case model.KindAuditLog:
		return id.IsTenantOwner() && id.BelongsTo(e.OwningTenant())
	}
	return id.BelongsTo(e.OwningTenant())
}

// CanModify reports whether id may update e
func (g *Gate) CanModify(id identity.Identity, e model.Entity) bool {
	if e == nil {
		return false
	}
	if id.IsSystemAdmin() {
		return true
	}
	if !id.IsTenantMember() {
		return false
	}
	switch e.EntityKind() {
	case model.KindUser:
		if isSelf(id, e) {
			return true
		}
		return id.IsTenantOwner() && id.BelongsTo(e.OwningTenant()) && !isSuperuser(e)
	case model.KindBranch:
		return id.IsTenantOwner() && id.BelongsTo(e.OwningTenant())
	case model.KindAuditLog:
		return false
	}
	return id.BelongsTo(e.OwningTenant())
}

// CanDelete reports whether id may delete e. Tenants are deleted by system
// admins only; superusers are deleted by superusers only.
func (g *Gate) CanDelete(id identity.Identity, e model.Entity) bool {
	if e == nil {
		return false
	}
	if e.EntityKind() == model.KindUser && isSuperuser(e) {
		return id.IsAuthenticated() && id.Superuser && !isSelf(id, e)
	}
	if id.IsSystemAdmin() {
		return !(e.EntityKind() == model.KindUser && isSelf(id, e))
	}
	if !id.IsTenantMember() {
		return false
	}
	switch e.EntityKind() {
	case model.KindTenant, model.KindAuditLog:
		return false
	case model.KindUser:
		return id.IsTenantOwner() && id.BelongsTo(e.OwningTenant()) && !isSelf(id, e)
	case model.KindBranch:
		return id.IsTenantOwner() && id.BelongsTo(e.OwningTenant())
	}
	return id.BelongsTo(e.OwningTenant())
}

func isSelf(id identity.Identity, e model.Entity) bool {
	return e.EntityKind() == model.KindUser && id.IsAuthenticated() && e.EntityID() == id.UserID
}

func isSuperuser(e model.Entity) bool {
	u, ok := e.(*model.User)
	return ok && u.IsSuperuser
}

// AuthorizeList returns apperr.ErrPermission when CanList is false
func (g *Gate) AuthorizeList(id identity.Identity, kind model.Kind) error {
	return deny(g.CanList(id, kind))
}

// AuthorizeCreate returns apperr.ErrPermission when CanCreate is false
func (g *Gate) AuthorizeCreate(id identity.Identity, kind model.Kind) error {
	return deny(g.CanCreate(id, kind))
}

// AuthorizeView returns apperr.ErrPermission when CanView is false
func (g *Gate) AuthorizeView(id identity.Identity, e model.Entity) error {
	return deny(g.CanView(id, e))
}

// AuthorizeModify returns apperr.ErrPermission when CanModify is false
func (g *Gate) AuthorizeModify(id identity.Identity, e model.Entity) error {
	return deny(g.CanModify(id, e))
}

// AuthorizeDelete returns apperr.ErrPermission when CanDelete is false
func (g *Gate) AuthorizeDelete(id identity.Identity, e model.Entity) error {
	return deny(g.CanDelete(id, e))
}

func deny(allowed bool) error {
	if allowed {
		return nil
	}
	return apperr.ErrPermission
}
