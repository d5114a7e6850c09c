// Package repository restricts every query to the records an identity may
// see. Scoping fails closed: an identity without a recognised role and tenant
// sees nothing.
package repository

import (
	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/identity"
	"github.com/suteetoe/fleetbill/internal/model"
	"gorm.io/gorm"
)

// Scope returns the gorm scope limiting kind to what id may see
func Scope(id identity.Identity, kind model.Kind) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if id.IsSystemAdmin() {
			return db
		}
		if !id.IsTenantMember() {
			return db.Where("1 = 0")
		}

		tenant := id.Tenant()
		switch kind {
		case model.KindTenant:
			return db.Where("id = ?", tenant)
		case model.KindUser:
			if id.IsTenantOwner() {
				return db.Where("tenant_id = ?", tenant)
			}
			return db.Where("id = ?", id.UserID)
		case model.KindAuditLog:
			if !id.IsTenantOwner() {
				return db.Where("1 = 0")
			}
		}
		return db.Where("tenant_id = ?", tenant)
	}
}

// TenantScope limits a query to one tenant regardless of identity.
func TenantScope(tenantID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// ResolveTenantForWrite picks the tenant a new record is written under.
// An explicit tenant wins; otherwise the identity's tenant is used. Only
// system admins may name a tenant other than their own.
func ResolveTenantForWrite(id identity.Identity, explicit *uint) (uint, error) {
	if explicit != nil && *explicit != 0 {
		if !id.IsSystemAdmin() && *explicit != id.Tenant() {
			return 0, apperr.ErrPermission
		}
		return *explicit, nil
	}
	if id.HasTenant() {
		return id.Tenant(), nil
	}
	return 0, apperr.TenantRequired(TenantField)
}

// TenantField is the field name tenant resolution errors are reported under
const TenantField = "tenant"
