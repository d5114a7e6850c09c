package access

import (
	"github.com/suteetoe/fleetbill/internal/identity"
	"github.com/suteetoe/fleetbill/internal/model"
)

// TenantField is the JSON name of the tenant reference on every entity
const TenantField = "tenant_id"

// Fields lists the fields a form must hide on create and lock on edit
type Fields struct {
	Hidden   []string `json:"hidden"`
	ReadOnly []string `json:"read_only"`
}

// IsHidden reports whether name is hidden on create
func (f Fields) IsHidden(name string) bool { return contains(f.Hidden, name) }

// IsReadOnly reports whether name is locked on edit
func (f Fields) IsReadOnly(name string) bool { return contains(f.ReadOnly, name) }

// tenantLimitFields are managed by system admins only
var tenantLimitFields = []string{"label", "status", "max_staff_users", "max_vehicles", "max_branches"}

// FieldVisibility returns the fields id may not set for kind. Services
// enforce the same rules, so a client that ignores this answer still cannot
// retarget an entity.
func (g *Gate) FieldVisibility(id identity.Identity, kind model.Kind) Fields {
	if id.IsSystemAdmin() {
		f := Fields{Hidden: []string{}, ReadOnly: []string{}}
		if n := numberField(kind); n != "" {
			f.Hidden = []string{n}
			f.ReadOnly = []string{n}
		}
		// only superusers grant superuser status
		if kind == model.KindUser && !id.Superuser {
			f.Hidden = []string{"is_superuser"}
			f.ReadOnly = []string{"is_superuser"}
		}
		return f
	}

	var f Fields
	switch kind {
	case model.KindTenant:
		f.Hidden = []string{}
		f.ReadOnly = append([]string{}, tenantLimitFields...)
	case model.KindUser:
		f.Hidden = []string{TenantField, "is_superuser"}
		f.ReadOnly = []string{TenantField, "is_superuser"}
		if !id.IsTenantOwner() {
			f.ReadOnly = append(f.ReadOnly, "role", "branch_id", "is_active_staff")
		}
	default:
		f.Hidden = []string{TenantField}
		f.ReadOnly = []string{TenantField}
		if n := numberField(kind); n != "" {
			f.Hidden = append(f.Hidden, n)
			f.ReadOnly = append(f.ReadOnly, n)
		}
	}
	return f
}

// numberField is the generated, immutable document number of kind
func numberField(kind model.Kind) string {
	switch kind {
	case model.KindBill:
		return "bill_number"
	case model.KindTrip:
		return "trip_number"
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
