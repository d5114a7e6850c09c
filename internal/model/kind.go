package model

// Kind names an entity type for access checks, scoping, audit rows and metrics.
type Kind string

const (
	KindTenant       Kind = "tenant"
	KindBranch       Kind = "branch"
	KindUser         Kind = "user"
	KindVehicleOwner Kind = "vehicle_owner"
	KindVehicle      Kind = "vehicle"
	KindParty        Kind = "party"
	KindDriver       Kind = "driver"
	KindBill         Kind = "bill"
	KindTrip         Kind = "trip"
	KindExpense      Kind = "expense"
	KindAuditLog     Kind = "audit_log"
)

// Entity is implemented by every persisted record that belongs to a tenant.
// OwningTenant is nil only for users without a tenant (system admins).
type Entity interface {
	EntityKind() Kind
	EntityID() uint
	OwningTenant() *uint
}

// TenantOwned is implemented by entities that always belong to exactly one
// tenant. The tenant is assigned once, on creation.
type TenantOwned interface {
	Entity
	AssignTenant(id uint)
}

// BranchScoped is implemented by entities that may be pinned to a branch.
type BranchScoped interface {
	BranchRef() *uint
}

// Kinds lists every kind exposed through the API.
func Kinds() []Kind {
	return []Kind{
		KindTenant, KindBranch, KindUser, KindVehicleOwner, KindVehicle,
		KindParty, KindDriver, KindBill, KindTrip, KindExpense, KindAuditLog,
	}
}

// ParseKind returns the kind named by s.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// All returns every model for migrations.
func All() []interface{} {
	return []interface{}{
		&Business{},
		&BusinessSettings{},
		&Branch{},
		&User{},
		&VehicleOwner{},
		&Vehicle{},
		&Party{},
		&Driver{},
		&Bill{},
		&Trip{},
		&Expense{},
		&AuditLog{},
		&TenantSequence{},
	}
}

func ptr(v uint) *uint { return &v }
