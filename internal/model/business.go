package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BusinessStatus is the lifecycle state of a tenant
type BusinessStatus string

const (
	BusinessActive    BusinessStatus = "active"
	BusinessSuspended BusinessStatus = "suspended"
	BusinessInactive  BusinessStatus = "inactive"
)

// Valid reports whether s is a known status
func (s BusinessStatus) Valid() bool {
	switch s {
	case BusinessActive, BusinessSuspended, BusinessInactive:
		return true
	}
	return false
}

const (
	DefaultMaxStaffUsers = 5
	DefaultMaxVehicles   = 10
	DefaultMaxBranches   = 3
)

// Business is the tenant: every operational record belongs to exactly one.
// Counters such as total staff or total bills are never stored here, see
// repository.Stats.
type Business struct {
	ID                    uint           `json:"id" gorm:"primaryKey"`
	Name                  string         `json:"name" gorm:"type:varchar(100);not null"`
	Label                 string         `json:"label" gorm:"type:varchar(15);not null;uniqueIndex:idx_businesses_label,where:deleted_at IS NULL"`
	Code                  string         `json:"code" gorm:"type:varchar(10);not null;uniqueIndex"`
	MobileNumber          string         `json:"mobile_number" gorm:"type:varchar(10)"`
	AlternateMobileNumber *string        `json:"alternate_mobile_number,omitempty" gorm:"type:varchar(10)"`
	Address               string         `json:"address" gorm:"type:text"`
	Email                 *string        `json:"email,omitempty" gorm:"type:varchar(100);uniqueIndex:idx_businesses_email,where:deleted_at IS NULL"`
	BusinessNumber        string         `json:"business_number" gorm:"type:varchar(50)"`
	Status                BusinessStatus `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	MaxStaffUsers         int            `json:"max_staff_users" gorm:"not null;default:5"`
	MaxVehicles           int            `json:"max_vehicles" gorm:"not null;default:10"`
	MaxBranches           int            `json:"max_branches" gorm:"not null;default:3"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `json:"-" gorm:"index"`
}

func (b *Business) EntityKind() Kind    { return KindTenant }
func (b *Business) EntityID() uint      { return b.ID }
func (b *Business) OwningTenant() *uint { return ptr(b.ID) }

// IsActive reports whether the tenant is in the active state
func (b *Business) IsActive() bool { return b.Status == BusinessActive }

// BusinessSettings holds per-tenant defaults. One row is created together
// with each Business.
type BusinessSettings struct {
	ID                    uint            `json:"id" gorm:"primaryKey"`
	TenantID              uint            `json:"tenant_id" gorm:"not null;uniqueIndex"`
	Currency              string          `json:"currency" gorm:"type:varchar(10);not null;default:'INR'"`
	DefaultCommissionRate decimal.Decimal `json:"default_commission_rate" gorm:"type:decimal(5,2);not null"`
	BillDueDays           int             `json:"bill_due_days" gorm:"not null;default:30"`
	BillTermsConditions   string          `json:"bill_terms_conditions" gorm:"type:text"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// DefaultSettings returns the settings a new tenant starts with
func DefaultSettings(tenantID uint) BusinessSettings {
	return BusinessSettings{
		TenantID:              tenantID,
		Currency:              "INR",
		DefaultCommissionRate: decimal.NewFromInt(5),
		BillDueDays:           30,
	}
}
