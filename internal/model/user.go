package model

import (
	"time"

	"gorm.io/gorm"
)

// Role is the closed set of user roles. It is the single source of truth
// for capabilities; no derived flag is persisted next to it.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleBusinessOwner Role = "business_owner"
	RoleBranchManager Role = "branch_manager"
	RoleStaff         Role = "staff"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleBusinessOwner, RoleBranchManager, RoleStaff:
		return true
	}
	return false
}

// CountsAsStaff reports whether users with this role consume the tenant's
// staff allowance.
func (r Role) CountsAsStaff() bool {
	return r == RoleStaff || r == RoleBranchManager
}

// User represents an account. Tenant and branch are nil for system admins.
type User struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Username      string         `json:"username" gorm:"type:varchar(150);not null;uniqueIndex"`
	Email         string         `json:"email" gorm:"type:varchar(100)"`
	Password      string         `json:"-" gorm:"type:varchar(255);not null"`
	Role          Role           `json:"role" gorm:"type:varchar(20);not null;default:'staff'"`
	IsSuperuser   bool           `json:"is_superuser" gorm:"not null;default:false"`
	TenantID      *uint          `json:"tenant_id,omitempty" gorm:"index"`
	BranchID      *uint          `json:"branch_id,omitempty" gorm:"index"`
	IsActiveStaff bool           `json:"is_active_staff" gorm:"not null;default:true"`
	PhoneNumber   *string        `json:"phone_number,omitempty" gorm:"type:varchar(10)"`
	LastLoginAt   *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

func (u *User) EntityKind() Kind    { return KindUser }
func (u *User) EntityID() uint      { return u.ID }
func (u *User) OwningTenant() *uint { return u.TenantID }
func (u *User) BranchRef() *uint    { return u.BranchID }
