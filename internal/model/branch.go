package model

import (
	"time"

	"gorm.io/gorm"
)

// Branch is an optional subdivision of a tenant
type Branch struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	TenantID     uint           `json:"tenant_id" gorm:"index;not null"`
	Name         string         `json:"name" gorm:"type:varchar(100);not null"`
	Code         string         `json:"code" gorm:"type:varchar(10);not null;uniqueIndex"`
	MobileNumber string         `json:"mobile_number" gorm:"type:varchar(10)"`
	Address      string         `json:"address" gorm:"type:text"`
	IsActive     bool           `json:"is_active" gorm:"not null;default:true"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

func (b *Branch) EntityKind() Kind     { return KindBranch }
func (b *Branch) EntityID() uint       { return b.ID }
func (b *Branch) OwningTenant() *uint  { return ptr(b.TenantID) }
func (b *Branch) AssignTenant(id uint) { b.TenantID = id }
