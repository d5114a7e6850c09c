package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditAction names the kind of write recorded in an AuditLog
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
	AuditBulk   AuditAction = "bulk"
)

// AuditLog records one write. It is inserted in the same transaction as the
// write it describes.
type AuditLog struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	TenantID  *uint          `json:"tenant_id,omitempty" gorm:"index"`
	UserID    uint           `json:"user_id" gorm:"index;not null"`
	Action    AuditAction    `json:"action" gorm:"type:varchar(20);not null"`
	Entity    Kind           `json:"entity" gorm:"type:varchar(30);not null;index"`
	ObjectID  uint           `json:"object_id" gorm:"not null"`
	Changes   datatypes.JSON `json:"changes,omitempty"`
	IPAddress string         `json:"ip_address,omitempty" gorm:"type:varchar(45)"`
	UserAgent string         `json:"user_agent,omitempty" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
}

func (a *AuditLog) EntityKind() Kind    { return KindAuditLog }
func (a *AuditLog) EntityID() uint      { return a.ID }
func (a *AuditLog) OwningTenant() *uint { return a.TenantID }

// TenantSequence is the per-tenant counter behind bill and trip numbers
type TenantSequence struct {
	ID        uint      `gorm:"primaryKey"`
	TenantID  uint      `gorm:"not null;uniqueIndex:idx_tenant_sequences_tenant_kind"`
	Kind      Kind      `gorm:"type:varchar(30);not null;uniqueIndex:idx_tenant_sequences_tenant_kind"`
	LastValue int64     `gorm:"not null;default:0"`
	Seeded    bool      `gorm:"not null;default:false"`
	UpdatedAt time.Time
}
