package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus summarises how much of the rent has been collected
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
)

// CommissionStatus summarises how much of the commission has been received
type CommissionStatus string

const (
	CommissionNone    CommissionStatus = "none"
	CommissionPaid    CommissionStatus = "paid"
	CommissionPending CommissionStatus = "pending"
	CommissionPartial CommissionStatus = "partial"
)

// Bill is a trip invoice. PendingAmount, CommissionCharge (when derived from
// the percentage) and CommissionPending are recomputed on every write.
// BillNumber is assigned once, on creation, and never changes.
type Bill struct {
	ID                     uint            `json:"id" gorm:"primaryKey"`
	TenantID               uint            `json:"tenant_id" gorm:"not null;index:idx_bills_tenant_date"`
	BranchID               *uint           `json:"branch_id,omitempty" gorm:"index"`
	BillNumber             string          `json:"bill_number" gorm:"type:varchar(30);not null;uniqueIndex"`
	VehicleID              uint            `json:"vehicle_id" gorm:"not null;index"`
	PartyID                *uint           `json:"party_id,omitempty" gorm:"index"`
	DriverID               *uint           `json:"driver_id,omitempty" gorm:"index"`
	ReferenceID            *uint           `json:"reference_id,omitempty" gorm:"index"`
	FromLocation           string          `json:"from_location" gorm:"type:varchar(255);not null"`
	ToLocation             string          `json:"to_location" gorm:"type:varchar(255);not null"`
	MaterialType           string          `json:"material_type" gorm:"type:varchar(255)"`
	RentAmount             decimal.Decimal `json:"rent_amount" gorm:"type:decimal(12,0);not null"`
	AdvanceAmount          decimal.Decimal `json:"advance_amount" gorm:"type:decimal(12,0);not null"`
	PendingAmount          decimal.Decimal `json:"pending_amount" gorm:"type:decimal(12,0);not null"`
	Commission             decimal.Decimal `json:"commission" gorm:"type:decimal(5,2);not null"`
	CommissionCharge       decimal.Decimal `json:"commission_charge" gorm:"type:decimal(12,0);not null"`
	CommissionReceived     decimal.Decimal `json:"commission_received" gorm:"type:decimal(12,0);not null"`
	CommissionPending      decimal.Decimal `json:"commission_pending" gorm:"type:decimal(12,0);not null"`
	Notes                  string          `json:"notes" gorm:"type:text"`
	BillDate               time.Time       `json:"bill_date" gorm:"type:date;not null;index:idx_bills_tenant_date"`
	CommissionReceivedDate *time.Time      `json:"commission_received_date,omitempty" gorm:"type:date"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
	DeletedAt              gorm.DeletedAt  `json:"-" gorm:"index"`
}

func (b *Bill) EntityKind() Kind     { return KindBill }
func (b *Bill) EntityID() uint       { return b.ID }
func (b *Bill) OwningTenant() *uint  { return ptr(b.TenantID) }
func (b *Bill) AssignTenant(id uint) { b.TenantID = id }
func (b *Bill) BranchRef() *uint     { return b.BranchID }

// UnmarshalJSON accepts bill_date and commission_received_date as plain
// dates (YYYY-MM-DD) or RFC 3339 timestamps.
func (b *Bill) UnmarshalJSON(data []byte) error {
	type Alias Bill
	aux := struct {
		*Alias
		BillDate               json.RawMessage `json:"bill_date"`
		CommissionReceivedDate json.RawMessage `json:"commission_received_date"`
	}{Alias: (*Alias)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if err := decodeDate(aux.BillDate, &b.BillDate); err != nil {
		return err
	}
	return decodeOptionalDate(aux.CommissionReceivedDate, &b.CommissionReceivedDate)
}

// PaymentStatus is derived from the stored amounts
func (b *Bill) PaymentStatus() PaymentStatus {
	switch {
	case b.PendingAmount.IsZero():
		return PaymentPaid
	case b.AdvanceAmount.IsZero():
		return PaymentPending
	default:
		return PaymentPartial
	}
}

// CommissionStatus is derived from the stored commission amounts
func (b *Bill) CommissionStatus() CommissionStatus {
	switch {
	case b.CommissionCharge.IsZero():
		return CommissionNone
	case b.CommissionPending.IsZero():
		return CommissionPaid
	case b.CommissionReceived.IsZero():
		return CommissionPending
	default:
		return CommissionPartial
	}
}
