package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TripStatus is the progress of a trip
type TripStatus string

const (
	TripScheduled  TripStatus = "scheduled"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripCancelled  TripStatus = "cancelled"
)

func (s TripStatus) Valid() bool {
	switch s {
	case TripScheduled, TripInProgress, TripCompleted, TripCancelled:
		return true
	}
	return false
}

// Trip is one vehicle movement, optionally attached to a bill
type Trip struct {
	ID            uint                `json:"id" gorm:"primaryKey"`
	TenantID      uint                `json:"tenant_id" gorm:"not null;index:idx_trips_tenant_start"`
	BranchID      *uint               `json:"branch_id,omitempty" gorm:"index"`
	VehicleID     uint                `json:"vehicle_id" gorm:"not null;index"`
	DriverID      *uint               `json:"driver_id,omitempty" gorm:"index"`
	BillID        *uint               `json:"bill_id,omitempty" gorm:"index"`
	TripNumber    string              `json:"trip_number" gorm:"type:varchar(40);not null;uniqueIndex"`
	StartLocation string              `json:"start_location" gorm:"type:varchar(255);not null"`
	EndLocation   string              `json:"end_location" gorm:"type:varchar(255);not null"`
	StartDate     time.Time           `json:"start_date" gorm:"not null;index:idx_trips_tenant_start"`
	EndDate       *time.Time          `json:"end_date,omitempty"`
	DistanceKm    decimal.NullDecimal `json:"distance_km" gorm:"type:decimal(8,2)"`
	FuelConsumed  decimal.NullDecimal `json:"fuel_consumed" gorm:"type:decimal(8,2)"`
	Status        TripStatus          `json:"status" gorm:"type:varchar(20);not null;default:'scheduled'"`
	Notes         string              `json:"notes" gorm:"type:text"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	DeletedAt     gorm.DeletedAt      `json:"-" gorm:"index"`
}

func (t *Trip) EntityKind() Kind     { return KindTrip }
func (t *Trip) EntityID() uint       { return t.ID }
func (t *Trip) OwningTenant() *uint  { return ptr(t.TenantID) }
func (t *Trip) AssignTenant(id uint) { t.TenantID = id }
func (t *Trip) BranchRef() *uint     { return t.BranchID }

// ExpenseCategory classifies an expense
type ExpenseCategory string

const (
	ExpenseFuel            ExpenseCategory = "fuel"
	ExpenseMaintenance     ExpenseCategory = "maintenance"
	ExpenseRepair          ExpenseCategory = "repair"
	ExpenseToll            ExpenseCategory = "toll"
	ExpenseDriverAllowance ExpenseCategory = "driver_allowance"
	ExpenseOther           ExpenseCategory = "other"
)

func (c ExpenseCategory) Valid() bool {
	switch c {
	case ExpenseFuel, ExpenseMaintenance, ExpenseRepair, ExpenseToll, ExpenseDriverAllowance, ExpenseOther:
		return true
	}
	return false
}

// Expense is an operational cost, optionally tied to a vehicle or trip
type Expense struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	TenantID      uint            `json:"tenant_id" gorm:"not null;index:idx_expenses_tenant_date"`
	BranchID      *uint           `json:"branch_id,omitempty" gorm:"index"`
	VehicleID     *uint           `json:"vehicle_id,omitempty" gorm:"index"`
	TripID        *uint           `json:"trip_id,omitempty" gorm:"index"`
	Category      ExpenseCategory `json:"category" gorm:"type:varchar(20);not null"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Description   string          `json:"description" gorm:"type:text;not null"`
	ExpenseDate   time.Time       `json:"expense_date" gorm:"type:date;not null;index:idx_expenses_tenant_date"`
	ReceiptNumber string          `json:"receipt_number" gorm:"type:varchar(50)"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `json:"-" gorm:"index"`
}

func (e *Expense) EntityKind() Kind     { return KindExpense }
func (e *Expense) EntityID() uint       { return e.ID }
func (e *Expense) OwningTenant() *uint  { return ptr(e.TenantID) }
func (e *Expense) AssignTenant(id uint) { e.TenantID = id }
func (e *Expense) BranchRef() *uint     { return e.BranchID }

// UnmarshalJSON accepts expense_date as a plain date or an RFC 3339 timestamp
func (e *Expense) UnmarshalJSON(data []byte) error {
	type Alias Expense
	aux := struct {
		*Alias
		ExpenseDate json.RawMessage `json:"expense_date"`
	}{Alias: (*Alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	return decodeDate(aux.ExpenseDate, &e.ExpenseDate)
}
