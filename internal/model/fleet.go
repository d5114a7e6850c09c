package model

import (
	"time"

	"gorm.io/gorm"
)

// VehicleOwner is the owner of one or more vehicles, unique per tenant by mobile number.
type VehicleOwner struct {
	ID                    uint           `json:"id" gorm:"primaryKey"`
	TenantID              uint           `json:"tenant_id" gorm:"not null;uniqueIndex:idx_vehicle_owners_tenant_mobile,where:deleted_at IS NULL"`
	BranchID              *uint          `json:"branch_id,omitempty" gorm:"index"`
	Name                  string         `json:"name" gorm:"type:varchar(255);not null"`
	MobileNumber          string         `json:"mobile_number" gorm:"type:varchar(10);not null;uniqueIndex:idx_vehicle_owners_tenant_mobile"`
	AlternateMobileNumber *string        `json:"alternate_mobile_number,omitempty" gorm:"type:varchar(10)"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `json:"-" gorm:"index"`
}

func (o *VehicleOwner) EntityKind() Kind     { return KindVehicleOwner }
func (o *VehicleOwner) EntityID() uint       { return o.ID }
func (o *VehicleOwner) OwningTenant() *uint  { return ptr(o.TenantID) }
func (o *VehicleOwner) AssignTenant(id uint) { o.TenantID = id }
func (o *VehicleOwner) BranchRef() *uint     { return o.BranchID }

// VehicleStatus is the operational state of a vehicle
type VehicleStatus string

const (
	VehicleActive      VehicleStatus = "active"
	VehicleInactive    VehicleStatus = "inactive"
	VehicleMaintenance VehicleStatus = "maintenance"
)

func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleActive, VehicleInactive, VehicleMaintenance:
		return true
	}
	return false
}

// Vehicle is a registered vehicle. VehicleNumber is stored normalized
// (uppercase, no whitespace).
type Vehicle struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	TenantID      uint           `json:"tenant_id" gorm:"not null;uniqueIndex:idx_vehicles_tenant_number,where:deleted_at IS NULL"`
	BranchID      *uint          `json:"branch_id,omitempty" gorm:"index"`
	OwnerID       *uint          `json:"owner_id,omitempty" gorm:"index"`
	VehicleNumber string         `json:"vehicle_number" gorm:"type:varchar(20);not null;uniqueIndex:idx_vehicles_tenant_number"`
	VehicleName   string         `json:"vehicle_name" gorm:"type:varchar(100)"`
	ModelName     string         `json:"model_name" gorm:"type:varchar(255)"`
	Notes         string         `json:"notes" gorm:"type:text"`
	Status        VehicleStatus  `json:"status" gorm:"type:varchar(15);not null;default:'active'"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

func (v *Vehicle) EntityKind() Kind     { return KindVehicle }
func (v *Vehicle) EntityID() uint       { return v.ID }
func (v *Vehicle) OwningTenant() *uint  { return ptr(v.TenantID) }
func (v *Vehicle) AssignTenant(id uint) { v.TenantID = id }
func (v *Vehicle) BranchRef() *uint     { return v.BranchID }

// Party is a customer billed for trips.
type Party struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	TenantID        uint           `json:"tenant_id" gorm:"not null;uniqueIndex:idx_parties_tenant_name,where:deleted_at IS NULL"`
	BranchID        *uint          `json:"branch_id,omitempty" gorm:"index"`
	Name            string         `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_parties_tenant_name"`
	GSTNo           *string        `json:"gst_no,omitempty" gorm:"column:gst_no;type:varchar(15);uniqueIndex:idx_parties_gst_no,where:deleted_at IS NULL"`
	Mobile          *string        `json:"mobile,omitempty" gorm:"type:varchar(10);index"`
	AlternateMobile *string        `json:"alternate_mobile,omitempty" gorm:"type:varchar(10)"`
	Address         string         `json:"address" gorm:"type:text"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

func (p *Party) EntityKind() Kind     { return KindParty }
func (p *Party) EntityID() uint       { return p.ID }
func (p *Party) OwningTenant() *uint  { return ptr(p.TenantID) }
func (p *Party) AssignTenant(id uint) { p.TenantID = id }
func (p *Party) BranchRef() *uint     { return p.BranchID }

// DriverStatus is the employment state of a driver
type DriverStatus string

const (
	DriverActive   DriverStatus = "active"
	DriverInactive DriverStatus = "inactive"
)

func (s DriverStatus) Valid() bool {
	return s == DriverActive || s == DriverInactive
}

// Driver drives vehicles on trips. Mobile and alternate mobile are each
// unique per tenant when set.
type Driver struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	TenantID        uint           `json:"tenant_id" gorm:"not null;uniqueIndex:idx_drivers_tenant_mobile,where:deleted_at IS NULL;uniqueIndex:idx_drivers_tenant_alternate_mobile,where:deleted_at IS NULL"`
	BranchID        *uint          `json:"branch_id,omitempty" gorm:"index"`
	Name            string         `json:"name" gorm:"type:varchar(255);not null"`
	Mobile          *string        `json:"mobile,omitempty" gorm:"type:varchar(10);uniqueIndex:idx_drivers_tenant_mobile"`
	AlternateMobile *string        `json:"alternate_mobile,omitempty" gorm:"type:varchar(10);uniqueIndex:idx_drivers_tenant_alternate_mobile"`
	LicenseNumber   string         `json:"license_number" gorm:"type:varchar(30)"`
	Status          DriverStatus   `json:"status" gorm:"type:varchar(15);not null;default:'active'"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

func (d *Driver) EntityKind() Kind     { return KindDriver }
func (d *Driver) EntityID() uint       { return d.ID }
func (d *Driver) OwningTenant() *uint  { return ptr(d.TenantID) }
func (d *Driver) AssignTenant(id uint) { d.TenantID = id }
func (d *Driver) BranchRef() *uint     { return d.BranchID }
