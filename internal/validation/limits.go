package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/internal/repository"
	"gorm.io/gorm"
)

// Limits are checked on creation only. Lowering a limit, or suspending the
// tenant, never invalidates records that already exist. The tenant row is
// locked for the rest of the transaction so concurrent creates under one
// tenant count one after another.

func loadTenant(ctx context.Context, tx *gorm.DB, id uint) (*model.Business, error) {
	return findTenant(tx.WithContext(ctx), id)
}

func lockTenant(ctx context.Context, tx *gorm.DB, id uint) (*model.Business, error) {
	return findTenant(repository.LockForUpdate(tx.WithContext(ctx)), id)
}

func findTenant(tx *gorm.DB, id uint) (*model.Business, error) {
	var b model.Business
	err := tx.First(&b, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Invalid(repository.TenantField, "business does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("load tenant %d: %w", id, err)
	}
	return &b, nil
}

// VehicleLimit fails with apperr.ErrLimitReached when tenant already has
// MaxVehicles vehicles.
func VehicleLimit(ctx context.Context, tx *gorm.DB, tenant uint) error {
	b, err := lockTenant(ctx, tx, tenant)
	if err != nil {
		return err
	}
	n, err := repository.NewCounter(tx).Vehicles(ctx, tenant)
	if err != nil {
		return fmt.Errorf("count vehicles: %w", err)
	}
	if n >= int64(b.MaxVehicles) {
		return apperr.LimitReached(repository.TenantField,
			"vehicle limit reached, %s can have at most %d vehicles", b.Name, b.MaxVehicles)
	}
	return nil
}

// BranchLimit fails with apperr.ErrLimitReached when tenant already has
// MaxBranches active branches.
func BranchLimit(ctx context.Context, tx *gorm.DB, tenant uint) error {
	b, err := lockTenant(ctx, tx, tenant)
	if err != nil {
		return err
	}
	n, err := repository.NewCounter(tx).ActiveBranches(ctx, tenant)
	if err != nil {
		return fmt.Errorf("count branches: %w", err)
	}
	if n >= int64(b.MaxBranches) {
		return apperr.LimitReached(repository.TenantField,
			"branch limit reached, %s can have at most %d branches", b.Name, b.MaxBranches)
	}
	return nil
}

// StaffLimit fails with apperr.ErrLimitReached on field role when tenant
// already has MaxStaffUsers active staff members.
func StaffLimit(ctx context.Context, tx *gorm.DB, tenant uint) error {
	b, err := lockTenant(ctx, tx, tenant)
	if err != nil {
		return err
	}
	n, err := repository.NewCounter(tx).ActiveStaff(ctx, tenant)
	if err != nil {
		return fmt.Errorf("count staff: %w", err)
	}
	if n >= int64(b.MaxStaffUsers) {
		return apperr.LimitReached("role",
			"staff limit reached, %s can have at most %d staff users", b.Name, b.MaxStaffUsers)
	}
	return nil
}
