package service

import (
	"context"
	"fmt"

	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/internal/sequence"
	"github.com/suteetoe/fleetbill/internal/validation"
	"gorm.io/gorm"
)

const branchCodeLength = 6

// branchChildren hold an optional branch reference
var branchChildren = []interface{}{
	&model.VehicleOwner{},
	&model.Vehicle{},
	&model.Party{},
	&model.Driver{},
	&model.Bill{},
	&model.Trip{},
	&model.Expense{},
	&model.User{},
}

func newBranches(e *env) *Resource[model.Branch, *model.Branch] {
	r := newResource[model.Branch](e, model.KindBranch, "name", "code")
	r.validate = validation.Branch
	r.number = func(ctx context.Context, tx *gorm.DB, b *model.Branch) error {
		for i := 0; i < tenantCodeAttempts; i++ {
			code, err := sequence.RandomCode(branchCodeLength)
			if err != nil {
				return err
			}
			var n int64
			if err := tx.WithContext(ctx).Unscoped().Model(&model.Branch{}).Where("code = ?", code).Count(&n).Error; err != nil {
				return fmt.Errorf("check branch code: %w", err)
			}
			if n == 0 {
				b.Code = code
				return nil
			}
		}
		return fmt.Errorf("branch code: %w", apperr.ErrSequenceExhausted)
	}
	r.preserve = func(stored, b *model.Branch) { b.Code = stored.Code }
	r.remove = func(ctx context.Context, tx *gorm.DB, b *model.Branch) error {
		var managers int64
		err := tx.WithContext(ctx).Model(&model.User{}).
			Where("branch_id = ? AND role = ?", b.ID, model.RoleBranchManager).
			Count(&managers).Error
		if err != nil {
			return fmt.Errorf("count branch managers: %w", err)
		}
		if managers > 0 {
			return apperr.Consistency("branch", "reassign the branch managers of this branch first")
		}
		for _, m := range branchChildren {
			if err := detach(ctx, tx, m, "branch_id", b.ID); err != nil {
				return fmt.Errorf("detach branch: %w", err)
			}
		}
		return nil
	}
	return r
}

func newOwners(e *env) *Resource[model.VehicleOwner, *model.VehicleOwner] {
	r := newResource[model.VehicleOwner](e, model.KindVehicleOwner, "name", "mobile_number")
	r.validate = validation.VehicleOwner
	r.remove = func(ctx context.Context, tx *gorm.DB, o *model.VehicleOwner) error {
		if err := detach(ctx, tx, &model.Vehicle{}, "owner_id", o.ID); err != nil {
			return fmt.Errorf("detach vehicles: %w", err)
		}
		if err := detach(ctx, tx, &model.Bill{}, "reference_id", o.ID); err != nil {
			return fmt.Errorf("detach bills: %w", err)
		}
		return nil
	}
	return r
}

func newVehicles(e *env) *Resource[model.Vehicle, *model.Vehicle] {
	r := newResource[model.Vehicle](e, model.KindVehicle, "vehicle_number", "status")
	r.validate = validation.Vehicle
	r.remove = func(ctx context.Context, tx *gorm.DB, v *model.Vehicle) error {
		if err := detach(ctx, tx, &model.Expense{}, "vehicle_id", v.ID); err != nil {
			return fmt.Errorf("detach expenses: %w", err)
		}
		var trips []uint
		if err := tx.WithContext(ctx).Model(&model.Trip{}).Where("vehicle_id = ?", v.ID).Pluck("id", &trips).Error; err != nil {
			return fmt.Errorf("load trips: %w", err)
		}
		if len(trips) > 0 {
			if err := tx.WithContext(ctx).Model(&model.Expense{}).Where("trip_id IN ?", trips).Update("trip_id", nil).Error; err != nil {
				return fmt.Errorf("detach trip expenses: %w", err)
			}
		}
		if err := tx.WithContext(ctx).Where("vehicle_id = ?", v.ID).Delete(&model.Trip{}).Error; err != nil {
			return fmt.Errorf("delete trips: %w", err)
		}
		if err := tx.WithContext(ctx).Where("vehicle_id = ?", v.ID).Delete(&model.Bill{}).Error; err != nil {
			return fmt.Errorf("delete bills: %w", err)
		}
		return nil
	}
	return r
}

func newParties(e *env) *Resource[model.Party, *model.Party] {
	r := newResource[model.Party](e, model.KindParty, "name")
	r.validate = validation.Party
	r.remove = func(ctx context.Context, tx *gorm.DB, p *model.Party) error {
		if err := detach(ctx, tx, &model.Bill{}, "party_id", p.ID); err != nil {
			return fmt.Errorf("detach bills: %w", err)
		}
		return nil
	}
	return r
}

func newDrivers(e *env) *Resource[model.Driver, *model.Driver] {
	r := newResource[model.Driver](e, model.KindDriver, "name", "status")
	r.validate = validation.Driver
	r.remove = func(ctx context.Context, tx *gorm.DB, d *model.Driver) error {
		if err := detach(ctx, tx, &model.Bill{}, "driver_id", d.ID); err != nil {
			return fmt.Errorf("detach bills: %w", err)
		}
		if err := detach(ctx, tx, &model.Trip{}, "driver_id", d.ID); err != nil {
			return fmt.Errorf("detach trips: %w", err)
		}
		return nil
	}
	return r
}
