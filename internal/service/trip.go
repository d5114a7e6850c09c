package service

import (
	"context"
	"fmt"

	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/internal/sequence"
	"github.com/suteetoe/fleetbill/internal/validation"
	"gorm.io/gorm"
)

func newTrips(e *env) *Resource[model.Trip, *model.Trip] {
	r := newResource[model.Trip](e, model.KindTrip, "trip_number", "start_date", "status")
	r.validate = validation.Trip
	r.number = func(ctx context.Context, tx *gorm.DB, t *model.Trip) error {
		var tenant model.Business
		if err := tx.WithContext(ctx).First(&tenant, t.TenantID).Error; err != nil {
			return fmt.Errorf("load tenant %d: %w", t.TenantID, err)
		}
		number, err := e.seq.Next(ctx, tx, t.TenantID, sequence.TripSeries(tenant.Code))
		if err != nil {
			return err
		}
		t.TripNumber = number
		return nil
	}
	r.preserve = func(stored, t *model.Trip) { t.TripNumber = stored.TripNumber }
	r.remove = func(ctx context.Context, tx *gorm.DB, t *model.Trip) error {
		if err := detach(ctx, tx, &model.Expense{}, "trip_id", t.ID); err != nil {
			return fmt.Errorf("detach expenses: %w", err)
		}
		return nil
	}
	return r
}

func newExpenses(e *env) *Resource[model.Expense, *model.Expense] {
	r := newResource[model.Expense](e, model.KindExpense, "expense_date", "amount", "category")
	r.validate = validation.Expense
	return r
}
