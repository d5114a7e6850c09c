package validation

import (
	"context"
	"strings"

	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/model"
	"gorm.io/gorm"
)

// Trip validates a trip and the tenancy of its vehicle, driver, bill and
// branch.
func Trip(ctx context.Context, tx *gorm.DB, t *model.Trip) error {
	var errs apperr.Errors
	t.StartLocation = strings.TrimSpace(t.StartLocation)
	t.EndLocation = strings.TrimSpace(t.EndLocation)

	if t.VehicleID == 0 {
		errs.Add(apperr.Invalid("vehicle", "vehicle is required"))
	}
	required(&errs, "start_location", t.StartLocation)
	required(&errs, "end_location", t.EndLocation)
	if t.StartDate.IsZero() {
		errs.Add(apperr.Invalid("start_date", "start date is required"))
	}
	if t.EndDate != nil && !t.StartDate.IsZero() && t.EndDate.Before(t.StartDate) {
		errs.Add(apperr.Bounds("end_date", "end date cannot be before start date"))
	}
	if t.Status == "" {
		t.Status = model.TripScheduled
	} else if !t.Status.Valid() {
		errs.Add(apperr.Invalid("status", "unknown trip status %q", t.Status))
	}
	if t.DistanceKm.Valid && t.DistanceKm.Decimal.IsNegative() {
		errs.Add(apperr.Bounds("distance_km", "distance cannot be negative"))
	}
	if t.FuelConsumed.Valid && t.FuelConsumed.Decimal.IsNegative() {
		errs.Add(apperr.Bounds("fuel_consumed", "fuel consumed cannot be negative"))
	}

	err := collect(&errs, SameTenant(ctx, tx, t.TenantID,
		Ref{"vehicle", &model.Vehicle{}, nonZero(t.VehicleID)},
		Ref{"driver", &model.Driver{}, t.DriverID},
		Ref{"bill", &model.Bill{}, t.BillID},
		Ref{"branch", &model.Branch{}, t.BranchID},
	))
	if err != nil {
		return err
	}
	return errs.Err()
}

// Expense validates an expense and the tenancy of its references
func Expense(ctx context.Context, tx *gorm.DB, e *model.Expense) error {
	var errs apperr.Errors
	e.Description = strings.TrimSpace(e.Description)
	e.ReceiptNumber = strings.TrimSpace(e.ReceiptNumber)

	if !e.Category.Valid() {
		errs.Add(apperr.Invalid("category", "unknown expense category %q", e.Category))
	}
	if !e.Amount.IsPositive() {
		errs.Add(apperr.Bounds("amount", "amount must be greater than zero"))
	} else if !e.Amount.Equal(e.Amount.Round(2)) {
		errs.Add(apperr.Invalid("amount", "amount can have at most 2 decimal places"))
	}
	required(&errs, "description", e.Description)
	if e.ExpenseDate.IsZero() {
		errs.Add(apperr.Invalid("expense_date", "expense date is required"))
	}

	err := collect(&errs, SameTenant(ctx, tx, e.TenantID,
		Ref{"vehicle", &model.Vehicle{}, e.VehicleID},
		Ref{"trip", &model.Trip{}, e.TripID},
		Ref{"branch", &model.Branch{}, e.BranchID},
	))
	if err != nil {
		return err
	}
	return errs.Err()
}
