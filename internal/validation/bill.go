package validation

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/model"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// NormalizeBill recomputes the derived amounts of b. Values supplied for
// pending_amount and commission_pending are overwritten. The commission
// charge is derived from the percentage only when no charge was given.
func NormalizeBill(b *model.Bill) {
	b.FromLocation = strings.TrimSpace(b.FromLocation)
	b.ToLocation = strings.TrimSpace(b.ToLocation)
	b.PendingAmount = b.RentAmount.Sub(b.AdvanceAmount)
	if b.Commission.IsPositive() && b.CommissionCharge.IsZero() {
		b.CommissionCharge = b.RentAmount.Mul(b.Commission).Div(hundred).RoundBank(0)
	}
	b.CommissionPending = b.CommissionCharge.Sub(b.CommissionReceived)
}

// CheckBillBounds checks the amount invariants of an already normalized
// bill.
func CheckBillBounds(b *model.Bill) error {
	var errs apperr.Errors

	amounts := []struct {
		field string
		value decimal.Decimal
	}{
		{"rent_amount", b.RentAmount},
		{"advance_amount", b.AdvanceAmount},
		{"commission_charge", b.CommissionCharge},
		{"commission_received", b.CommissionReceived},
	}
	for _, a := range amounts {
		switch {
		case a.value.IsNegative():
			errs.Add(apperr.Bounds(a.field, "%s cannot be negative", label(a.field)))
		case !a.value.Equal(a.value.Truncate(0)):
			errs.Add(apperr.Invalid(a.field, "%s must be a whole amount", label(a.field)))
		}
	}
	if b.Commission.IsNegative() || b.Commission.GreaterThan(hundred) {
		errs.Add(apperr.Bounds("commission", "commission must be between 0 and 100 percent"))
	}

	if !errs.Has("advance_amount") && !errs.Has("rent_amount") && b.AdvanceAmount.GreaterThan(b.RentAmount) {
		errs.Add(apperr.Bounds("advance_amount", "advance amount cannot exceed rent amount"))
	}
	if !errs.Has("commission_received") && !errs.Has("commission_charge") && b.CommissionReceived.GreaterThan(b.CommissionCharge) {
		errs.Add(apperr.Bounds("commission_received", "commission received cannot exceed commission charge"))
	}
	if b.CommissionReceivedDate != nil && !b.CommissionReceived.IsPositive() {
		errs.Add(apperr.Bounds("commission_received_date",
			"commission received date requires a received amount"))
	}
	return errs.Err()
}

// Bill normalizes b and checks every invariant of a bill in tenant
// b.TenantID.
func Bill(ctx context.Context, tx *gorm.DB, b *model.Bill) error {
	var errs apperr.Errors
	if b.VehicleID == 0 {
		errs.Add(apperr.Invalid("vehicle", "vehicle is required"))
	}
	if strings.TrimSpace(b.FromLocation) == "" {
		errs.Add(apperr.Invalid("from_location", "from location is required"))
	}
	if strings.TrimSpace(b.ToLocation) == "" {
		errs.Add(apperr.Invalid("to_location", "to location is required"))
	}
	if b.BillDate.IsZero() {
		errs.Add(apperr.Invalid("bill_date", "bill date is required"))
	}

	err := collect(&errs, SameTenant(ctx, tx, b.TenantID,
		Ref{"vehicle", &model.Vehicle{}, nonZero(b.VehicleID)},
		Ref{"party", &model.Party{}, b.PartyID},
		Ref{"driver", &model.Driver{}, b.DriverID},
		Ref{"reference", &model.VehicleOwner{}, b.ReferenceID},
		Ref{"branch", &model.Branch{}, b.BranchID},
	))
	if err != nil {
		return err
	}

	NormalizeBill(b)
	errs.Add(CheckBillBounds(b))
	return errs.Err()
}

func nonZero(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

func label(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
