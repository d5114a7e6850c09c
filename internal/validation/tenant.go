package validation

import (
	"context"
	"strings"

	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/model"
	"gorm.io/gorm"
)

// Business validates a tenant record
func Business(ctx context.Context, tx *gorm.DB, b *model.Business) error {
	var errs apperr.Errors
	b.Name = strings.TrimSpace(b.Name)
	b.Label = strings.Join(strings.Fields(b.Label), " ")
	b.MobileNumber = strings.TrimSpace(b.MobileNumber)
	b.AlternateMobileNumber = NormalizeOptional(b.AlternateMobileNumber)
	b.Email = NormalizeOptional(b.Email)
	if b.Email != nil {
		lower := strings.ToLower(*b.Email)
		b.Email = &lower
	}

	required(&errs, "name", b.Name)
	if len(b.Name) > 100 {
		errs.Add(apperr.Invalid("name", "name is too long"))
	}
	required(&errs, "label", b.Label)
	if len(b.Label) > 15 {
		errs.Add(apperr.Invalid("label", "label can be at most 15 characters"))
	}
	checkMobile(&errs, "mobile_number", b.MobileNumber)
	checkOptionalMobile(&errs, "alternate_mobile_number", b.AlternateMobileNumber)
	if b.Email != nil && formats.Var(*b.Email, "email") != nil {
		errs.Add(apperr.Invalid("email", "enter a valid email address"))
	}
	if b.Status == "" {
		b.Status = model.BusinessActive
	} else if !b.Status.Valid() {
		errs.Add(apperr.Invalid("status", "unknown status %q", b.Status))
	}

	limits := []struct {
		field string
		value int
	}{
		{"max_staff_users", b.MaxStaffUsers},
		{"max_vehicles", b.MaxVehicles},
		{"max_branches", b.MaxBranches},
	}
	for _, l := range limits {
		if l.value < 0 {
			errs.Add(apperr.Bounds(l.field, "%s cannot be negative", label(l.field)))
		}
	}

	err := collect(&errs,
		Unique(ctx, tx, UniqueCheck{
			Model:     &model.Business{},
			Field:     "label",
			Message:   "a business with this label already exists",
			Keys:      []Key{Eq("label", b.Label)},
			ExcludeID: b.ID,
		}),
		Unique(ctx, tx, UniqueCheck{
			Model:     &model.Business{},
			Field:     "email",
			Message:   "a business with this email already exists",
			Keys:      []Key{Eq("email", b.Email)},
			ExcludeID: b.ID,
		}),
	)
	if err != nil {
		return err
	}
	return errs.Err()
}
