package validation

import (
	"context"
	"strings"

	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/model"
	"gorm.io/gorm"
)

func required(errs *apperr.Errors, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs.Add(apperr.Invalid(field, "%s is required", label(field)))
	}
}

// VehicleOwner validates an owner. Mobile numbers are unique per tenant.
func VehicleOwner(ctx context.Context, tx *gorm.DB, o *model.VehicleOwner) error {
	var errs apperr.Errors
	o.Name = strings.TrimSpace(o.Name)
	o.MobileNumber = strings.TrimSpace(o.MobileNumber)
	o.AlternateMobileNumber = NormalizeOptional(o.AlternateMobileNumber)

	required(&errs, "name", o.Name)
	required(&errs, "mobile_number", o.MobileNumber)
	checkMobile(&errs, "mobile_number", o.MobileNumber)
	checkOptionalMobile(&errs, "alternate_mobile_number", o.AlternateMobileNumber)

	err := collect(&errs,
		SameTenant(ctx, tx, o.TenantID, Ref{"branch", &model.Branch{}, o.BranchID}),
		Unique(ctx, tx, UniqueCheck{
			Model:     &model.VehicleOwner{},
			Field:     "mobile_number",
			Message:   "an owner with this mobile number already exists in your business",
			Keys:      []Key{Eq("tenant_id", o.TenantID), Eq("mobile_number", o.MobileNumber)},
			ExcludeID: o.ID,
		}),
	)
	if err != nil {
		return err
	}
	return errs.Err()
}

// Vehicle validates a vehicle. The owner must belong to the vehicle's
// tenant and a new vehicle must fit the tenant's vehicle allowance.
func Vehicle(ctx context.Context, tx *gorm.DB, v *model.Vehicle) error {
	var errs apperr.Errors
	v.VehicleNumber = NormalizeVehicleNumber(v.VehicleNumber)
	if v.VehicleNumber == "" {
		errs.Add(apperr.Invalid("vehicle_number", "vehicle number is required"))
	} else if p := vehicleNumberProblem(v.VehicleNumber); p != "" {
		errs.Add(apperr.Invalid("vehicle_number", "%s", p))
	}
	if v.Status == "" {
		v.Status = model.VehicleActive
	} else if !v.Status.Valid() {
		errs.Add(apperr.Invalid("status", "unknown vehicle status %q", v.Status))
	}

	checks := []error{
		SameTenant(ctx, tx, v.TenantID,
			Ref{"owner", &model.VehicleOwner{}, v.OwnerID},
			Ref{"branch", &model.Branch{}, v.BranchID},
		),
		Unique(ctx, tx, UniqueCheck{
			Model:     &model.Vehicle{},
			Field:     "vehicle_number",
			Message:   "a vehicle with this number already exists in your business",
			Keys:      []Key{Eq("tenant_id", v.TenantID), Eq("vehicle_number", v.VehicleNumber)},
			ExcludeID: v.ID,
		}),
	}
	if v.ID == 0 {
		checks = append(checks, VehicleLimit(ctx, tx, v.TenantID))
	}
	if err := collect(&errs, checks...); err != nil {
		return err
	}
	return errs.Err()
}

// Party validates a customer. GST numbers are unique across all tenants;
// names and mobile numbers are unique within a tenant.
func Party(ctx context.Context, tx *gorm.DB, p *model.Party) error {
	var errs apperr.Errors
	p.Name = strings.TrimSpace(p.Name)
	p.GSTNo = NormalizeGST(p.GSTNo)
	p.Mobile = NormalizeOptional(p.Mobile)
	p.AlternateMobile = NormalizeOptional(p.AlternateMobile)

	required(&errs, "name", p.Name)
	if p.GSTNo != nil && formats.Var(*p.GSTNo, "gstin") != nil {
		errs.Add(apperr.Invalid("gst_no", "GST number must be 15 letters or digits"))
	}
	checkOptionalMobile(&errs, "mobile", p.Mobile)
	checkOptionalMobile(&errs, "alternate_mobile", p.AlternateMobile)
	if p.Mobile != nil && p.AlternateMobile != nil && *p.Mobile == *p.AlternateMobile {
		errs.Add(apperr.Invalid("alternate_mobile", "alternate mobile cannot be same as primary mobile"))
	}

	err := collect(&errs,
		SameTenant(ctx, tx, p.TenantID, Ref{"branch", &model.Branch{}, p.BranchID}),
		Unique(ctx, tx, UniqueCheck{
			Model:     &model.Party{},
			Field:     "name",
			Message:   "a party with this name already exists in your business",
			Keys:      []Key{Eq("tenant_id", p.TenantID), Eq("name", p.Name)},
			ExcludeID: p.ID,
		}),
		Unique(ctx, tx, UniqueCheck{
			Model:     &model.Party{},
			Field:     "gst_no",
			Message:   "a party with this GST number already exists",
			Keys:      []Key{Eq("gst_no", p.GSTNo)},
			ExcludeID: p.ID,
		}),
		Unique(ctx, tx, UniqueCheck{
			Model:     &model.Party{},
			Field:     "mobile",
			Message:   "this mobile number is already registered for another party",
			Keys:      []Key{Eq("tenant_id", p.TenantID), AnyOf(p.Mobile, "mobile", "alternate_mobile")},
			ExcludeID: p.ID,
		}),
		Unique(ctx, tx, UniqueCheck{
			Model:     &model.Party{},
			Field:     "alternate_mobile",
			Message:   "this mobile number is already registered for another party",
			Keys:      []Key{Eq("tenant_id", p.TenantID), AnyOf(p.AlternateMobile, "mobile", "alternate_mobile")},
			ExcludeID: p.ID,
		}),
	)
	if err != nil {
		return err
	}
	return errs.Err()
}

// Driver validates a driver. Mobile and alternate mobile are each unique
// within the tenant; a missing number never conflicts.
func Driver(ctx context.Context, tx *gorm.DB, d *model.Driver) error {
	var errs apperr.Errors
	d.Name = strings.TrimSpace(d.Name)
	d.Mobile = NormalizeOptional(d.Mobile)
	d.AlternateMobile = NormalizeOptional(d.AlternateMobile)
	d.LicenseNumber = strings.ToUpper(strings.TrimSpace(d.LicenseNumber))

	required(&errs, "name", d.Name)
	checkOptionalMobile(&errs, "mobile", d.Mobile)
	checkOptionalMobile(&errs, "alternate_mobile", d.AlternateMobile)
	if d.Mobile != nil && d.AlternateMobile != nil && *d.Mobile == *d.AlternateMobile {
		errs.Add(apperr.Invalid("alternate_mobile", "alternate mobile cannot be same as primary mobile"))
	}
	if d.Status == "" {
		d.Status = model.DriverActive
	} else if !d.Status.Valid() {
		errs.Add(apperr.Invalid("status", "unknown driver status %q", d.Status))
	}

	err := collect(&errs,
		SameTenant(ctx, tx, d.TenantID, Ref{"branch", &model.Branch{}, d.BranchID}),
		Unique(ctx, tx, UniqueCheck{
			Model:     &model.Driver{},
			Field:     "mobile",
			Message:   "this mobile number is already registered for another driver",
			Keys:      []Key{Eq("tenant_id", d.TenantID), Eq("mobile", d.Mobile)},
			ExcludeID: d.ID,
		}),
		Unique(ctx, tx, UniqueCheck{
			Model:     &model.Driver{},
			Field:     "alternate_mobile",
			Message:   "this alternate mobile number is already registered for another driver",
			Keys:      []Key{Eq("tenant_id", d.TenantID), Eq("alternate_mobile", d.AlternateMobile)},
			ExcludeID: d.ID,
		}),
	)
	if err != nil {
		return err
	}
	return errs.Err()
}

// Branch validates a branch. A new branch must fit the tenant's branch
// allowance.
func Branch(ctx context.Context, tx *gorm.DB, b *model.Branch) error {
	var errs apperr.Errors
	b.Name = strings.TrimSpace(b.Name)
	b.MobileNumber = strings.TrimSpace(b.MobileNumber)

	required(&errs, "name", b.Name)
	checkMobile(&errs, "mobile_number", b.MobileNumber)
	if b.ID == 0 {
		if err := collect(&errs, BranchLimit(ctx, tx, b.TenantID)); err != nil {
			return err
		}
	}
	return errs.Err()
}
