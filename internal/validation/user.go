package validation

import (
	"context"
	"strings"

	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/internal/repository"
	"gorm.io/gorm"
)

// User validates an account, including the role invariants:
//
//	admin           no tenant, no branch
//	business_owner  tenant, no branch
//	branch_manager  tenant and a branch of that tenant
//	staff           tenant, optionally a branch of that tenant
//
// Superusers are exempt from the role rules. A new active staff member or
// branch manager must fit the tenant's staff allowance.
func User(ctx context.Context, tx *gorm.DB, u *model.User) error {
	var errs apperr.Errors
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.TrimSpace(u.Email)
	u.PhoneNumber = NormalizeOptional(u.PhoneNumber)
	if u.TenantID != nil && *u.TenantID == 0 {
		u.TenantID = nil
	}
	if u.BranchID != nil && *u.BranchID == 0 {
		u.BranchID = nil
	}

	required(&errs, "username", u.Username)
	if len(u.Username) > 150 {
		errs.Add(apperr.Invalid("username", "username is too long"))
	}
	if u.Email != "" && formats.Var(u.Email, "email") != nil {
		errs.Add(apperr.Invalid("email", "enter a valid email address"))
	}
	checkOptionalMobile(&errs, "phone_number", u.PhoneNumber)

	if !u.Role.Valid() {
		errs.Add(apperr.Invalid("role", "unknown role %q", u.Role))
		return errs.Err()
	}
	if !u.IsSuperuser {
		checkRole(&errs, u)
	}

	checks := []error{
		Unique(ctx, tx, UniqueCheck{
			Model:     &model.User{},
			Field:     "username",
			Message:   "a user with that username already exists",
			Keys:      []Key{Eq("username", u.Username)},
			ExcludeID: u.ID,
			Unscoped:  true,
		}),
	}
	if u.TenantID != nil {
		_, err := loadTenant(ctx, tx, *u.TenantID)
		checks = append(checks, err)
		if err == nil {
			checks = append(checks, SameTenant(ctx, tx, *u.TenantID, Ref{"branch", &model.Branch{}, u.BranchID}))
		}
		if err == nil && u.ID == 0 && u.Role.CountsAsStaff() && u.IsActiveStaff && !u.IsSuperuser && !errs.Has("role") {
			checks = append(checks, StaffLimit(ctx, tx, *u.TenantID))
		}
	}
	if err := collect(&errs, checks...); err != nil {
		return err
	}
	return errs.Err()
}

func checkRole(errs *apperr.Errors, u *model.User) {
	switch u.Role {
	case model.RoleAdmin:
		if u.TenantID != nil {
			errs.Add(apperr.Invalid(repository.TenantField, "system admin cannot be assigned to a business"))
		}
		if u.BranchID != nil {
			errs.Add(apperr.Invalid("branch", "system admin cannot be assigned to a branch"))
		}
	case model.RoleBusinessOwner:
		if u.TenantID == nil {
			errs.Add(apperr.TenantRequired(repository.TenantField))
		}
		if u.BranchID != nil {
			errs.Add(apperr.Invalid("branch", "business owners are not assigned to a branch"))
		}
	case model.RoleBranchManager:
		if u.TenantID == nil {
			errs.Add(apperr.TenantRequired(repository.TenantField))
		}
		if u.BranchID == nil {
			errs.Add(apperr.Invalid("branch", "branch managers must be assigned to a branch"))
		}
	case model.RoleStaff:
		if u.TenantID == nil {
			errs.Add(apperr.TenantRequired(repository.TenantField))
		}
	}
}
