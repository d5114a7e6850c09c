package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/suteetoe/fleetbill/internal/apperr"
	"gorm.io/gorm"
)

// Ref is a foreign reference held by an entity
type Ref struct {
	Field string
	Model interface{}
	ID    *uint
}

// RefTo builds a Ref for a required reference
func RefTo(field string, m interface{}, id uint) Ref {
	return Ref{Field: field, Model: m, ID: &id}
}

// SameTenant verifies that every set reference exists and belongs to
// tenant. A mismatch is apperr.ErrConsistency on the reference's field.
func SameTenant(ctx context.Context, tx *gorm.DB, tenant uint, refs ...Ref) error {
	var errs apperr.Errors
	for _, r := range refs {
		if r.ID == nil || *r.ID == 0 {
			continue
		}
		owner, err := tenantOf(ctx, tx, r.Model, *r.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			errs.Add(apperr.Invalid(r.Field, "selected %s does not exist", r.Field))
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s %d: %w", r.Field, *r.ID, err)
		}
		if owner == nil || *owner != tenant {
			errs.Add(apperr.Consistency(r.Field, "selected %s belongs to a different business", r.Field))
		}
	}
	return errs.Err()
}

func tenantOf(ctx context.Context, tx *gorm.DB, m interface{}, id uint) (*uint, error) {
	var row struct {
		TenantID *uint
	}
	err := tx.WithContext(ctx).Model(m).Select("tenant_id").Where("id = ?", id).Take(&row).Error
	if err != nil {
		return nil, err
	}
	return row.TenantID, nil
}
