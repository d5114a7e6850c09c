package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/identity"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/internal/repository"
	"github.com/suteetoe/fleetbill/internal/sequence"
	"github.com/suteetoe/fleetbill/internal/validation"
	"github.com/suteetoe/fleetbill/pkg/logger"
	"github.com/suteetoe/fleetbill/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	tenantCodeLength   = 8
	tenantCodeAttempts = 5
)

// tenantChildren are soft deleted together with their tenant
var tenantChildren = []interface{}{
	&model.Expense{},
	&model.Trip{},
	&model.Bill{},
	&model.Driver{},
	&model.Party{},
	&model.Vehicle{},
	&model.VehicleOwner{},
	&model.Branch{},
	&model.User{},
}

// TenantService manages businesses
type TenantService struct {
	env   *env
	store *repository.Store[model.Business, *model.Business]
}

func newTenantService(e *env) *TenantService {
	return &TenantService{
		env:   e,
		store: repository.NewStore[model.Business](e.db, model.KindTenant, e.gate, "name", "label", "status"),
	}
}

// List returns the tenants id may see: all of them for system admins, the
// own tenant otherwise.
func (s *TenantService) List(ctx context.Context, id identity.Identity, q repository.ListQuery) (*repository.Page[model.Business], error) {
	return s.store.List(ctx, id, q)
}

// Get returns one tenant
func (s *TenantService) Get(ctx context.Context, id identity.Identity, pk uint) (*model.Business, error) {
	return s.store.Get(ctx, id, pk)
}

// Create registers a tenant with a random code and default settings. Zero
// limits are replaced by the defaults.
func (s *TenantService) Create(ctx context.Context, id identity.Identity, meta Meta, b *model.Business) (*model.Business, error) {
	err := s.env.transaction(ctx, model.KindTenant, "create", func(tx *gorm.DB) error {
		if err := s.env.gate.AuthorizeCreate(id, model.KindTenant); err != nil {
			return err
		}
		b.ID = 0
		if b.MaxStaffUsers == 0 {
			b.MaxStaffUsers = model.DefaultMaxStaffUsers
		}
		if b.MaxVehicles == 0 {
			b.MaxVehicles = model.DefaultMaxVehicles
		}
		if b.MaxBranches == 0 {
			b.MaxBranches = model.DefaultMaxBranches
		}
		if err := validation.Business(ctx, tx, b); err != nil {
			return err
		}

		code, err := s.newCode(ctx, tx)
		if err != nil {
			return err
		}
		b.Code = code
		if err := translate(s.store.WithDB(tx).Create(ctx, b)); err != nil {
			return err
		}

		settings := model.DefaultSettings(b.ID)
		if err := tx.Create(&settings).Error; err != nil {
			return fmt.Errorf("create settings: %w", err)
		}
		if err := writeAudit(ctx, tx, id, meta, model.AuditCreate, b, created(b)); err != nil {
			return err
		}
		return s.refreshActive(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Tenant created",
		zap.Uint("tenant_id", b.ID),
		zap.String("code", b.Code))
	return b, nil
}

// newCode draws tenant codes until one is unused, deleted tenants included
func (s *TenantService) newCode(ctx context.Context, tx *gorm.DB) (string, error) {
	for i := 0; i < tenantCodeAttempts; i++ {
		code, err := sequence.RandomCode(tenantCodeLength)
		if err != nil {
			return "", err
		}
		var n int64
		if err := tx.WithContext(ctx).Unscoped().Model(&model.Business{}).Where("code = ?", code).Count(&n).Error; err != nil {
			return "", fmt.Errorf("check tenant code: %w", err)
		}
		if n == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("tenant code: %w", apperr.ErrSequenceExhausted)
}

// Update changes a tenant. Owners cannot change the label, the status or the
// limits; nobody changes the code.
func (s *TenantService) Update(ctx context.Context, id identity.Identity, meta Meta, pk uint, apply func(*model.Business) error) (*model.Business, error) {
	var b *model.Business
	err := s.env.transaction(ctx, model.KindTenant, "update", func(tx *gorm.DB) error {
		stored, err := s.store.WithDB(tx).FindForUpdate(ctx, pk)
		if errors.Is(err, apperr.ErrNotFound) {
			return missing(id)
		}
		if err != nil {
			return err
		}
		if err := s.env.gate.AuthorizeModify(id, stored); err != nil {
			return err
		}

		cp := *stored
		b = &cp
		if err := apply(b); err != nil {
			return err
		}
		if b.ID != stored.ID {
			return apperr.Invalid("id", "id cannot be changed")
		}
		b.Code = stored.Code
		if !id.IsSystemAdmin() {
			b.Label = stored.Label
			b.Status = stored.Status
			b.MaxStaffUsers = stored.MaxStaffUsers
			b.MaxVehicles = stored.MaxVehicles
			b.MaxBranches = stored.MaxBranches
		}

		if err := validation.Business(ctx, tx, b); err != nil {
			return err
		}
		if err := translate(s.store.WithDB(tx).Save(ctx, b)); err != nil {
			return err
		}
		if err := writeAudit(ctx, tx, id, meta, model.AuditUpdate, b, diff(stored, b)); err != nil {
			return err
		}
		return s.refreshActive(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Delete soft deletes a tenant together with all of its records and users
func (s *TenantService) Delete(ctx context.Context, id identity.Identity, meta Meta, pk uint) error {
	return s.env.transaction(ctx, model.KindTenant, "delete", func(tx *gorm.DB) error {
		stored, err := s.store.WithDB(tx).FindForUpdate(ctx, pk)
		if errors.Is(err, apperr.ErrNotFound) {
			return missing(id)
		}
		if err != nil {
			return err
		}
		if err := s.env.gate.AuthorizeDelete(id, stored); err != nil {
			return err
		}

		for _, m := range tenantChildren {
			if err := tx.Where("tenant_id = ?", stored.ID).Delete(m).Error; err != nil {
				return fmt.Errorf("delete tenant records: %w", err)
			}
		}
		if err := tx.Where("tenant_id = ?", stored.ID).Delete(&model.BusinessSettings{}).Error; err != nil {
			return fmt.Errorf("delete settings: %w", err)
		}
		if err := s.store.WithDB(tx).Delete(ctx, stored); err != nil {
			return err
		}
		if err := writeAudit(ctx, tx, id, meta, model.AuditDelete, stored, nil); err != nil {
			return err
		}
		return s.refreshActive(ctx, tx)
	})
}

// Stats returns the live counters of a tenant id may see
func (s *TenantService) Stats(ctx context.Context, id identity.Identity, pk uint) (*repository.TenantStats, error) {
	b, err := s.store.Get(ctx, id, pk)
	if err != nil {
		return nil, err
	}
	done := prometheus.TrackTenantOperation("stats", b.ID)
	defer done()
	return repository.NewCounter(s.env.db.WithContext(ctx)).Stats(ctx, b, s.env.now())
}

// Settings returns the settings of a tenant id may see
func (s *TenantService) Settings(ctx context.Context, id identity.Identity, pk uint) (*model.BusinessSettings, error) {
	b, err := s.store.Get(ctx, id, pk)
	if err != nil {
		return nil, err
	}
	var settings model.BusinessSettings
	err = s.env.db.WithContext(ctx).Where("tenant_id = ?", b.ID).Take(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return &settings, nil
}

// RefreshActive recounts the active tenants gauge
func (s *TenantService) RefreshActive(ctx context.Context) error {
	return s.refreshActive(ctx, s.env.db)
}

func (s *TenantService) refreshActive(ctx context.Context, tx *gorm.DB) error {
	var n int64
	err := tx.WithContext(ctx).Model(&model.Business{}).
		Where("status = ?", model.BusinessActive).
		Count(&n).Error
	if err != nil {
		return fmt.Errorf("count active tenants: %w", err)
	}
	prometheus.UpdateActiveTenants(n)
	return nil
}
