package service

import (
	"context"
	"errors"

	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/identity"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/internal/repository"
	"gorm.io/gorm"
)

// Resource serves the tenant owned entities that share the plain
// create/update/delete life cycle.
type Resource[T any, PT interface {
	*T
	model.TenantOwned
}] struct {
	env   *env
	kind  model.Kind
	store *repository.Store[T, PT]

	// validate normalizes and checks rec inside the write transaction
	validate func(ctx context.Context, tx *gorm.DB, rec PT) error
	// number assigns generated fields on creation
	number func(ctx context.Context, tx *gorm.DB, rec PT) error
	// preserve copies immutable fields from stored onto rec before an update
	preserve func(stored, rec PT)
	// remove detaches or deletes dependent records before rec is deleted
	remove func(ctx context.Context, tx *gorm.DB, rec PT) error
}

func newResource[T any, PT interface {
	*T
	model.TenantOwned
}](e *env, kind model.Kind, sortable ...string) *Resource[T, PT] {
	return &Resource[T, PT]{
		env:   e,
		kind:  kind,
		store: repository.NewStore[T, PT](e.db, kind, e.gate, sortable...),
	}
}

// Kind returns the entity kind served by r
func (r *Resource[T, PT]) Kind() model.Kind { return r.kind }

// List returns the records of the kind id may see
func (r *Resource[T, PT]) List(ctx context.Context, id identity.Identity, q repository.ListQuery, filters ...repository.Filter) (*repository.Page[T], error) {
	return r.store.List(ctx, id, q, filters...)
}

// Get returns one record, or apperr.ErrPermission when id may not see it
func (r *Resource[T, PT]) Get(ctx context.Context, id identity.Identity, pk uint) (PT, error) {
	return r.store.Get(ctx, id, pk)
}

// Create validates rec and inserts it under the tenant resolved for id. A
// tenant set on rec is honoured for system admins only.
func (r *Resource[T, PT]) Create(ctx context.Context, id identity.Identity, meta Meta, rec PT) (PT, error) {
	err := r.env.transaction(ctx, r.kind, "create", func(tx *gorm.DB) error {
		if err := r.env.gate.AuthorizeCreate(id, r.kind); err != nil {
			return err
		}
		if rec.EntityID() != 0 {
			return apperr.Invalid("id", "id is assigned by the server")
		}
		tenant, err := repository.ResolveTenantForWrite(id, rec.OwningTenant())
		if err != nil {
			return err
		}
		rec.AssignTenant(tenant)

		if err := r.validate(ctx, tx, rec); err != nil {
			return err
		}
		if r.number != nil {
			if err := r.number(ctx, tx, rec); err != nil {
				return err
			}
		}
		if err := translate(r.store.WithDB(tx).Create(ctx, rec)); err != nil {
			return err
		}
		return writeAudit(ctx, tx, id, meta, model.AuditCreate, rec, created(rec))
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Update loads the record, lets apply change a copy of it, then validates
// and saves the copy. The primary key and tenant cannot be changed.
func (r *Resource[T, PT]) Update(ctx context.Context, id identity.Identity, meta Meta, pk uint, apply func(PT) error) (PT, error) {
	var rec PT
	err := r.env.transaction(ctx, r.kind, "update", func(tx *gorm.DB) error {
		stored, err := r.store.WithDB(tx).FindForUpdate(ctx, pk)
		if errors.Is(err, apperr.ErrNotFound) {
			return missing(id)
		}
		if err != nil {
			return err
		}
		if err := r.env.gate.AuthorizeModify(id, stored); err != nil {
			return err
		}

		rec = PT(new(T))
		*rec = *stored
		if err := apply(rec); err != nil {
			return err
		}
		if rec.EntityID() != stored.EntityID() {
			return apperr.Invalid("id", "id cannot be changed")
		}
		rec.AssignTenant(*stored.OwningTenant())
		if r.preserve != nil {
			r.preserve(stored, rec)
		}

		if err := r.validate(ctx, tx, rec); err != nil {
			return err
		}
		if err := translate(r.store.WithDB(tx).Save(ctx, rec)); err != nil {
			return err
		}
		return writeAudit(ctx, tx, id, meta, model.AuditUpdate, rec, diff(stored, rec))
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete soft deletes the record after detaching what depends on it
func (r *Resource[T, PT]) Delete(ctx context.Context, id identity.Identity, meta Meta, pk uint) error {
	return r.env.transaction(ctx, r.kind, "delete", func(tx *gorm.DB) error {
		stored, err := r.store.WithDB(tx).FindForUpdate(ctx, pk)
		if errors.Is(err, apperr.ErrNotFound) {
			return missing(id)
		}
		if err != nil {
			return err
		}
		if err := r.env.gate.AuthorizeDelete(id, stored); err != nil {
			return err
		}
		if r.remove != nil {
			if err := r.remove(ctx, tx, stored); err != nil {
				return err
			}
		}
		if err := r.store.WithDB(tx).Delete(ctx, stored); err != nil {
			return err
		}
		return writeAudit(ctx, tx, id, meta, model.AuditDelete, stored, nil)
	})
}

// detach clears column on every live row of m pointing at id
func detach(ctx context.Context, tx *gorm.DB, m interface{}, column string, id uint) error {
	return tx.WithContext(ctx).Model(m).
		Where(column+" = ?", id).
		Update(column, nil).Error
}
