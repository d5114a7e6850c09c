package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/suteetoe/fleetbill/internal/access"
	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/identity"
	"github.com/suteetoe/fleetbill/internal/model"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListQuery holds paging and ordering for list calls
type ListQuery struct {
	Page     int
	PageSize int
	// Sort is a column name, prefixed with "-" for descending order.
	Sort string
}

func (q ListQuery) normalized() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// Page is one page of a scoped listing
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// Filter narrows a listing further. Filters run after the identity scope,
// so they can never widen it.
type Filter func(*gorm.DB) *gorm.DB

// Store is the scoped repository for one entity type
type Store[T any, PT interface {
	*T
	model.Entity
}] struct {
	db       *gorm.DB
	kind     model.Kind
	gate     *access.Gate
	sortable map[string]bool
}

// NewStore returns a Store for kind. sortable lists the columns a caller may
// order by in addition to id and created_at.
func NewStore[T any, PT interface {
	*T
	model.Entity
}](db *gorm.DB, kind model.Kind, gate *access.Gate, sortable ...string) *Store[T, PT] {
	cols := map[string]bool{"id": true, "created_at": true, "updated_at": true}
	for _, c := range sortable {
		cols[c] = true
	}
	return &Store[T, PT]{db: db, kind: kind, gate: gate, sortable: cols}
}

// Kind returns the entity kind served by the store
func (s *Store[T, PT]) Kind() model.Kind { return s.kind }

// WithDB returns a copy of the store bound to db, typically a transaction
func (s *Store[T, PT]) WithDB(db *gorm.DB) *Store[T, PT] {
	cp := *s
	cp.db = db
	return &cp
}

// List returns the page of records id may see
func (s *Store[T, PT]) List(ctx context.Context, id identity.Identity, q ListQuery, filters ...Filter) (*Page[T], error) {
	if err := s.gate.AuthorizeList(id, s.kind); err != nil {
		return nil, err
	}
	q = q.normalized()

	query := Scope(id, s.kind)(s.db.WithContext(ctx).Model(new(T)))
	for _, f := range filters {
		query = f(query)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count %s: %w", s.kind, err)
	}

	items := make([]T, 0, q.PageSize)
	err := query.
		Order(s.order(q.Sort)).
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.kind, err)
	}

	return &Page[T]{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

func (s *Store[T, PT]) order(sort string) string {
	desc := strings.HasPrefix(sort, "-")
	col := strings.TrimPrefix(sort, "-")
	if !s.sortable[col] {
		return "id DESC"
	}
	if desc {
		return col + " DESC, id DESC"
	}
	return col + " ASC, id ASC"
}

// Get loads one record for id. A record outside id's scope is reported as
// apperr.ErrPermission, the same answer as a missing record, so tenants
// cannot discover each other's data. System admins get apperr.ErrNotFound.
func (s *Store[T, PT]) Get(ctx context.Context, id identity.Identity, pk uint) (PT, error) {
	rec, err := s.Find(ctx, pk)
	if errors.Is(err, apperr.ErrNotFound) && !id.IsSystemAdmin() {
		return nil, apperr.ErrPermission
	}
	if err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizeView(id, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Find loads a record by primary key without scoping. It is meant for
// validators and services that check tenancy themselves.
func (s *Store[T, PT]) Find(ctx context.Context, pk uint) (PT, error) {
	if pk == 0 {
		return nil, apperr.ErrNotFound
	}
	rec := PT(new(T))
	err := s.db.WithContext(ctx).First(rec, pk).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %d: %w", s.kind, pk, err)
	}
	return rec, nil
}

// FindForUpdate is Find with a row lock when the dialect supports one
func (s *Store[T, PT]) FindForUpdate(ctx context.Context, pk uint) (PT, error) {
	return s.WithDB(LockForUpdate(s.db)).Find(ctx, pk)
}

// Create inserts rec
func (s *Store[T, PT]) Create(ctx context.Context, rec PT) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create %s: %w", s.kind, err)
	}
	return nil
}

// Save writes every column of rec except created_at
func (s *Store[T, PT]) Save(ctx context.Context, rec PT) error {
	if err := s.db.WithContext(ctx).Omit("created_at").Save(rec).Error; err != nil {
		return fmt.Errorf("save %s %d: %w", s.kind, rec.EntityID(), err)
	}
	return nil
}

// Delete soft deletes rec
func (s *Store[T, PT]) Delete(ctx context.Context, rec PT) error {
	if err := s.db.WithContext(ctx).Delete(rec).Error; err != nil {
		return fmt.Errorf("delete %s %d: %w", s.kind, rec.EntityID(), err)
	}
	return nil
}
