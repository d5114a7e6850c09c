package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/identity"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/internal/repository"
	"github.com/suteetoe/fleetbill/internal/validation"
	"github.com/suteetoe/fleetbill/pkg/config"
	"github.com/suteetoe/fleetbill/pkg/logger"
	"github.com/suteetoe/fleetbill/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

var (
	// ErrInvalidCredentials is returned for an unknown user or a wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is returned when an inactive staff member logs in
	ErrAccountDisabled = errors.New("account disabled")
)

// UserService manages accounts and logins
type UserService struct {
	env   *env
	store *repository.Store[model.User, *model.User]
}

func newUserService(e *env) *UserService {
	return &UserService{
		env:   e,
		store: repository.NewStore[model.User](e.db, model.KindUser, e.gate, "username", "role", "last_login_at"),
	}
}

// List returns the users id may see
func (s *UserService) List(ctx context.Context, id identity.Identity, q repository.ListQuery) (*repository.Page[model.User], error) {
	return s.store.List(ctx, id, q)
}

// Get returns one user
func (s *UserService) Get(ctx context.Context, id identity.Identity, pk uint) (*model.User, error) {
	return s.store.Get(ctx, id, pk)
}

// Me returns the stored record of the acting user
func (s *UserService) Me(ctx context.Context, id identity.Identity) (*model.User, error) {
	if !id.IsAuthenticated() {
		return nil, apperr.ErrPermission
	}
	return s.store.Find(ctx, id.UserID)
}

// Load returns a user by primary key without access checks. It backs the
// authentication middleware, which has no identity yet.
func (s *UserService) Load(ctx context.Context, pk uint) (*model.User, error) {
	return s.store.Find(ctx, pk)
}

// Create adds an account with the given password. Business owners create
// staff and branch managers of their own tenant only.
func (s *UserService) Create(ctx context.Context, id identity.Identity, meta Meta, u *model.User, password string) (*model.User, error) {
	err := s.env.transaction(ctx, model.KindUser, "create", func(tx *gorm.DB) error {
		if err := s.env.gate.AuthorizeCreate(id, model.KindUser); err != nil {
			return err
		}
		u.ID = 0
		if !id.Superuser {
			u.IsSuperuser = false
		}
		if !id.IsSystemAdmin() {
			tenant := id.Tenant()
			u.TenantID = &tenant
			if !u.Role.CountsAsStaff() {
				return apperr.Invalid("role", "you can only create staff or branch managers")
			}
		}

		hash, err := s.hash(password)
		if err != nil {
			return err
		}
		u.Password = hash

		if err := validation.User(ctx, tx, u); err != nil {
			return err
		}
		if err := translate(s.store.WithDB(tx).Create(ctx, u)); err != nil {
			return err
		}
		return writeAudit(ctx, tx, id, meta, model.AuditCreate, u, created(u))
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) hash(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", apperr.Invalid("password", "password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.env.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Update changes an account. Fields the acting identity may not set are
// restored from the stored record; a non-empty password replaces the
// current one.
func (s *UserService) Update(ctx context.Context, id identity.Identity, meta Meta, pk uint, apply func(*model.User) error, password string) (*model.User, error) {
	var u *model.User
	err := s.env.transaction(ctx, model.KindUser, "update", func(tx *gorm.DB) error {
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
		u = &cp
		if err := apply(u); err != nil {
			return err
		}
		if u.ID != stored.ID {
			return apperr.Invalid("id", "id cannot be changed")
		}
		u.Password = stored.Password
		u.LastLoginAt = stored.LastLoginAt

		fields := s.env.gate.FieldVisibility(id, model.KindUser)
		if fields.IsReadOnly("tenant_id") {
			u.TenantID = stored.TenantID
		}
		if fields.IsReadOnly("is_superuser") {
			u.IsSuperuser = stored.IsSuperuser
		}
		if fields.IsReadOnly("role") {
			u.Role = stored.Role
		}
		if fields.IsReadOnly("branch_id") {
			u.BranchID = stored.BranchID
		}
		if fields.IsReadOnly("is_active_staff") {
			u.IsActiveStaff = stored.IsActiveStaff
		}
		if !id.IsSystemAdmin() && u.Role != stored.Role {
			if stored.ID == id.UserID || !u.Role.CountsAsStaff() {
				return apperr.Invalid("role", "you cannot assign this role")
			}
		}

		if password != "" {
			hash, err := s.hash(password)
			if err != nil {
				return err
			}
			u.Password = hash
		}

		if err := validation.User(ctx, tx, u); err != nil {
			return err
		}
		if err := translate(s.store.WithDB(tx).Save(ctx, u)); err != nil {
			return err
		}
		return writeAudit(ctx, tx, id, meta, model.AuditUpdate, u, diff(stored, u))
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Delete soft deletes an account. Usernames of deleted accounts stay taken.
func (s *UserService) Delete(ctx context.Context, id identity.Identity, meta Meta, pk uint) error {
	return s.env.transaction(ctx, model.KindUser, "delete", func(tx *gorm.DB) error {
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
		if err := s.store.WithDB(tx).Delete(ctx, stored); err != nil {
			return err
		}
		return writeAudit(ctx, tx, id, meta, model.AuditDelete, stored, nil)
	})
}

// Authenticate checks a username and password and records the login time
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	log := logger.FromContext(ctx)

	var u model.User
	err := s.env.db.WithContext(ctx).Where("username = ?", username).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Info("Login for unknown user", zap.String("username", username))
		prometheus.RecordLogin("unknown_user")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		log.Info("Invalid password", zap.String("username", username))
		prometheus.RecordLogin("invalid_password")
		return nil, ErrInvalidCredentials
	}
	if u.Role.CountsAsStaff() && !u.IsActiveStaff && !u.IsSuperuser {
		prometheus.RecordLogin("disabled")
		return nil, ErrAccountDisabled
	}

	now := s.env.now()
	if err := s.env.db.WithContext(ctx).Model(&u).UpdateColumn("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	u.LastLoginAt = &now
	prometheus.RecordLogin("success")
	return &u, nil
}

// Bootstrap creates the configured system admin unless a superuser already
// exists.
func (s *UserService) Bootstrap(ctx context.Context, cfg config.BootstrapConfig) error {
	if cfg.AdminUsername == "" {
		return nil
	}
	log := logger.FromContext(ctx)

	var n int64
	if err := s.env.db.WithContext(ctx).Model(&model.User{}).Where("is_superuser = ?", true).Count(&n).Error; err != nil {
		return fmt.Errorf("count superusers: %w", err)
	}
	if n > 0 {
		log.Debug("Superuser exists, skipping bootstrap")
		return nil
	}

	hash, err := s.hash(cfg.AdminPassword)
	if err != nil {
		return err
	}
	u := &model.User{
		Username:      cfg.AdminUsername,
		Email:         cfg.AdminEmail,
		Password:      hash,
		Role:          model.RoleAdmin,
		IsSuperuser:   true,
		IsActiveStaff: true,
	}
	err = s.env.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := validation.User(ctx, tx, u); err != nil {
			return err
		}
		return translate(s.store.WithDB(tx).Create(ctx, u))
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	log.Info("Bootstrap admin created", zap.String("username", u.Username))
	return nil
}
