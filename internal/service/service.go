// Package service runs every entity write as one transaction: access check,
// tenant resolution, normalization and validation, numbering, persistence
// and the audit row either all happen or none do.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/suteetoe/fleetbill/internal/access"
	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/identity"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/internal/repository"
	"github.com/suteetoe/fleetbill/internal/sequence"
	"github.com/suteetoe/fleetbill/pkg/database"
	"github.com/suteetoe/fleetbill/pkg/logger"
	"github.com/suteetoe/fleetbill/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Meta describes the request behind a write, for the audit trail
type Meta struct {
	IPAddress string
	UserAgent string
}

// env is shared by every resource of one Service
type env struct {
	db   *gorm.DB
	gate *access.Gate
	seq  *sequence.Generator
	now  func() time.Time
	cost int
}

// Service groups the resources exposed by the API
type Service struct {
	env *env

	Tenants   *TenantService
	Users     *UserService
	Branches  *Resource[model.Branch, *model.Branch]
	Owners    *Resource[model.VehicleOwner, *model.VehicleOwner]
	Vehicles  *Resource[model.Vehicle, *model.Vehicle]
	Parties   *Resource[model.Party, *model.Party]
	Drivers   *Resource[model.Driver, *model.Driver]
	Bills     *BillService
	Trips     *Resource[model.Trip, *model.Trip]
	Expenses  *Resource[model.Expense, *model.Expense]
	AuditLogs *repository.Store[model.AuditLog, *model.AuditLog]
}

// Option configures a Service
type Option func(*env)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(e *env) { e.now = now }
}

// WithPasswordCost sets the bcrypt cost of stored passwords
func WithPasswordCost(cost int) Option {
	return func(e *env) { e.cost = cost }
}

// New builds a Service over db
func New(db *gorm.DB, gate *access.Gate, seq *sequence.Generator, opts ...Option) *Service {
	e := &env{db: db, gate: gate, seq: seq, now: time.Now, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(e)
	}
	s := &Service{env: e}
	s.Tenants = newTenantService(e)
	s.Users = newUserService(e)
	s.Branches = newBranches(e)
	s.Owners = newOwners(e)
	s.Vehicles = newVehicles(e)
	s.Parties = newParties(e)
	s.Drivers = newDrivers(e)
	s.Bills = newBillService(e)
	s.Trips = newTrips(e)
	s.Expenses = newExpenses(e)
	s.AuditLogs = repository.NewStore[model.AuditLog](db, model.KindAuditLog, gate, "entity", "action")
	return s
}

// Gate returns the access gate used by the service
func (s *Service) Gate() *access.Gate { return s.env.gate }

// transaction runs fn in one database transaction and records the outcome
func (e *env) transaction(ctx context.Context, kind model.Kind, op string, fn func(tx *gorm.DB) error) error {
	done := prometheus.TrackDBOperation(string(kind) + "_" + op)
	err := e.db.WithContext(ctx).Transaction(fn)
	done()
	e.observe(ctx, kind, op, err)
	return err
}

// observe logs and counts the result of an operation
func (e *env) observe(ctx context.Context, kind model.Kind, op string, err error) {
	log := logger.FromContext(ctx)
	switch {
	case err == nil:
		prometheus.RecordEntityOperation(string(kind), op)
	case errors.Is(err, apperr.ErrPermission):
		prometheus.RecordPermissionDenied(string(kind), op)
		log.Info("Operation not permitted", zap.String("entity", string(kind)), zap.String("operation", op))
	case apperr.IsValidation(err):
		for _, field := range apperr.FieldNames(err) {
			prometheus.RecordValidationFailure(string(kind), field)
		}
		log.Debug("Validation failed", zap.String("entity", string(kind)), zap.Error(err))
	case errors.Is(err, apperr.ErrNotFound):
	default:
		log.Error("Operation failed", zap.String("entity", string(kind)), zap.String("operation", op), zap.Error(err))
	}
}

// constraintFields maps unique indexes to the field reported on conflict
var constraintFields = map[string]string{
	"idx_businesses_label":                "label",
	"idx_businesses_email":                "email",
	"idx_businesses_code":                 "code",
	"idx_branches_code":                   "code",
	"idx_users_username":                  "username",
	"idx_vehicle_owners_tenant_mobile":    "mobile_number",
	"idx_vehicles_tenant_number":          "vehicle_number",
	"idx_parties_tenant_name":             "name",
	"idx_parties_gst_no":                  "gst_no",
	"idx_drivers_tenant_mobile":           "mobile",
	"idx_drivers_tenant_alternate_mobile": "alternate_mobile",
	"idx_bills_bill_number":               "bill_number",
	"idx_trips_trip_number":               "trip_number",
}

// translate turns a unique violation that slipped past the validators, for
// example under a concurrent write, into a field conflict.
func translate(err error) error {
	if err == nil || !database.IsUniqueViolation(err) {
		return err
	}
	field := constraintFields[database.ConstraintName(err)]
	if field == "" {
		// sqlite: "UNIQUE constraint failed: vehicles.tenant_id, vehicles.vehicle_number (2067)"
		msg := err.Error()
		if i := strings.LastIndex(msg, "."); i >= 0 {
			field, _, _ = strings.Cut(strings.TrimSpace(msg[i+1:]), " ")
		}
	}
	return apperr.Conflict(field, "%s already exists", strings.ReplaceAll(field, "_", " "))
}

// missing hides whether an out-of-scope record exists
func missing(id identity.Identity) error {
	if id.IsSystemAdmin() {
		return apperr.ErrNotFound
	}
	return apperr.ErrPermission
}
