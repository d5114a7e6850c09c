// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/fleetbill/internal/identity"
	"github.com/suteetoe/fleetbill/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory sqlite database with every model migrated.
// A single connection is used so transactions serialise like row locks would.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:fleetbill_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

func uintPtr(v uint) *uint { return &v }

// Tenant inserts an active tenant with default limits
func Tenant(t testing.TB, db *gorm.DB, name, label string) *model.Business {
	t.Helper()
	b := &model.Business{
		Name:          name,
		Label:         label,
		Code:          strings.ToUpper(fmt.Sprintf("T%07d", dbSeq.Add(1))),
		MobileNumber:  "9000000000",
		Status:        model.BusinessActive,
		MaxStaffUsers: model.DefaultMaxStaffUsers,
		MaxVehicles:   model.DefaultMaxVehicles,
		MaxBranches:   model.DefaultMaxBranches,
	}
	require.NoError(t, db.Create(b).Error)
	return b
}

// User inserts a user and returns it with its identity
func User(t testing.TB, db *gorm.DB, username string, role model.Role, tenant *model.Business) (*model.User, identity.Identity) {
	t.Helper()
	u := &model.User{
		Username:      username,
		Password:      "x",
		Role:          role,
		IsActiveStaff: true,
	}
	if tenant != nil {
		u.TenantID = uintPtr(tenant.ID)
	}
	require.NoError(t, db.Create(u).Error)
	return u, identity.FromUser(u)
}

// Admin inserts a system admin
func Admin(t testing.TB, db *gorm.DB) identity.Identity {
	t.Helper()
	_, id := User(t, db, fmt.Sprintf("admin%d", dbSeq.Add(1)), model.RoleAdmin, nil)
	return id
}

// Owner inserts a business owner of tenant
func Owner(t testing.TB, db *gorm.DB, tenant *model.Business) identity.Identity {
	t.Helper()
	_, id := User(t, db, fmt.Sprintf("owner%d", dbSeq.Add(1)), model.RoleBusinessOwner, tenant)
	return id
}

// Staff inserts a staff member of tenant
func Staff(t testing.TB, db *gorm.DB, tenant *model.Business) identity.Identity {
	t.Helper()
	_, id := User(t, db, fmt.Sprintf("staff%d", dbSeq.Add(1)), model.RoleStaff, tenant)
	return id
}

// Vehicle inserts a vehicle directly, bypassing validation
func Vehicle(t testing.TB, db *gorm.DB, tenant *model.Business, number string) *model.Vehicle {
	t.Helper()
	v := &model.Vehicle{TenantID: tenant.ID, VehicleNumber: number, Status: model.VehicleActive}
	require.NoError(t, db.Create(v).Error)
	return v
}
