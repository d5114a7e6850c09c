package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/fleetbill/internal/model"
	"gorm.io/gorm"
)

// TenantStats are the live counters of one tenant. They are aggregated on
// every call and never stored.
type TenantStats struct {
	TenantID           uint            `json:"tenant_id"`
	TotalStaff         int64           `json:"total_staff"`
	MaxStaffUsers      int             `json:"max_staff_users"`
	TotalVehicles      int64           `json:"total_vehicles"`
	MaxVehicles        int             `json:"max_vehicles"`
	TotalBranches      int64           `json:"total_branches"`
	MaxBranches        int             `json:"max_branches"`
	TotalBills         int64           `json:"total_bills"`
	TotalDrivers       int64           `json:"total_drivers"`
	TotalParties       int64           `json:"total_parties"`
	TotalVehicleOwners int64           `json:"total_vehicle_owners"`
	TotalTrips         int64           `json:"total_trips"`
	ActiveTrips        int64           `json:"active_trips"`
	PendingCommissions decimal.Decimal `json:"pending_commissions"`
	MonthlyRevenue     decimal.Decimal `json:"monthly_revenue"`
	MonthlyExpenses    decimal.Decimal `json:"monthly_expenses"`
}

// Counter aggregates tenant counters for stats and limit checks
type Counter struct {
	db *gorm.DB
}

// NewCounter returns a Counter reading through db
func NewCounter(db *gorm.DB) *Counter { return &Counter{db: db} }

// WithDB returns a Counter bound to db, typically a transaction
func (c *Counter) WithDB(db *gorm.DB) *Counter { return &Counter{db: db} }

// ActiveStaff counts active staff and branch managers of tenant
func (c *Counter) ActiveStaff(ctx context.Context, tenant uint) (int64, error) {
	var n int64
	err := c.db.WithContext(ctx).Model(&model.User{}).
		Where("tenant_id = ? AND role IN ? AND is_active_staff = ? AND is_superuser = ?",
			tenant, []model.Role{model.RoleStaff, model.RoleBranchManager}, true, false).
		Count(&n).Error
	return n, err
}

// Vehicles counts vehicles of tenant
func (c *Counter) Vehicles(ctx context.Context, tenant uint) (int64, error) {
	return c.count(ctx, &model.Vehicle{}, tenant)
}

// ActiveBranches counts active branches of tenant
func (c *Counter) ActiveBranches(ctx context.Context, tenant uint) (int64, error) {
	var n int64
	err := c.db.WithContext(ctx).Model(&model.Branch{}).
		Where("tenant_id = ? AND is_active = ?", tenant, true).
		Count(&n).Error
	return n, err
}

func (c *Counter) count(ctx context.Context, m interface{}, tenant uint, conds ...interface{}) (int64, error) {
	var n int64
	q := c.db.WithContext(ctx).Model(m).Where("tenant_id = ?", tenant)
	if len(conds) > 0 {
		q = q.Where(conds[0], conds[1:]...)
	}
	err := q.Count(&n).Error
	return n, err
}

func (c *Counter) sum(ctx context.Context, m interface{}, column string, tenant uint, conds ...interface{}) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	q := c.db.WithContext(ctx).Model(m).Where("tenant_id = ?", tenant)
	if len(conds) > 0 {
		q = q.Where(conds[0], conds[1:]...)
	}
	if err := q.Select("SUM(" + column + ")").Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// Stats aggregates every counter of tenant. now selects the month used for
// the monthly figures.
func (c *Counter) Stats(ctx context.Context, b *model.Business, now time.Time) (*TenantStats, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)
	st := &TenantStats{
		TenantID:      b.ID,
		MaxStaffUsers: b.MaxStaffUsers,
		MaxVehicles:   b.MaxVehicles,
		MaxBranches:   b.MaxBranches,
	}

	counts := []struct {
		dst   *int64
		fn    func() (int64, error)
		label string
	}{
		{&st.TotalStaff, func() (int64, error) { return c.ActiveStaff(ctx, b.ID) }, "staff"},
		{&st.TotalVehicles, func() (int64, error) { return c.Vehicles(ctx, b.ID) }, "vehicles"},
		{&st.TotalBranches, func() (int64, error) { return c.ActiveBranches(ctx, b.ID) }, "branches"},
		{&st.TotalBills, func() (int64, error) { return c.count(ctx, &model.Bill{}, b.ID) }, "bills"},
		{&st.TotalDrivers, func() (int64, error) { return c.count(ctx, &model.Driver{}, b.ID) }, "drivers"},
		{&st.TotalParties, func() (int64, error) { return c.count(ctx, &model.Party{}, b.ID) }, "parties"},
		{&st.TotalVehicleOwners, func() (int64, error) { return c.count(ctx, &model.VehicleOwner{}, b.ID) }, "vehicle owners"},
		{&st.TotalTrips, func() (int64, error) { return c.count(ctx, &model.Trip{}, b.ID) }, "trips"},
		{&st.ActiveTrips, func() (int64, error) {
			return c.count(ctx, &model.Trip{}, b.ID, "status = ?", model.TripInProgress)
		}, "active trips"},
	}
	for _, cnt := range counts {
		n, err := cnt.fn()
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", cnt.label, err)
		}
		*cnt.dst = n
	}

	var err error
	if st.PendingCommissions, err = c.sum(ctx, &model.Bill{}, "commission_pending", b.ID); err != nil {
		return nil, fmt.Errorf("sum pending commissions: %w", err)
	}
	if st.MonthlyRevenue, err = c.sum(ctx, &model.Bill{}, "rent_amount", b.ID,
		"bill_date >= ? AND bill_date < ?", monthStart, monthEnd); err != nil {
		return nil, fmt.Errorf("sum monthly revenue: %w", err)
	}
	if st.MonthlyExpenses, err = c.sum(ctx, &model.Expense{}, "amount", b.ID,
		"expense_date >= ? AND expense_date < ?", monthStart, monthEnd); err != nil {
		return nil, fmt.Errorf("sum monthly expenses: %w", err)
	}

	return st, nil
}
