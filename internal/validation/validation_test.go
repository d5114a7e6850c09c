package validation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/internal/repository"
	"github.com/suteetoe/fleetbill/internal/testutil"
	"gorm.io/gorm"
)

func uintPtr(v uint) *uint { return &v }

func strPtr(s string) *string { return &s }

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func fieldsOf(err error) []string { return apperr.FieldNames(err) }

func TestFormats(t *testing.T) {
	assert.True(t, isMobile("9998887776"))
	assert.False(t, isMobile("999888777"))
	assert.False(t, isMobile("99988877a6"))

	assert.True(t, isGSTIN("27AAPFU0939F1ZV"))
	assert.False(t, isGSTIN("27AAPFU0939F1Z"))
	assert.False(t, isGSTIN("27aapfu0939f1zv"))

	assert.Equal(t, "MH12AB1234", NormalizeVehicleNumber(" mh 12 ab\t1234 "))
	assert.Empty(t, vehicleNumberProblem("MH12AB1234"))
	assert.Contains(t, vehicleNumberProblem("MH12"), "too short")
	assert.Contains(t, vehicleNumberProblem("MH12-AB1234"), "letters and numbers")
	assert.Contains(t, vehicleNumberProblem("ABCDEFGHIJ"), "number")
	assert.Contains(t, vehicleNumberProblem("1234567890"), "letter")

	assert.Nil(t, NormalizeOptional(strPtr("   ")))
	assert.Equal(t, "27AAPFU0939F1ZV", *NormalizeGST(strPtr(" 27aapfu0939f1zv ")))

	type dto struct {
		Mobile string `validate:"omitempty,mobile"`
		GST    string `validate:"omitempty,gstin"`
	}
	assert.NoError(t, Formats().Struct(dto{Mobile: "9998887776"}))
	assert.Error(t, Formats().Struct(dto{Mobile: "12"}))
}

func TestNormalizeBill(t *testing.T) {
	tests := []struct {
		name              string
		bill              model.Bill
		pending           int64
		charge            int64
		commissionPending int64
	}{
		{
			name:    "pending is rent minus advance",
			bill:    model.Bill{RentAmount: dec(10000), AdvanceAmount: dec(3000)},
			pending: 7000,
		},
		{
			name:              "charge derived from percentage",
			bill:              model.Bill{RentAmount: dec(10000), Commission: dec(5), CommissionReceived: dec(100)},
			pending:           10000,
			charge:            500,
			commissionPending: 400,
		},
		{
			name:              "explicit charge wins over percentage",
			bill:              model.Bill{RentAmount: dec(10000), Commission: dec(5), CommissionCharge: dec(700)},
			pending:           10000,
			charge:            700,
			commissionPending: 700,
		},
		{
			name:    "supplied derived values are ignored",
			bill:    model.Bill{RentAmount: dec(500), AdvanceAmount: dec(100), PendingAmount: dec(1), CommissionPending: dec(99)},
			pending: 400,
		},
		{
			name:              "derived charge is rounded to whole units",
			bill:              model.Bill{RentAmount: dec(1234), Commission: decimal.RequireFromString("2.5")},
			pending:           1234,
			charge:            31,
			commissionPending: 31,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.bill
			NormalizeBill(&b)
			assert.True(t, dec(tt.pending).Equal(b.PendingAmount), "pending %s", b.PendingAmount)
			assert.True(t, dec(tt.charge).Equal(b.CommissionCharge), "charge %s", b.CommissionCharge)
			assert.True(t, dec(tt.commissionPending).Equal(b.CommissionPending), "commission pending %s", b.CommissionPending)

			// running it again changes nothing
			again := b
			NormalizeBill(&again)
			assert.True(t, b.PendingAmount.Equal(again.PendingAmount))
			assert.True(t, b.CommissionPending.Equal(again.CommissionPending))
		})
	}
}

func TestCheckBillBounds(t *testing.T) {
	today := time.Now()
	tests := []struct {
		name   string
		bill   model.Bill
		fields []string
		kind   error
	}{
		{
			name:   "advance above rent",
			bill:   model.Bill{RentAmount: dec(5000), AdvanceAmount: dec(6000)},
			fields: []string{"advance_amount"},
			kind:   apperr.ErrBounds,
		},
		{
			name:   "received above charge",
			bill:   model.Bill{RentAmount: dec(5000), CommissionCharge: dec(100), CommissionReceived: dec(150)},
			fields: []string{"commission_received"},
			kind:   apperr.ErrBounds,
		},
		{
			name:   "received date without amount",
			bill:   model.Bill{RentAmount: dec(5000), CommissionReceivedDate: &today},
			fields: []string{"commission_received_date"},
			kind:   apperr.ErrBounds,
		},
		{
			name:   "negative rent",
			bill:   model.Bill{RentAmount: dec(-1)},
			fields: []string{"rent_amount"},
			kind:   apperr.ErrBounds,
		},
		{
			name:   "fractional rent",
			bill:   model.Bill{RentAmount: decimal.RequireFromString("100.5")},
			fields: []string{"rent_amount"},
			kind:   apperr.ErrInvalid,
		},
		{
			name:   "commission above 100 percent",
			bill:   model.Bill{RentAmount: dec(100), Commission: dec(101), CommissionCharge: dec(1)},
			fields: []string{"commission"},
			kind:   apperr.ErrBounds,
		},
		{
			name: "valid",
			bill: model.Bill{RentAmount: dec(5000), AdvanceAmount: dec(5000), Commission: dec(10),
				CommissionReceived: dec(500), CommissionReceivedDate: &today},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.bill
			NormalizeBill(&b)
			err := CheckBillBounds(&b)
			if tt.fields == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.fields, fieldsOf(err))
		})
	}
}

func newBill(tenant *model.Business, vehicle *model.Vehicle) *model.Bill {
	return &model.Bill{
		TenantID:     tenant.ID,
		VehicleID:    vehicle.ID,
		FromLocation: "Pune",
		ToLocation:   "Mumbai",
		RentAmount:   dec(10000),
		BillDate:     time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
	}
}

func TestBill_AdvanceAboveRent(t *testing.T) {
	db := testutil.NewDB(t)
	x := testutil.Tenant(t, db, "X", "X")
	v := testutil.Vehicle(t, db, x, "MH12AB1234")

	b := newBill(x, v)
	b.RentAmount = dec(5000)
	b.AdvanceAmount = dec(6000)
	err := Bill(context.Background(), db, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrBounds)
	assert.Equal(t, []string{"advance_amount"}, fieldsOf(err))
}

func TestBill_ReferencesMustShareTenant(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	x := testutil.Tenant(t, db, "X", "X")
	y := testutil.Tenant(t, db, "Y", "Y")
	v := testutil.Vehicle(t, db, x, "MH12AB1234")
	foreignVehicle := testutil.Vehicle(t, db, y, "KA01CD9999")
	foreignParty := &model.Party{TenantID: y.ID, Name: "Other"}
	require.NoError(t, db.Create(foreignParty).Error)
	foreignOwner := &model.VehicleOwner{TenantID: y.ID, Name: "O", MobileNumber: "9000000001"}
	require.NoError(t, db.Create(foreignOwner).Error)

	b := newBill(x, v)
	b.PartyID = &foreignParty.ID
	b.ReferenceID = &foreignOwner.ID
	err := Bill(ctx, db, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConsistency)
	assert.Equal(t, []string{"party", "reference"}, fieldsOf(err))

	b = newBill(x, foreignVehicle)
	err = Bill(ctx, db, b)
	assert.Equal(t, []string{"vehicle"}, fieldsOf(err))

	b = newBill(x, v)
	b.DriverID = uintPtr(4242)
	err = Bill(ctx, db, b)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	assert.Equal(t, []string{"driver"}, fieldsOf(err))
}

func TestVehicle_OwnerFromOtherTenant(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	x := testutil.Tenant(t, db, "X", "X")
	y := testutil.Tenant(t, db, "Y", "Y")
	owner := &model.VehicleOwner{TenantID: x.ID, Name: "O", MobileNumber: "9000000001"}
	require.NoError(t, db.Create(owner).Error)

	v := &model.Vehicle{TenantID: y.ID, OwnerID: &owner.ID, VehicleNumber: "mh12ab1234"}
	err := Vehicle(ctx, db, v)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConsistency)
	assert.Equal(t, []string{"owner"}, fieldsOf(err))
	assert.Equal(t, "MH12AB1234", v.VehicleNumber)

	var n int64
	require.NoError(t, db.Model(&model.Vehicle{}).Count(&n).Error)
	assert.Zero(t, n)

	v.TenantID = x.ID
	assert.NoError(t, Vehicle(ctx, db, v))
}

func TestVehicle_NumberUniquePerTenant(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	x := testutil.Tenant(t, db, "X", "X")
	y := testutil.Tenant(t, db, "Y", "Y")
	existing := testutil.Vehicle(t, db, x, "MH12AB1234")

	err := Vehicle(ctx, db, &model.Vehicle{TenantID: x.ID, VehicleNumber: "MH 12 AB 1234"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, []string{"vehicle_number"}, fieldsOf(err))

	assert.NoError(t, Vehicle(ctx, db, &model.Vehicle{TenantID: y.ID, VehicleNumber: "MH12AB1234"}))

	// updating the record itself is not a conflict
	assert.NoError(t, Vehicle(ctx, db, existing))
}

func TestVehicle_Limit(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	x := testutil.Tenant(t, db, "X", "X")
	require.NoError(t, db.Model(x).Update("max_vehicles", 1).Error)
	testutil.Vehicle(t, db, x, "MH12AB1234")

	err := Vehicle(ctx, db, &model.Vehicle{TenantID: x.ID, VehicleNumber: "MH12AB9999"})
	assert.ErrorIs(t, err, apperr.ErrLimitReached)
	assert.Equal(t, []string{repository.TenantField}, fieldsOf(err))

	// suspension does not change enforcement
	require.NoError(t, db.Model(x).Update("status", model.BusinessSuspended).Error)
	err = Vehicle(ctx, db, &model.Vehicle{TenantID: x.ID, VehicleNumber: "MH12AB9999"})
	assert.ErrorIs(t, err, apperr.ErrLimitReached)
}

func TestLimits_LockTenantRow(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	x := testutil.Tenant(t, db, "X", "X")

	var locked []string
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:record_locks", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Clauses["FOR"]; ok {
			locked = append(locked, tx.Statement.Table)
		}
	}))

	checks := map[string]func(context.Context, *gorm.DB, uint) error{
		"vehicles": VehicleLimit,
		"branches": BranchLimit,
		"staff":    StaffLimit,
	}
	for name, check := range checks {
		t.Run(name, func(t *testing.T) {
			locked = nil
			err := db.Transaction(func(tx *gorm.DB) error { return check(ctx, tx, x.ID) })
			require.NoError(t, err)
			assert.Equal(t, []string{"businesses"}, locked)
		})
	}
}

func TestDriver_MobileUniquePerTenant(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	x := testutil.Tenant(t, db, "X", "X")
	y := testutil.Tenant(t, db, "Y", "Y")
	first := &model.Driver{TenantID: x.ID, Name: "Ravi", Mobile: strPtr("9998887776")}
	require.NoError(t, Driver(ctx, db, first))
	require.NoError(t, db.Create(first).Error)

	second := &model.Driver{TenantID: x.ID, Name: "Sunil", Mobile: strPtr("9998887776")}
	err := Driver(ctx, db, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, []string{"mobile"}, fieldsOf(err))

	// the verdict does not change on a retry
	assert.Equal(t, err.Error(), Driver(ctx, db, second).Error())

	other := &model.Driver{TenantID: y.ID, Name: "Sunil", Mobile: strPtr("9998887776")}
	assert.NoError(t, Driver(ctx, db, other))

	fresh := &model.Driver{TenantID: x.ID, Name: "Sunil", Mobile: strPtr("9998887700")}
	assert.NoError(t, Driver(ctx, db, fresh))
}

func TestDriver_NullMobilesNeverConflict(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	x := testutil.Tenant(t, db, "X", "X")
	require.NoError(t, db.Create(&model.Driver{TenantID: x.ID, Name: "A", Status: model.DriverActive}).Error)

	d := &model.Driver{TenantID: x.ID, Name: "B", Mobile: strPtr("  ")}
	require.NoError(t, Driver(ctx, db, d))
	assert.Nil(t, d.Mobile)
	assert.Equal(t, model.DriverActive, d.Status)

	d = &model.Driver{TenantID: x.ID, Name: "C", Mobile: strPtr("9000000001"), AlternateMobile: strPtr("9000000001")}
	assert.Equal(t, []string{"alternate_mobile"}, fieldsOf(Driver(ctx, db, d)))
}

func TestParty_Uniqueness(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	x := testutil.Tenant(t, db, "X", "X")
	y := testutil.Tenant(t, db, "Y", "Y")
	existing := &model.Party{TenantID: x.ID, Name: "Tata Steel", GSTNo: strPtr("27AAPFU0939F1ZV"),
		Mobile: strPtr("9000000001"), AlternateMobile: strPtr("9000000002")}
	require.NoError(t, db.Create(existing).Error)

	tests := []struct {
		name   string
		party  *model.Party
		fields []string
	}{
		{"same name same tenant", &model.Party{TenantID: x.ID, Name: "Tata Steel"}, []string{"name"}},
		{"same name other tenant", &model.Party{TenantID: y.ID, Name: "Tata Steel"}, nil},
		{"gst is global", &model.Party{TenantID: y.ID, Name: "T", GSTNo: strPtr("27aapfu0939f1zv")}, []string{"gst_no"}},
		{"mobile matches alternate", &model.Party{TenantID: x.ID, Name: "T", Mobile: strPtr("9000000002")}, []string{"mobile"}},
		{"alternate matches mobile", &model.Party{TenantID: x.ID, Name: "T", AlternateMobile: strPtr("9000000001")}, []string{"alternate_mobile"}},
		{"bad gst", &model.Party{TenantID: x.ID, Name: "T", GSTNo: strPtr("123")}, []string{"gst_no"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Party(ctx, db, tt.party)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.fields, fieldsOf(err))
		})
	}

	// soft deleted parties free their name
	require.NoError(t, db.Delete(existing).Error)
	assert.NoError(t, Party(ctx, db, &model.Party{TenantID: x.ID, Name: "Tata Steel"}))
}

func TestVehicleOwner_Rules(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	x := testutil.Tenant(t, db, "X", "X")
	require.NoError(t, db.Create(&model.VehicleOwner{TenantID: x.ID, Name: "O", MobileNumber: "9000000001"}).Error)

	err := VehicleOwner(ctx, db, &model.VehicleOwner{TenantID: x.ID, Name: "P", MobileNumber: "9000000001"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	err = VehicleOwner(ctx, db, &model.VehicleOwner{TenantID: x.ID, MobileNumber: "12345"})
	assert.Equal(t, []string{"mobile_number", "name"}, fieldsOf(err))
}

func newBranch(t *testing.T, db *gorm.DB, tenant *model.Business, code string) *model.Branch {
	t.Helper()
	b := &model.Branch{TenantID: tenant.ID, Name: "Branch " + code, Code: code, IsActive: true}
	require.NoError(t, db.Create(b).Error)
	return b
}

func TestUser_RoleInvariants(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	x := testutil.Tenant(t, db, "X", "X")
	y := testutil.Tenant(t, db, "Y", "Y")
	branchX := newBranch(t, db, x, "BRX001")
	branchY := newBranch(t, db, y, "BRY001")

	tests := []struct {
		name   string
		user   model.User
		fields []string
		kind   error
	}{
		{"staff without tenant", model.User{Username: "s1", Role: model.RoleStaff, IsActiveStaff: true},
			[]string{repository.TenantField}, apperr.ErrTenantRequired},
		{"admin with tenant", model.User{Username: "a1", Role: model.RoleAdmin, TenantID: uintPtr(x.ID)},
			[]string{repository.TenantField}, apperr.ErrInvalid},
		{"owner without tenant", model.User{Username: "o1", Role: model.RoleBusinessOwner},
			[]string{repository.TenantField}, apperr.ErrTenantRequired},
		{"manager without branch", model.User{Username: "m1", Role: model.RoleBranchManager, TenantID: uintPtr(x.ID)},
			[]string{"branch"}, apperr.ErrInvalid},
		{"manager of foreign branch", model.User{Username: "m2", Role: model.RoleBranchManager,
			TenantID: uintPtr(x.ID), BranchID: uintPtr(branchY.ID)}, []string{"branch"}, apperr.ErrConsistency},
		{"staff of foreign branch", model.User{Username: "s2", Role: model.RoleStaff,
			TenantID: uintPtr(x.ID), BranchID: uintPtr(branchY.ID)}, []string{"branch"}, apperr.ErrConsistency},
		{"unknown role", model.User{Username: "u1", Role: "auditor"}, []string{"role"}, apperr.ErrInvalid},
		{"superuser is exempt", model.User{Username: "root", Role: model.RoleStaff, IsSuperuser: true}, nil, nil},
		{"valid admin", model.User{Username: "a2", Role: model.RoleAdmin}, nil, nil},
		{"valid manager", model.User{Username: "m3", Role: model.RoleBranchManager,
			TenantID: uintPtr(x.ID), BranchID: uintPtr(branchX.ID)}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			err := User(ctx, db, &u)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.fields, fieldsOf(err))
		})
	}
}

func TestUser_UsernameAndStaffLimit(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	x := testutil.Tenant(t, db, "X", "X")
	require.NoError(t, db.Model(x).Update("max_staff_users", 1).Error)
	existing, _ := testutil.User(t, db, "ravi", model.RoleStaff, x)

	err := User(ctx, db, &model.User{Username: "ravi", Role: model.RoleBusinessOwner, TenantID: uintPtr(x.ID)})
	assert.Equal(t, []string{"username"}, fieldsOf(err))

	err = User(ctx, db, &model.User{Username: "sunil", Role: model.RoleStaff, TenantID: uintPtr(x.ID), IsActiveStaff: true})
	assert.ErrorIs(t, err, apperr.ErrLimitReached)
	assert.Equal(t, []string{"role"}, fieldsOf(err))

	// inactive staff and owners do not use the allowance
	assert.NoError(t, User(ctx, db, &model.User{Username: "sunil", Role: model.RoleStaff, TenantID: uintPtr(x.ID)}))
	assert.NoError(t, User(ctx, db, &model.User{Username: "owner", Role: model.RoleBusinessOwner, TenantID: uintPtr(x.ID)}))

	// existing members are never re-checked
	assert.NoError(t, User(ctx, db, existing))
}

func TestBusiness_Rules(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	testutil.Tenant(t, db, "Acme", "Acme Transport")

	b := &model.Business{Name: "Other", Label: "  Acme   Transport ", MobileNumber: "9000000000"}
	err := Business(ctx, db, b)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, []string{"label"}, fieldsOf(err))
	assert.Equal(t, "Acme Transport", b.Label)

	b = &model.Business{Name: "Other", Label: "Other", MaxVehicles: -1, Email: strPtr("nope")}
	err = Business(ctx, db, b)
	assert.Equal(t, []string{"email", "max_vehicles"}, fieldsOf(err))
	assert.Equal(t, model.BusinessActive, b.Status)
}

func TestTripAndExpense(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	x := testutil.Tenant(t, db, "X", "X")
	y := testutil.Tenant(t, db, "Y", "Y")
	v := testutil.Vehicle(t, db, x, "MH12AB1234")
	foreign := testutil.Vehicle(t, db, y, "KA01CD9999")
	start := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	trip := &model.Trip{TenantID: x.ID, VehicleID: foreign.ID, StartLocation: "A", EndLocation: "B", StartDate: start, EndDate: &end}
	err := Trip(ctx, db, trip)
	assert.Equal(t, []string{"end_date", "vehicle"}, fieldsOf(err))

	trip = &model.Trip{TenantID: x.ID, VehicleID: v.ID, StartLocation: "A", EndLocation: "B", StartDate: start}
	require.NoError(t, Trip(ctx, db, trip))
	assert.Equal(t, model.TripScheduled, trip.Status)

	exp := &model.Expense{TenantID: x.ID, Category: "snacks", Amount: decimal.RequireFromString("10.005"),
		Description: "x", ExpenseDate: start}
	assert.Equal(t, []string{"amount", "category"}, fieldsOf(Expense(ctx, db, exp)))

	exp = &model.Expense{TenantID: x.ID, VehicleID: &v.ID, Category: model.ExpenseFuel, Amount: decimal.RequireFromString("1500.50"),
		Description: "diesel", ExpenseDate: start}
	assert.NoError(t, Expense(ctx, db, exp))
}
