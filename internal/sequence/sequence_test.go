package sequence

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/internal/testutil"
	"gorm.io/gorm"
)

func TestBillPrefix(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Acme Transport", "AT"},
		{"acme", "ACM"},
		{"Go", "GO"},
		{"Shree Ganesh Road Lines", "SGR"},
		{"Three Word Label", "TWL"},
		{"  spaced   out  ", "SO"},
		{"", "BILL"},
		{"   ", "BILL"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, BillPrefix(tt.label))
		})
	}
}

func TestFormats(t *testing.T) {
	assert.Equal(t, "AT-0001", BillNumber("AT", 1))
	assert.Equal(t, "AT-12345", BillNumber("AT", 12345))
	assert.Equal(t, "TRIP-AB12CD34-000042", TripNumber("AB12CD34", 42))

	assert.Equal(t, int64(7), Suffix("AT-0007"))
	assert.Equal(t, int64(42), Suffix("TRIP-AB12CD34-000042"))
	assert.Zero(t, Suffix("AT-x1"))
	assert.Zero(t, Suffix("legacy"))
	assert.Zero(t, Suffix(""))
}

func TestRandomCode(t *testing.T) {
	code, err := RandomCode(8)
	require.NoError(t, err)
	assert.Len(t, code, 8)
	for _, r := range code {
		assert.Contains(t, codeAlphabet, string(r))
	}
}

func insertBill(t *testing.T, db *gorm.DB, tenant *model.Business, vehicle *model.Vehicle, number string) *model.Bill {
	t.Helper()
	b := &model.Bill{
		TenantID:     tenant.ID,
		VehicleID:    vehicle.ID,
		BillNumber:   number,
		FromLocation: "A",
		ToLocation:   "B",
		RentAmount:   decimal.NewFromInt(1000),
		BillDate:     time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(b).Error)
	return b
}

// issue reserves a number and persists a bill with it in one transaction
func issue(t *testing.T, db *gorm.DB, g *Generator, tenant *model.Business, vehicle *model.Vehicle) string {
	t.Helper()
	var number string
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		number, err = g.Next(context.Background(), tx, tenant.ID, BillSeries(tenant.Label))
		if err != nil {
			return err
		}
		insertBill(t, tx, tenant, vehicle, number)
		return nil
	})
	require.NoError(t, err)
	return number
}

func TestNext_SequentialBillNumbers(t *testing.T) {
	db := testutil.NewDB(t)
	acme := testutil.Tenant(t, db, "Acme", "Acme Transport")
	v := testutil.Vehicle(t, db, acme, "MH12AB1234")
	g := NewGenerator(DefaultMaxAttempts)

	assert.Equal(t, "AT-0001", issue(t, db, g, acme, v))
	assert.Equal(t, "AT-0002", issue(t, db, g, acme, v))
	assert.Equal(t, "AT-0003", issue(t, db, g, acme, v))
}

func TestNext_SeedsFromLatestRecord(t *testing.T) {
	db := testutil.NewDB(t)
	acme := testutil.Tenant(t, db, "Acme", "Acme Transport")
	v := testutil.Vehicle(t, db, acme, "MH12AB1234")
	insertBill(t, db, acme, v, "AT-0041")
	insertBill(t, db, acme, v, "AT-0007")

	// insertion order decides, not the largest number
	g := NewGenerator(DefaultMaxAttempts)
	assert.Equal(t, "AT-0008", issue(t, db, g, acme, v))
}

func TestNext_UnparseableLastNumberStartsAtOne(t *testing.T) {
	db := testutil.NewDB(t)
	acme := testutil.Tenant(t, db, "Acme", "Acme Transport")
	v := testutil.Vehicle(t, db, acme, "MH12AB1234")
	insertBill(t, db, acme, v, "LEGACY")

	assert.Equal(t, "AT-0001", issue(t, db, NewGenerator(DefaultMaxAttempts), acme, v))
}

func TestNext_MonotonicAndGloballyUnique(t *testing.T) {
	db := testutil.NewDB(t)
	acme := testutil.Tenant(t, db, "Acme", "Acme Transport")
	alpha := testutil.Tenant(t, db, "Alpha", "Alpha Trucking")
	va := testutil.Vehicle(t, db, acme, "MH12AB1234")
	vb := testutil.Vehicle(t, db, alpha, "MH12AB5678")
	g := NewGenerator(DefaultMaxAttempts)

	// both tenants derive the prefix AT
	assert.Equal(t, "AT-0001", issue(t, db, g, alpha, vb))
	assert.Equal(t, "AT-0002", issue(t, db, g, acme, va), "taken numbers of other tenants are skipped")
	assert.Equal(t, "AT-0003", issue(t, db, g, alpha, vb))

	seen := map[string]bool{}
	var last int64
	for i := 0; i < 5; i++ {
		n := issue(t, db, g, acme, va)
		assert.False(t, seen[n])
		seen[n] = true
		assert.Greater(t, Suffix(n), last)
		last = Suffix(n)
	}

	var dup int64
	require.NoError(t, db.Model(&model.Bill{}).
		Select("COUNT(*) - COUNT(DISTINCT bill_number)").Row().Scan(&dup))
	assert.Zero(t, dup)
}

func TestNext_DeletedNumbersAreNotReused(t *testing.T) {
	db := testutil.NewDB(t)
	acme := testutil.Tenant(t, db, "Acme", "Acme Transport")
	v := testutil.Vehicle(t, db, acme, "MH12AB1234")
	g := NewGenerator(DefaultMaxAttempts)

	issue(t, db, g, acme, v)
	require.NoError(t, db.Where("bill_number = ?", "AT-0001").Delete(&model.Bill{}).Error)
	assert.Equal(t, "AT-0002", issue(t, db, g, acme, v))
}

func TestNext_FallsBackToTimeAfterMaxAttempts(t *testing.T) {
	db := testutil.NewDB(t)
	acme := testutil.Tenant(t, db, "Acme", "Acme Transport")
	alpha := testutil.Tenant(t, db, "Alpha", "Alpha Trucking")
	va := testutil.Vehicle(t, db, acme, "MH12AB1234")
	vb := testutil.Vehicle(t, db, alpha, "MH12AB5678")
	insertBill(t, db, alpha, vb, "AT-0001")
	insertBill(t, db, alpha, vb, "AT-0002")

	fixed := time.Unix(1760600000, 0)
	g := NewGenerator(2).WithClock(func() time.Time { return fixed })
	assert.Equal(t, "AT-1760600000", issue(t, db, g, acme, va))

	// the counter moved past the collisions
	assert.Equal(t, "AT-0003", issue(t, db, g, acme, va))
}

func TestNext_TripNumbers(t *testing.T) {
	db := testutil.NewDB(t)
	acme := testutil.Tenant(t, db, "Acme", "Acme Transport")
	g := NewGenerator(DefaultMaxAttempts)

	err := db.Transaction(func(tx *gorm.DB) error {
		n, err := g.Next(context.Background(), tx, acme.ID, TripSeries(acme.Code))
		require.NoError(t, err)
		assert.Equal(t, TripPrefix(acme.Code)+"-000001", n)
		return nil
	})
	require.NoError(t, err)

	var seq model.TenantSequence
	require.NoError(t, db.Where("tenant_id = ? AND kind = ?", acme.ID, model.KindTrip).Take(&seq).Error)
	assert.Equal(t, int64(1), seq.LastValue)
	assert.True(t, seq.Seeded)
}

func TestNext_RolledBackReservationIsReissued(t *testing.T) {
	db := testutil.NewDB(t)
	acme := testutil.Tenant(t, db, "Acme", "Acme Transport")
	v := testutil.Vehicle(t, db, acme, "MH12AB1234")
	g := NewGenerator(DefaultMaxAttempts)

	_ = db.Transaction(func(tx *gorm.DB) error {
		_, err := g.Next(context.Background(), tx, acme.ID, BillSeries(acme.Label))
		require.NoError(t, err)
		return gorm.ErrInvalidData
	})
	assert.Equal(t, "AT-0001", issue(t, db, g, acme, v))
}
