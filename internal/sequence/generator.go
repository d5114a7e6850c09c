package sequence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/pkg/logger"
	"github.com/suteetoe/fleetbill/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultMaxAttempts bounds the collision re-check of one Next call
const DefaultMaxAttempts = 10

// Series describes one numbered document type
type Series struct {
	Kind   model.Kind
	Model  interface{}
	Column string
	// Prefix is used for the time based fallback number.
	Prefix string
	Format func(n int64) string
}

// BillSeries numbers bills of a tenant labelled label
func BillSeries(label string) Series {
	prefix := BillPrefix(label)
	return Series{
		Kind:   model.KindBill,
		Model:  &model.Bill{},
		Column: "bill_number",
		Prefix: prefix,
		Format: func(n int64) string { return BillNumber(prefix, n) },
	}
}

// TripSeries numbers trips of the tenant with code
func TripSeries(code string) Series {
	return Series{
		Kind:   model.KindTrip,
		Model:  &model.Trip{},
		Column: "trip_number",
		Prefix: TripPrefix(code),
		Format: func(n int64) string { return TripNumber(code, n) },
	}
}

// Generator hands out document numbers from a per-tenant counter row. The
// row is locked for the rest of the caller's transaction, so concurrent
// writes of one tenant are serialised instead of racing for a number.
type Generator struct {
	maxAttempts int
	now         func() time.Time
}

// NewGenerator returns a Generator that re-checks at most maxAttempts
// candidates before falling back to a time based number.
func NewGenerator(maxAttempts int) *Generator {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{maxAttempts: maxAttempts, now: time.Now}
}

// WithClock returns a copy of g reading time from now
func (g *Generator) WithClock(now func() time.Time) *Generator {
	cp := *g
	cp.now = now
	return &cp
}

// Next reserves the next number of s for tenant. tx must be the transaction
// that persists the numbered record.
//
// On first use the counter is seeded from the newest record of the tenant,
// by insertion order. Every candidate is checked against all numbers ever
// issued, deleted records included, because document numbers are unique
// across tenants. When every attempt collides the number falls back to
// "{prefix}-{unix seconds}"; that outcome is logged, never returned.
func (g *Generator) Next(ctx context.Context, tx *gorm.DB, tenant uint, s Series) (string, error) {
	tx = tx.WithContext(ctx)

	err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.TenantSequence{TenantID: tenant, Kind: s.Kind}).Error
	if err != nil {
		return "", fmt.Errorf("init %s sequence: %w", s.Kind, err)
	}

	var seq model.TenantSequence
	err = tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("tenant_id = ? AND kind = ?", tenant, s.Kind).
		Take(&seq).Error
	if err != nil {
		return "", fmt.Errorf("lock %s sequence: %w", s.Kind, err)
	}

	if !seq.Seeded {
		last, err := g.lastIssued(tx, tenant, s)
		if err != nil {
			return "", err
		}
		if last > seq.LastValue {
			seq.LastValue = last
		}
		seq.Seeded = true
	}

	number := ""
	for i := int64(1); i <= int64(g.maxAttempts); i++ {
		candidate := s.Format(seq.LastValue + i)
		taken, err := g.taken(tx, s, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			number = candidate
			seq.LastValue += i
			break
		}
	}
	if number == "" {
		number = fmt.Sprintf("%s-%d", s.Prefix, g.now().Unix())
		seq.LastValue += int64(g.maxAttempts)
		logger.FromContext(ctx).Warn("Sequence exhausted, using time based number",
			zap.Error(apperr.ErrSequenceExhausted),
			zap.String("entity", string(s.Kind)),
			zap.Uint("tenant_id", tenant),
			zap.String("number", number))
		prometheus.RecordSequenceFallback(string(s.Kind))
	}

	err = tx.Model(&seq).Updates(map[string]interface{}{
		"last_value": seq.LastValue,
		"seeded":     true,
	}).Error
	if err != nil {
		return "", fmt.Errorf("advance %s sequence: %w", s.Kind, err)
	}
	return number, nil
}

func (g *Generator) lastIssued(tx *gorm.DB, tenant uint, s Series) (int64, error) {
	var numbers []string
	err := tx.Unscoped().Model(s.Model).
		Where("tenant_id = ?", tenant).
		Order("id DESC").
		Limit(1).
		Pluck(s.Column, &numbers).Error
	if err != nil {
		return 0, fmt.Errorf("load last %s: %w", s.Kind, err)
	}
	if len(numbers) == 0 {
		return 0, nil
	}
	return Suffix(numbers[0]), nil
}

func (g *Generator) taken(tx *gorm.DB, s Series, number string) (bool, error) {
	var n int64
	err := tx.Unscoped().Model(s.Model).Where(s.Column+" = ?", number).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check %s %s: %w", s.Kind, number, err)
	}
	return n > 0, nil
}

// Suffix parses the numeric part after the last '-' of number. Anything
// unparseable counts as 0.
func Suffix(number string) int64 {
	i := strings.LastIndex(number, "-")
	if i < 0 {
		return 0
	}
	n, err := strconv.ParseInt(number[i+1:], 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
