package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/identity"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/internal/repository"
	"github.com/suteetoe/fleetbill/internal/sequence"
	"github.com/suteetoe/fleetbill/internal/validation"
	"gorm.io/gorm"
)

// BillService manages bills: the plain life cycle plus listing filters and
// the bulk settlement actions.
type BillService struct {
	*Resource[model.Bill, *model.Bill]
}

func newBillService(e *env) *BillService {
	r := newResource[model.Bill](e, model.KindBill, "bill_number", "bill_date", "rent_amount", "pending_amount")
	r.validate = validation.Bill
	r.number = func(ctx context.Context, tx *gorm.DB, b *model.Bill) error {
		var tenant model.Business
		if err := tx.WithContext(ctx).First(&tenant, b.TenantID).Error; err != nil {
			return fmt.Errorf("load tenant %d: %w", b.TenantID, err)
		}
		number, err := e.seq.Next(ctx, tx, b.TenantID, sequence.BillSeries(tenant.Label))
		if err != nil {
			return err
		}
		b.BillNumber = number
		return nil
	}
	r.preserve = func(stored, b *model.Bill) { b.BillNumber = stored.BillNumber }
	r.remove = func(ctx context.Context, tx *gorm.DB, b *model.Bill) error {
		if err := detach(ctx, tx, &model.Trip{}, "bill_id", b.ID); err != nil {
			return fmt.Errorf("detach trips: %w", err)
		}
		return nil
	}
	return &BillService{Resource: r}
}

// BillFilter narrows a bill listing. Zero fields do not filter.
type BillFilter struct {
	PaymentStatus    model.PaymentStatus
	CommissionStatus model.CommissionStatus
	From             *time.Time
	To               *time.Time
	VehicleID        uint
	PartyID          uint
}

// Filters turns f into repository filters. The date range is inclusive.
func (f BillFilter) Filters() ([]repository.Filter, error) {
	var out []repository.Filter
	where := func(query string, args ...interface{}) {
		out = append(out, func(db *gorm.DB) *gorm.DB { return db.Where(query, args...) })
	}

	switch f.PaymentStatus {
	case "":
	case model.PaymentPaid:
		where("pending_amount = 0")
	case model.PaymentPending:
		where("pending_amount <> 0 AND advance_amount = 0")
	case model.PaymentPartial:
		where("pending_amount <> 0 AND advance_amount <> 0")
	default:
		return nil, apperr.Invalid("payment_status", "unknown payment status %q", f.PaymentStatus)
	}

	switch f.CommissionStatus {
	case "":
	case model.CommissionNone:
		where("commission_charge = 0")
	case model.CommissionPaid:
		where("commission_charge <> 0 AND commission_pending = 0")
	case model.CommissionPending:
		where("commission_charge <> 0 AND commission_pending <> 0 AND commission_received = 0")
	case model.CommissionPartial:
		where("commission_charge <> 0 AND commission_pending <> 0 AND commission_received <> 0")
	default:
		return nil, apperr.Invalid("commission_status", "unknown commission status %q", f.CommissionStatus)
	}

	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, apperr.Bounds("to", "end of range is before its start")
	}
	if f.From != nil {
		where("bill_date >= ?", truncateDay(*f.From))
	}
	if f.To != nil {
		where("bill_date < ?", truncateDay(*f.To).AddDate(0, 0, 1))
	}
	if f.VehicleID != 0 {
		where("vehicle_id = ?", f.VehicleID)
	}
	if f.PartyID != 0 {
		where("party_id = ?", f.PartyID)
	}
	return out, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Search lists the bills id may see that match f
func (s *BillService) Search(ctx context.Context, id identity.Identity, q repository.ListQuery, f BillFilter) (*repository.Page[model.Bill], error) {
	filters, err := f.Filters()
	if err != nil {
		return nil, err
	}
	return s.List(ctx, id, q, filters...)
}

// MarkPaid settles the rent of the given bills: the advance becomes the rent
// and nothing remains pending. Bills outside id's scope are skipped. It
// returns the number of bills changed.
func (s *BillService) MarkPaid(ctx context.Context, id identity.Identity, meta Meta, ids []uint) (int, error) {
	return s.bulk(ctx, id, meta, ids, func(b *model.Bill) bool {
		if b.PendingAmount.IsZero() {
			return false
		}
		b.AdvanceAmount = b.RentAmount
		return true
	})
}

// MarkCommissionReceived settles the commission of the given bills as
// received today. Bills without a commission charge are skipped.
func (s *BillService) MarkCommissionReceived(ctx context.Context, id identity.Identity, meta Meta, ids []uint) (int, error) {
	today := truncateDay(s.env.now())
	return s.bulk(ctx, id, meta, ids, func(b *model.Bill) bool {
		if b.CommissionCharge.IsZero() || b.CommissionPending.IsZero() {
			return false
		}
		b.CommissionReceived = b.CommissionCharge
		b.CommissionReceivedDate = &today
		return true
	})
}

// bulk applies change to every bill of ids in scope, in one transaction
func (s *BillService) bulk(ctx context.Context, id identity.Identity, meta Meta, ids []uint, change func(*model.Bill) bool) (int, error) {
	if len(ids) == 0 {
		return 0, apperr.Invalid("ids", "select at least one bill")
	}
	if err := s.env.gate.AuthorizeList(id, model.KindBill); err != nil {
		s.env.observe(ctx, model.KindBill, "bulk", err)
		return 0, err
	}

	changed := 0
	err := s.env.transaction(ctx, model.KindBill, "bulk", func(tx *gorm.DB) error {
		var bills []model.Bill
		err := tx.Scopes(repository.Scope(id, model.KindBill)).
			Where("id IN ?", ids).
			Order("id").
			Find(&bills).Error
		if err != nil {
			return fmt.Errorf("load bills: %w", err)
		}

		for i := range bills {
			stored := bills[i]
			b := &bills[i]
			if err := s.env.gate.AuthorizeModify(id, b); err != nil {
				if errors.Is(err, apperr.ErrPermission) {
					continue
				}
				return err
			}
			if !change(b) {
				continue
			}
			validation.NormalizeBill(b)
			if err := validation.CheckBillBounds(b); err != nil {
				return err
			}
			if err := s.store.WithDB(tx).Save(ctx, b); err != nil {
				return err
			}
			if err := writeAudit(ctx, tx, id, meta, model.AuditBulk, b, diff(&stored, b)); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}
