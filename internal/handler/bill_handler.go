package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/identity"
	mid "github.com/suteetoe/fleetbill/internal/middleware"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/internal/repository"
	"github.com/suteetoe/fleetbill/internal/service"
	"github.com/suteetoe/fleetbill/pkg/logger"
	"go.uber.org/zap"
)

// BulkRequest selects the bills of a bulk action
type BulkRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1,max=500"`
}

// billFilters reads payment_status, commission_status, from, to, vehicle
// and party from the query string.
func billFilters(c echo.Context) ([]repository.Filter, error) {
	f := service.BillFilter{
		PaymentStatus:    model.PaymentStatus(c.QueryParam("payment_status")),
		CommissionStatus: model.CommissionStatus(c.QueryParam("commission_status")),
		VehicleID:        queryID(c, "vehicle"),
		PartyID:          queryID(c, "party"),
	}
	var err error
	if f.From, err = queryDate(c, "from"); err != nil {
		return nil, err
	}
	if f.To, err = queryDate(c, "to"); err != nil {
		return nil, err
	}
	return f.Filters()
}

func queryDate(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(model.DateLayout, v)
	if err != nil {
		return nil, apperr.Invalid(name, "use the YYYY-MM-DD format")
	}
	return &t, nil
}

// MarkBillsPaid settles the rent of the selected bills
func (h *Handler) MarkBillsPaid(c echo.Context) error {
	return h.bulk(c, "mark_paid", h.svc.Bills.MarkPaid)
}

// MarkCommissionReceived settles the commission of the selected bills
func (h *Handler) MarkCommissionReceived(c echo.Context) error {
	return h.bulk(c, "mark_commission_received", h.svc.Bills.MarkCommissionReceived)
}

type bulkAction func(ctx context.Context, id identity.Identity, meta service.Meta, ids []uint) (int, error)

func (h *Handler) bulk(c echo.Context, action string, run bulkAction) error {
	log := logger.FromEcho(c)

	var req BulkRequest
	if err := bindRequest(c, &req); err != nil {
		return invalidRequest(c, err)
	}

	n, err := run(c.Request().Context(), mid.IdentityFrom(c), requestMeta(c), req.IDs)
	if err != nil {
		return respond(c, err)
	}
	log.Info("Bulk bill action",
		zap.String("action", action),
		zap.Int("requested", len(req.IDs)),
		zap.Int("updated", n))
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}
