package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	mid "github.com/suteetoe/fleetbill/internal/middleware"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/internal/repository"
	"gorm.io/gorm"
)

// ListAuditLogs returns the audit trail visible to the caller, newest
// first unless sorted otherwise. entity, action and object_id narrow it.
func (h *Handler) ListAuditLogs(c echo.Context) error {
	var filters []repository.Filter
	if v := c.QueryParam("entity"); v != "" {
		kind, ok := model.ParseKind(v)
		if !ok {
			return respond(c, errUnknownKind)
		}
		filters = append(filters, where("entity = ?", kind))
	}
	if v := c.QueryParam("action"); v != "" {
		filters = append(filters, where("action = ?", v))
	}
	if v := queryID(c, "object_id"); v != 0 {
		filters = append(filters, where("object_id = ?", v))
	}

	page, err := h.svc.AuditLogs.List(c.Request().Context(), mid.IdentityFrom(c), listQuery(c), filters...)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func where(query string, args ...interface{}) repository.Filter {
	return func(db *gorm.DB) *gorm.DB { return db.Where(query, args...) }
}
