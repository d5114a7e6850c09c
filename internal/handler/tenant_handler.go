package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	mid "github.com/suteetoe/fleetbill/internal/middleware"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/pkg/logger"
	"go.uber.org/zap"
)

// ListTenants returns the tenants visible to the caller
func (h *Handler) ListTenants(c echo.Context) error {
	page, err := h.svc.Tenants.List(c.Request().Context(), mid.IdentityFrom(c), listQuery(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetTenant returns one tenant
func (h *Handler) GetTenant(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond(c, err)
	}
	b, err := h.svc.Tenants.Get(c.Request().Context(), mid.IdentityFrom(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// CreateTenant registers a business
func (h *Handler) CreateTenant(c echo.Context) error {
	log := logger.FromEcho(c)

	raw, err := readBody(c)
	if err != nil {
		return respond(c, err)
	}
	var b model.Business
	if err := decodeOnto(c, raw, &b); err != nil {
		return respond(c, err)
	}

	created, err := h.svc.Tenants.Create(c.Request().Context(), mid.IdentityFrom(c), requestMeta(c), &b)
	if err != nil {
		return respond(c, err)
	}
	log.Info("Tenant created",
		zap.Uint("tenant_id", created.ID),
		zap.String("code", created.Code))
	return c.JSON(http.StatusCreated, created)
}

// UpdateTenant changes a business
func (h *Handler) UpdateTenant(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond(c, err)
	}
	raw, err := readBody(c)
	if err != nil {
		return respond(c, err)
	}

	b, err := h.svc.Tenants.Update(c.Request().Context(), mid.IdentityFrom(c), requestMeta(c), id, func(b *model.Business) error {
		return decodeOnto(c, raw, b)
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// DeleteTenant removes a business with everything it owns
func (h *Handler) DeleteTenant(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond(c, err)
	}
	if err := h.svc.Tenants.Delete(c.Request().Context(), mid.IdentityFrom(c), requestMeta(c), id); err != nil {
		return respond(c, err)
	}
	logger.FromEcho(c).Info("Tenant deleted", zap.Uint("tenant_id", id))
	return c.NoContent(http.StatusNoContent)
}

// TenantStats returns the counters of a tenant
func (h *Handler) TenantStats(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond(c, err)
	}
	stats, err := h.svc.Tenants.Stats(c.Request().Context(), mid.IdentityFrom(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// TenantSettings returns the settings of a tenant
func (h *Handler) TenantSettings(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond(c, err)
	}
	settings, err := h.svc.Tenants.Settings(c.Request().Context(), mid.IdentityFrom(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}
