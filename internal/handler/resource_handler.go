package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	mid "github.com/suteetoe/fleetbill/internal/middleware"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/internal/repository"
	"github.com/suteetoe/fleetbill/internal/service"
	"github.com/suteetoe/fleetbill/pkg/logger"
	"go.uber.org/zap"
)

// resourceHandler serves list/get/create/update/delete for one resource
type resourceHandler[T any, PT interface {
	*T
	model.TenantOwned
}] struct {
	r *service.Resource[T, PT]
	// filters turns query parameters into listing filters
	filters func(c echo.Context) ([]repository.Filter, error)
}

// mount registers the five routes of a resource on g
func mount[T any, PT interface {
	*T
	model.TenantOwned
}](g *echo.Group, r *service.Resource[T, PT], filters func(echo.Context) ([]repository.Filter, error)) {
	h := &resourceHandler[T, PT]{r: r, filters: filters}
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *resourceHandler[T, PT]) list(c echo.Context) error {
	var filters []repository.Filter
	if h.filters != nil {
		var err error
		if filters, err = h.filters(c); err != nil {
			return respond(c, err)
		}
	}
	page, err := h.r.List(c.Request().Context(), mid.IdentityFrom(c), listQuery(c), filters...)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *resourceHandler[T, PT]) get(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond(c, err)
	}
	rec, err := h.r.Get(c.Request().Context(), mid.IdentityFrom(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *resourceHandler[T, PT]) create(c echo.Context) error {
	log := logger.FromEcho(c)

	raw, err := readBody(c)
	if err != nil {
		return respond(c, err)
	}
	rec := PT(new(T))
	if err := decodeOnto(c, raw, rec); err != nil {
		return respond(c, err)
	}

	created, err := h.r.Create(c.Request().Context(), mid.IdentityFrom(c), requestMeta(c), rec)
	if err != nil {
		return respond(c, err)
	}
	log.Info("Record created",
		zap.String("entity", string(h.r.Kind())),
		zap.Uint("id", created.EntityID()))
	return c.JSON(http.StatusCreated, created)
}

func (h *resourceHandler[T, PT]) update(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond(c, err)
	}
	raw, err := readBody(c)
	if err != nil {
		return respond(c, err)
	}

	updated, err := h.r.Update(c.Request().Context(), mid.IdentityFrom(c), requestMeta(c), id, func(rec PT) error {
		return decodeOnto(c, raw, rec)
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *resourceHandler[T, PT]) delete(c echo.Context) error {
	log := logger.FromEcho(c)
	id, err := paramID(c)
	if err != nil {
		return respond(c, err)
	}
	if err := h.r.Delete(c.Request().Context(), mid.IdentityFrom(c), requestMeta(c), id); err != nil {
		return respond(c, err)
	}
	log.Info("Record deleted",
		zap.String("entity", string(h.r.Kind())),
		zap.Uint("id", id))
	return c.NoContent(http.StatusNoContent)
}
