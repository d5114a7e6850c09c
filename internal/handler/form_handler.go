package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/fleetbill/internal/access"
	mid "github.com/suteetoe/fleetbill/internal/middleware"
	"github.com/suteetoe/fleetbill/internal/model"
)

// FormResponse tells a client which fields to hide and lock for a kind
type FormResponse struct {
	Kind      model.Kind `json:"kind"`
	CanCreate bool       `json:"can_create"`
	access.Fields
}

// Form returns the field visibility of a kind for the caller
func (h *Handler) Form(c echo.Context) error {
	kind, ok := model.ParseKind(c.Param("kind"))
	if !ok {
		return respond(c, errUnknownKind)
	}
	id := mid.IdentityFrom(c)
	gate := h.svc.Gate()
	return c.JSON(http.StatusOK, FormResponse{
		Kind:      kind,
		CanCreate: gate.CanCreate(id, kind),
		Fields:    gate.FieldVisibility(id, kind),
	})
}
