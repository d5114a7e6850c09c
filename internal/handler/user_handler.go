package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	mid "github.com/suteetoe/fleetbill/internal/middleware"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/pkg/logger"
	"go.uber.org/zap"
)

// passwordField is the write-only part of a user body; model.User never
// serializes its hash.
type passwordField struct {
	Password string `json:"password"`
}

// ListUsers returns the accounts visible to the caller
func (h *Handler) ListUsers(c echo.Context) error {
	page, err := h.svc.Users.List(c.Request().Context(), mid.IdentityFrom(c), listQuery(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetUser returns one account
func (h *Handler) GetUser(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond(c, err)
	}
	u, err := h.svc.Users.Get(c.Request().Context(), mid.IdentityFrom(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// CreateUser adds an account
func (h *Handler) CreateUser(c echo.Context) error {
	log := logger.FromEcho(c)

	raw, err := readBody(c)
	if err != nil {
		return respond(c, err)
	}
	var u model.User
	var pw passwordField
	if err := decodeOnto(c, raw, &u); err != nil {
		return respond(c, err)
	}
	if err := decodeOnto(c, raw, &pw); err != nil {
		return respond(c, err)
	}

	created, err := h.svc.Users.Create(c.Request().Context(), mid.IdentityFrom(c), requestMeta(c), &u, pw.Password)
	if err != nil {
		return respond(c, err)
	}
	log.Info("User created",
		zap.Uint("user_id", created.ID),
		zap.String("role", string(created.Role)))
	return c.JSON(http.StatusCreated, created)
}

// UpdateUser changes an account. An empty or absent password keeps the
// current one.
func (h *Handler) UpdateUser(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond(c, err)
	}
	raw, err := readBody(c)
	if err != nil {
		return respond(c, err)
	}
	var pw passwordField
	if err := decodeOnto(c, raw, &pw); err != nil {
		return respond(c, err)
	}

	u, err := h.svc.Users.Update(c.Request().Context(), mid.IdentityFrom(c), requestMeta(c), id, func(u *model.User) error {
		return decodeOnto(c, raw, u)
	}, pw.Password)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// DeleteUser removes an account
func (h *Handler) DeleteUser(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond(c, err)
	}
	if err := h.svc.Users.Delete(c.Request().Context(), mid.IdentityFrom(c), requestMeta(c), id); err != nil {
		return respond(c, err)
	}
	logger.FromEcho(c).Info("User deleted", zap.Uint("user_id", id))
	return c.NoContent(http.StatusNoContent)
}
