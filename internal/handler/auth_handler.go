package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	mid "github.com/suteetoe/fleetbill/internal/middleware"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/pkg/logger"
	"go.uber.org/zap"
)

// LoginRequest holds the credentials of a login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token and the account behind it
type LoginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login checks the credentials and issues a bearer token
func (h *Handler) Login(c echo.Context) error {
	log := logger.FromEcho(c)

	var req LoginRequest
	if err := bindRequest(c, &req); err != nil {
		return invalidRequest(c, err)
	}

	user, err := h.svc.Users.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return respond(c, err)
	}

	token, err := h.jwt.GenerateToken(user.Username, user.ID, user.TenantID, string(user.Role))
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to generate token"})
	}

	log.Info("User logged in",
		zap.Uint("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return c.JSON(http.StatusOK, LoginResponse{Token: token, User: user})
}

// Me returns the account of the caller
func (h *Handler) Me(c echo.Context) error {
	user, err := h.svc.Users.Me(c.Request().Context(), mid.IdentityFrom(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
