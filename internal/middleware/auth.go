package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/identity"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/pkg/jwtutil"
	"github.com/suteetoe/fleetbill/pkg/logger"
	"github.com/suteetoe/fleetbill/prometheus"
	"go.uber.org/zap"
)

const identityKey = "identity"

// UserLoader loads the stored user behind a token
type UserLoader interface {
	Load(ctx context.Context, pk uint) (*model.User, error)
}

// Auth validates bearer tokens and binds the acting identity to the request
type Auth struct {
	jwt   *jwtutil.JWTUtil
	users UserLoader
}

// NewAuth returns an Auth reading tokens with jwt and users from users
func NewAuth(jwt *jwtutil.JWTUtil, users UserLoader) *Auth {
	return &Auth{jwt: jwt, users: users}
}

// Middleware rejects requests without a valid token. The user is reloaded
// on every request, so role and tenant changes apply immediately and the
// claims in the token are never trusted for authorization.
func (a *Auth) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromEcho(c)

		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		claims, err := a.jwt.ValidateToken(parts[1])
		if err != nil {
			log.Info("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		user, err := a.users.Load(c.Request().Context(), claims.UserID)
		if errors.Is(err, apperr.ErrNotFound) {
			log.Info("Token for unknown user", zap.Uint("user_id", claims.UserID))
			prometheus.RecordAuthError("unknown_user")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}
		if err != nil {
			log.Error("Failed to load user", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
		if user.Role.CountsAsStaff() && !user.IsActiveStaff && !user.IsSuperuser {
			prometheus.RecordAuthError("disabled")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account disabled"})
		}

		id := identity.FromUser(user)
		c.Set(identityKey, id)
		log.Debug("Request authenticated",
			zap.Uint("user_id", id.UserID),
			zap.String("role", string(id.Role)),
			zap.Uint("tenant_id", id.Tenant()))

		return next(c)
	}
}

// IdentityFrom returns the identity bound by Auth, or the anonymous identity
func IdentityFrom(c echo.Context) identity.Identity {
	id, ok := c.Get(identityKey).(identity.Identity)
	if !ok {
		return identity.Anonymous()
	}
	return id
}

// SetIdentity binds id to the request. Handler tests use it in place of a
// token.
func SetIdentity(c echo.Context, id identity.Identity) {
	c.Set(identityKey, id)
}
