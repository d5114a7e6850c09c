// Package handler exposes the services over HTTP with echo.
package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/fleetbill/internal/apperr"
	"github.com/suteetoe/fleetbill/internal/repository"
	"github.com/suteetoe/fleetbill/internal/service"
	"github.com/suteetoe/fleetbill/internal/validation"
	"github.com/suteetoe/fleetbill/pkg/jwtutil"
	"github.com/suteetoe/fleetbill/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler holds the dependencies of every endpoint
type Handler struct {
	db  *gorm.DB
	svc *service.Service
	jwt *jwtutil.JWTUtil
}

// New returns a Handler
func New(db *gorm.DB, svc *service.Service, jwt *jwtutil.JWTUtil) *Handler {
	return &Handler{db: db, svc: svc, jwt: jwt}
}

var (
	errInvalidBody = apperr.Invalid("body", "invalid request data")
	errUnknownKind = apperr.ErrNotFound
)

// respond writes err as JSON with the status its kind maps to
func respond(c echo.Context, err error) error {
	log := logger.FromEcho(c)

	switch {
	case errors.Is(err, apperr.ErrPermission):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not permitted"})
	case errors.Is(err, apperr.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, service.ErrAccountDisabled):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account disabled"})
	case errors.Is(err, apperr.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":  "conflict",
			"fields": apperr.FieldMessages(err),
		})
	case apperr.IsValidation(err):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "validation failed",
			"fields": apperr.FieldMessages(err),
		})
	}

	log.Error("Request failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// invalidRequest reports DTO validation errors by JSON field name
func invalidRequest(c echo.Context, err error) error {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	} else {
		fields["body"] = "invalid request data"
	}
	return c.JSON(http.StatusBadRequest, echo.Map{
		"error":  "validation failed",
		"fields": fields,
	})
}

// bindRequest decodes and checks a request DTO
func bindRequest(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return validation.Formats().Struct(req)
}

// readBody returns the raw request body, for decoding onto stored records
func readBody(c echo.Context) ([]byte, error) {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, errInvalidBody
	}
	return raw, nil
}

// decodeOnto binds the body raw onto v with echo's binder. Fields absent
// from raw keep their current value, so v may be a stored record.
func decodeOnto(c echo.Context, raw []byte, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	c.Request().Body = io.NopCloser(bytes.NewReader(raw))
	if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
		return errInvalidBody
	}
	return nil
}

func paramID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.ErrNotFound
	}
	return uint(id), nil
}

func listQuery(c echo.Context) repository.ListQuery {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	return repository.ListQuery{Page: page, PageSize: size, Sort: c.QueryParam("sort")}
}

func queryID(c echo.Context, name string) uint {
	id, _ := strconv.ParseUint(c.QueryParam(name), 10, 64)
	return uint(id)
}

func requestMeta(c echo.Context) service.Meta {
	return service.Meta{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}
