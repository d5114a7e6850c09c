package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/fleetbill/pkg/logger"
	"github.com/suteetoe/fleetbill/pkg/metrics"
	"go.uber.org/zap"
)

const serviceName = "fleetbill"

// HealthCheck handles the health check endpoint. With ?check=db the
// database connection is pinged too.
func (h *Handler) HealthCheck(c echo.Context) error {
	if c.QueryParam("check") != "db" {
		return c.JSON(http.StatusOK, echo.Map{
			"status":  "healthy",
			"service": serviceName,
		})
	}

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request().Context())
	}
	if err != nil {
		logger.FromEcho(c).Error("Database ping failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":   "unhealthy",
			"service":  serviceName,
			"database": "unreachable",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":   "healthy",
		"service":  serviceName,
		"database": "ok",
	})
}

// MetricsHandler exposes Prometheus metrics
func MetricsHandler(c echo.Context) error {
	metrics.GetPrometheusHandler().ServeHTTP(c.Response(), c.Request())
	return nil
}
