package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/suteetoe/fleetbill/internal/access"
	"github.com/suteetoe/fleetbill/internal/handler"
	"github.com/suteetoe/fleetbill/internal/middleware"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/internal/sequence"
	"github.com/suteetoe/fleetbill/internal/service"
	"github.com/suteetoe/fleetbill/pkg/config"
	"github.com/suteetoe/fleetbill/pkg/database"
	"github.com/suteetoe/fleetbill/pkg/jwtutil"
	"github.com/suteetoe/fleetbill/pkg/logger"
	"github.com/suteetoe/fleetbill/pkg/metrics"
	"go.uber.org/zap"
)

const serviceName = "fleetbill"

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()
	log.Info("Starting billing service...", cfg.LogConfig()...)

	// Initialize database
	db, err := database.InitDB(&cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(db, model.All()...); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connection established")

	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})

	svc := service.New(db, access.NewGate(), sequence.NewGenerator(cfg.Sequence.MaxAttempts))

	ctx := context.Background()
	if err := svc.Users.Bootstrap(ctx, cfg.Bootstrap); err != nil {
		log.Fatal("Failed to bootstrap admin account", zap.Error(err))
	}
	if err := svc.Tenants.RefreshActive(ctx); err != nil {
		log.Warn("Failed to count active tenants", zap.Error(err))
	}

	httpMetrics := metrics.NewHTTPMetrics(cfg.Metrics.Prefix, prom.DefaultRegisterer)

	// Initialize Echo framework
	e := echo.New()
	e.HideBanner = true

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(httpMetrics.Middleware())

	auth := middleware.NewAuth(jwt, svc.Users)
	handler.New(db, svc, jwt).Register(e, auth.Middleware)

	port := cfg.Server.Port
	go func() {
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
