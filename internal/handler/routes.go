package handler

import (
	"github.com/labstack/echo/v4"
)

// Register mounts every route on e. Routes under /api require auth.
func (h *Handler) Register(e *echo.Echo, auth echo.MiddlewareFunc) {
	// Public routes - no authentication required
	e.GET("/health", h.HealthCheck)
	e.GET("/metrics", MetricsHandler)
	e.POST("/auth/login", h.Login)

	api := e.Group("/api")
	api.Use(auth)

	tenants := api.Group("/tenants")
	tenants.GET("", h.ListTenants)
	tenants.POST("", h.CreateTenant)
	tenants.GET("/:id", h.GetTenant)
	tenants.PUT("/:id", h.UpdateTenant)
	tenants.DELETE("/:id", h.DeleteTenant)
	tenants.GET("/:id/stats", h.TenantStats)
	tenants.GET("/:id/settings", h.TenantSettings)

	// /users/me is registered before /users/:id
	users := api.Group("/users")
	users.GET("/me", h.Me)
	users.GET("", h.ListUsers)
	users.POST("", h.CreateUser)
	users.GET("/:id", h.GetUser)
	users.PUT("/:id", h.UpdateUser)
	users.DELETE("/:id", h.DeleteUser)

	mount(api.Group("/branches"), h.svc.Branches, nil)
	mount(api.Group("/vehicle-owners"), h.svc.Owners, nil)
	mount(api.Group("/vehicles"), h.svc.Vehicles, nil)
	mount(api.Group("/parties"), h.svc.Parties, nil)
	mount(api.Group("/drivers"), h.svc.Drivers, nil)
	mount(api.Group("/trips"), h.svc.Trips, nil)
	mount(api.Group("/expenses"), h.svc.Expenses, nil)

	bills := api.Group("/bills")
	bills.POST("/mark-paid", h.MarkBillsPaid)
	bills.POST("/mark-commission-received", h.MarkCommissionReceived)
	mount(bills, h.svc.Bills.Resource, billFilters)

	api.GET("/forms/:kind", h.Form)
	api.GET("/audit-logs", h.ListAuditLogs)
}
