package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/utils"
	"github.com/sirupsen/logrus"
)

// newRouter registers every back-office route behind auth
func newRouter(app *App, auth *middleware.AuthMiddleware) *gin.Engine {
	binding.EnableDecoderDisallowUnknownFields = true

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/health", handleHealth(app))

	api := router.Group("/")
	api.Use(auth.RequireAuth())
	superAdmin := auth.RequireRole(models.RoleSuperAdmin)

	api.GET("/me", handleMe())
	api.GET("/dashboard/stats", handleDashboardStats(app))
	api.GET("/integrity", handleIntegrity(app))

	properties := api.Group("/properties")
	{
		properties.GET("", handleGetProperties(app))
		properties.POST("", superAdmin, handleCreateProperty(app))
		properties.GET("/:id", handleGetProperty(app))
		properties.PATCH("/:id", handleUpdateProperty(app))
		properties.DELETE("/:id", superAdmin, handleDeleteProperty(app))
	}

	units := api.Group("/units")
	{
		units.GET("", handleGetUnits(app))
		units.POST("", handleCreateUnit(app))
		units.GET("/:id", handleGetUnit(app))
		units.PATCH("/:id", handleUpdateUnit(app))
		units.DELETE("/:id", handleDeleteUnit(app))
		units.POST("/:id/assign", handleAssignTenant(app))
		units.POST("/:id/release", handleUnitTransition(app, "Unit released successfully", app.coord.ReleaseUnit))
		units.POST("/:id/maintenance", handleUnitTransition(app, "Unit marked for maintenance", app.coord.MarkUnitMaintenance))
		units.POST("/:id/restore", handleUnitTransition(app, "Unit restored successfully", app.coord.RestoreUnit))
	}

	tenants := api.Group("/tenants")
	{
		tenants.GET("", handleGetTenants(app))
		tenants.POST("", handleCreateTenant(app))
		tenants.GET("/:id", handleGetTenant(app))
		tenants.PATCH("/:id", handleUpdateTenant(app))
		tenants.DELETE("/:id", handleDeleteTenant(app))
	}

	leases := api.Group("/leases")
	{
		leases.GET("", handleGetLeases(app))
		leases.POST("", handleCreateLease(app))
		leases.GET("/:id", handleGetLease(app))
		leases.PATCH("/:id", handleUpdateLease(app))
		leases.DELETE("/:id", handleDeleteLease(app))
		leases.POST("/:id/renew", handleRenewLease(app))
		leases.POST("/:id/terminate", handleTerminateLease(app))
	}

	payments := api.Group("/payments")
	{
		payments.GET("", handleGetPayments(app))
		payments.POST("", handleCreatePayment(app))
		payments.GET("/:id", handleGetPayment(app))
		payments.PATCH("/:id", handleUpdatePayment(app))
		payments.DELETE("/:id", handleDeletePayment(app))
	}

	maintenance := api.Group("/maintenance")
	{
		maintenance.GET("", handleGetMaintenance(app))
		maintenance.POST("", handleCreateMaintenance(app))
		maintenance.GET("/:id", handleGetMaintenanceRequest(app))
		maintenance.PATCH("/:id", handleUpdateMaintenance(app))
		maintenance.DELETE("/:id", handleDeleteMaintenance(app))
	}

	users := api.Group("/users", superAdmin)
	{
		users.GET("", handleGetUsers(app))
		users.POST("", handleCreateUser(app))
		users.GET("/:id", handleGetUser(app))
		users.PATCH("/:id", handleUpdateUser(app))
	}

	return router
}

// requestLogger logs each request through the shared logrus logger
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := utils.Logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if user := middleware.CurrentUser(c); user != nil {
			entry = entry.WithField("user_id", user.ID)
		}
		if c.Writer.Status() >= 500 {
			entry.Warn("request completed")
			return
		}
		entry.Debug("request completed")
	}
}
