package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/occupancy"
	"github.com/pavitra93/go-property-management/shared/stats"
	"github.com/pavitra93/go-property-management/shared/utils"
)

func handleHealth(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{"store": "ok", "breaker": app.store.Breaker()}
		if err := app.store.Ping(c.Request.Context()); err != nil {
			status["store"] = "unavailable"
			c.JSON(http.StatusServiceUnavailable, utils.APIResponse{Success: false, Error: "Back office is degraded", Data: status})
			return
		}
		utils.OKResponse(c, "Back office is healthy", status)
	}
}

func handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.OKResponse(c, "Current user", middleware.CurrentUser(c))
	}
}

// scopedEntities loads every collection the dashboard reduces over
func (app *App) scopedEntities(ctx context.Context, user *models.User, propertyID string) (stats.Entities, error) {
	var (
		in  stats.Entities
		err error
	)
	if in.Properties, err = loadScoped(ctx, app.store.Properties, user, propertyID); err != nil {
		return in, err
	}
	if in.Units, err = loadScoped(ctx, app.store.Units, user, propertyID); err != nil {
		return in, err
	}
	if in.Tenants, err = loadScoped(ctx, app.store.Tenants, user, propertyID); err != nil {
		return in, err
	}
	if in.Leases, err = loadScoped(ctx, app.store.Leases, user, propertyID); err != nil {
		return in, err
	}
	if in.Payments, err = loadScoped(ctx, app.store.Payments, user, propertyID); err != nil {
		return in, err
	}
	in.Maintenance, err = loadScoped(ctx, app.store.Maintenance, user, propertyID)
	return in, err
}

// handleDashboardStats computes the dashboard over the caller's scope
func handleDashboardStats(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, err := app.scopedEntities(c.Request.Context(), middleware.CurrentUser(c), c.Query("property_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Dashboard statistics computed", stats.Compute(in, app.engine))
	}
}

// handleIntegrity audits unit/tenant/lease cross-references within the caller's scope
func handleIntegrity(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		user := middleware.CurrentUser(c)
		units, err := loadScoped(ctx, app.store.Units, user, c.Query("property_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		tenants, err := loadScoped(ctx, app.store.Tenants, user, c.Query("property_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		leases, err := loadScoped(ctx, app.store.Leases, user, c.Query("property_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		report := occupancy.Audit(units, tenants, leases, app.engine)
		if !report.Consistent() {
			utils.Logger.WithField("violations", len(report.Violations)).Warn("occupancy audit found violations")
		}
		utils.OKResponse(c, "Integrity report", report)
	}
}
