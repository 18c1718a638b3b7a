package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/pavitra93/go-property-management/shared/lifecycle"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/store"
	"github.com/pavitra93/go-property-management/shared/utils"
)

// leaseView is a lease with its derived status
type leaseView struct {
	models.Lease
	EffectiveStatus models.LeaseStatus `json:"effective_status"`
	DaysRemaining   int                `json:"days_remaining"`
}

func newLeaseView(engine *lifecycle.Engine, l *models.Lease) leaseView {
	return leaseView{Lease: *l, EffectiveStatus: engine.EffectiveStatus(l), DaysRemaining: engine.DaysRemaining(l)}
}

// handleGetLeases lists visible leases; ?status= matches the effective status
func handleGetLeases(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		leases, err := loadScoped(c.Request.Context(), app.store.Leases, middleware.CurrentUser(c), c.Query("property_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if status := models.LeaseStatus(c.Query("status")); status != "" {
			leases = app.engine.FilterByStatus(leases, status)
		}
		views := make([]leaseView, len(leases))
		for i := range leases {
			views[i] = newLeaseView(app.engine, &leases[i])
		}
		utils.OKResponse(c, "Leases retrieved successfully", views)
	}
}

func handleGetLease(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		lease, err := loadVisible(c.Request.Context(), app.store.Leases, middleware.CurrentUser(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Lease retrieved successfully", newLeaseView(app.engine, lease))
	}
}

func handleCreateLease(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var req models.CreateLeaseRequest
		if !bindJSON(c, &req) {
			return
		}
		if !requireProperty(c, req.PropertyID) {
			return
		}
		if _, err := loadVisible(ctx, app.store.Tenants, middleware.CurrentUser(c), req.TenantID); err != nil {
			respondError(c, err)
			return
		}
		lease, err := app.coord.CreateLease(ctx, req)
		if err != nil {
			respondError(c, err)
			return
		}
		utils.CreatedResponse(c, "Lease created successfully", newLeaseView(app.engine, lease))
	}
}

// handleUpdateLease changes lease terms; dates and status have their own endpoints
func handleUpdateLease(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		current, err := loadVisible(ctx, app.store.Leases, middleware.CurrentUser(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		var req models.UpdateLeaseRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := models.Validate(req); err != nil {
			respondError(c, err)
			return
		}
		changes := req.Changes()
		if len(changes) == 0 {
			respondError(c, fmt.Errorf("%w: no updatable fields supplied", models.ErrValidation))
			return
		}
		if current.IsTerminated() {
			respondError(c, fmt.Errorf("%w: lease %s is terminated", store.ErrPreconditionFailed, current.ID))
			return
		}
		lease, err := app.store.Leases.UpdateIf(ctx, current.ID, models.Changes{"row_version": current.RowVersion}, changes)
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Lease updated successfully", newLeaseView(app.engine, lease))
	}
}

// handleDeleteLease removes a lease that no longer binds anyone
func handleDeleteLease(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		lease, err := loadVisible(ctx, app.store.Leases, middleware.CurrentUser(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if app.engine.IsLive(lease) {
			respondError(c, fmt.Errorf("%w: lease %s is %s; terminate it first",
				store.ErrPreconditionFailed, lease.ID, app.engine.EffectiveStatus(lease)))
			return
		}
		if err := app.store.Leases.Delete(ctx, lease.ID); err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Lease deleted successfully", nil)
	}
}

func handleRenewLease(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, err := loadVisible(ctx, app.store.Leases, middleware.CurrentUser(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		var req models.RenewLeaseRequest
		if !bindJSON(c, &req) {
			return
		}
		lease, err := app.coord.RenewLease(ctx, c.Param("id"), req)
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Lease renewed successfully", newLeaseView(app.engine, lease))
	}
}

func handleTerminateLease(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, err := loadVisible(ctx, app.store.Leases, middleware.CurrentUser(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		lease, err := app.coord.TerminateLease(ctx, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Lease terminated successfully", newLeaseView(app.engine, lease))
	}
}
