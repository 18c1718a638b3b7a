package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/utils"
)

func handleGetMaintenance(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqs, err := loadScoped(c.Request.Context(), app.store.Maintenance, middleware.CurrentUser(c), c.Query("property_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if status := models.MaintenanceStatus(c.Query("status")); status != "" {
			filtered := make([]models.Maintenance, 0, len(reqs))
			for _, m := range reqs {
				if m.Status == status {
					filtered = append(filtered, m)
				}
			}
			reqs = filtered
		}
		utils.OKResponse(c, "Maintenance requests retrieved successfully", reqs)
	}
}

func handleGetMaintenanceRequest(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := loadVisible(c.Request.Context(), app.store.Maintenance, middleware.CurrentUser(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Maintenance request retrieved successfully", m)
	}
}

func handleCreateMaintenance(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var req models.CreateMaintenanceRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := models.Validate(req); err != nil {
			respondError(c, err)
			return
		}
		if !requireProperty(c, req.PropertyID) {
			return
		}
		m := req.Build()
		if m.UnitID != nil {
			if err := app.checkUnitInProperty(ctx, *m.UnitID, m.PropertyID); err != nil {
				respondError(c, err)
				return
			}
		}
		if m.TenantID != nil {
			if err := app.checkTenantInProperty(ctx, middleware.CurrentUser(c), *m.TenantID, m.PropertyID); err != nil {
				respondError(c, err)
				return
			}
		}
		if err := app.store.Maintenance.Create(ctx, m); err != nil {
			respondError(c, err)
			return
		}
		utils.CreatedResponse(c, "Maintenance request created successfully", m)
	}
}

func handleUpdateMaintenance(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, err := loadVisible(ctx, app.store.Maintenance, middleware.CurrentUser(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		var req models.UpdateMaintenanceRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := models.Validate(req); err != nil {
			respondError(c, err)
			return
		}
		changes := req.Changes(app.store.Now())
		if len(changes) == 0 {
			respondError(c, fmt.Errorf("%w: no updatable fields supplied", models.ErrValidation))
			return
		}
		m, err := app.store.Maintenance.Update(ctx, c.Param("id"), changes)
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Maintenance request updated successfully", m)
	}
}

func handleDeleteMaintenance(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, err := loadVisible(ctx, app.store.Maintenance, middleware.CurrentUser(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		if err := app.store.Maintenance.Delete(ctx, c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Maintenance request deleted successfully", nil)
	}
}
