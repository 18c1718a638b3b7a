package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/utils"
)

// handleGetUnits lists visible units, filtered by ?property_id= and ?status=
func handleGetUnits(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		units, err := loadScoped(c.Request.Context(), app.store.Units, middleware.CurrentUser(c), c.Query("property_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if status := models.UnitStatus(c.Query("status")); status != "" {
			filtered := make([]models.Unit, 0, len(units))
			for _, u := range units {
				if u.Status == status {
					filtered = append(filtered, u)
				}
			}
			units = filtered
		}
		utils.OKResponse(c, "Units retrieved successfully", units)
	}
}

func handleGetUnit(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		unit, err := loadVisible(c.Request.Context(), app.store.Units, middleware.CurrentUser(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Unit retrieved successfully", unit)
	}
}

func handleCreateUnit(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateUnitRequest
		if !bindJSON(c, &req) {
			return
		}
		if !requireProperty(c, req.PropertyID) {
			return
		}
		unit, err := app.coord.CreateUnit(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		utils.CreatedResponse(c, "Unit created successfully", unit)
	}
}

func handleUpdateUnit(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, err := loadVisible(ctx, app.store.Units, middleware.CurrentUser(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		var req models.UpdateUnitRequest
		if !bindJSON(c, &req) {
			return
		}
		unit, err := app.coord.UpdateUnit(ctx, c.Param("id"), req)
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Unit updated successfully", unit)
	}
}

func handleDeleteUnit(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, err := loadVisible(ctx, app.store.Units, middleware.CurrentUser(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		if err := app.coord.DeleteUnit(ctx, c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Unit deleted successfully", nil)
	}
}

// handleAssignTenant moves a visible tenant into a visible vacant unit
func handleAssignTenant(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		user := middleware.CurrentUser(c)
		if _, err := loadVisible(ctx, app.store.Units, user, c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		var req models.AssignTenantRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := models.Validate(req); err != nil {
			respondError(c, err)
			return
		}
		if _, err := loadVisible(ctx, app.store.Tenants, user, req.TenantID); err != nil {
			respondError(c, err)
			return
		}
		occ, err := app.coord.AssignTenantToUnit(ctx, req.TenantID, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Tenant assigned successfully", occ)
	}
}

// handleUnitTransition runs one of the unit status transitions
func handleUnitTransition(app *App, message string, op func(context.Context, string) (*models.Unit, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, err := loadVisible(ctx, app.store.Units, middleware.CurrentUser(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		unit, err := op(ctx, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, message, unit)
	}
}
