package main

import (
	"github.com/gin-gonic/gin"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/utils"
)

func handleGetTenants(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenants, err := loadScoped(c.Request.Context(), app.store.Tenants, middleware.CurrentUser(c), c.Query("property_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Tenants retrieved successfully", tenants)
	}
}

func handleGetTenant(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, err := loadVisible(c.Request.Context(), app.store.Tenants, middleware.CurrentUser(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Tenant retrieved successfully", tenant)
	}
}

// handleCreateTenant creates a tenant, assigning the unit when one is named
func handleCreateTenant(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateTenantRequest
		if !bindJSON(c, &req) {
			return
		}
		if !requireProperty(c, req.PropertyID) {
			return
		}
		tenant, err := app.coord.CreateTenant(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		utils.CreatedResponse(c, "Tenant created successfully", tenant)
	}
}

func handleUpdateTenant(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, err := loadVisible(ctx, app.store.Tenants, middleware.CurrentUser(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		var req models.UpdateTenantRequest
		if !bindJSON(c, &req) {
			return
		}
		tenant, err := app.coord.UpdateTenant(ctx, c.Param("id"), req)
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Tenant updated successfully", tenant)
	}
}

// handleDeleteTenant deletes a tenant without a live lease and frees their unit
func handleDeleteTenant(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, err := loadVisible(ctx, app.store.Tenants, middleware.CurrentUser(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		if err := app.coord.DeleteTenant(ctx, c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Tenant deleted successfully", nil)
	}
}
