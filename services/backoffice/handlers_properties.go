package main

import (
	"github.com/gin-gonic/gin"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/utils"
)

// handleGetProperties lists the properties assigned to the caller
func handleGetProperties(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		props, err := loadScoped(c.Request.Context(), app.store.Properties, middleware.CurrentUser(c), c.Query("property_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Properties retrieved successfully", props)
	}
}

func handleGetProperty(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		prop, err := loadVisible(c.Request.Context(), app.store.Properties, middleware.CurrentUser(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Property retrieved successfully", prop)
	}
}

// handleCreateProperty creates a property (super_admin only)
func handleCreateProperty(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreatePropertyRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := models.Validate(req); err != nil {
			respondError(c, err)
			return
		}
		prop := req.Build()
		if err := app.store.Properties.Create(c.Request.Context(), prop); err != nil {
			respondError(c, err)
			return
		}
		utils.CreatedResponse(c, "Property created successfully", prop)
	}
}

func handleUpdateProperty(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, err := loadVisible(ctx, app.store.Properties, middleware.CurrentUser(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		var req models.UpdatePropertyRequest
		if !bindJSON(c, &req) {
			return
		}
		prop, err := app.coord.UpdateProperty(ctx, c.Param("id"), req)
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Property updated successfully", prop)
	}
}

// handleDeleteProperty deletes an empty property (super_admin only)
func handleDeleteProperty(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := app.coord.DeleteProperty(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Property deleted successfully", nil)
	}
}
