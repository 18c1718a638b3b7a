package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/store"
	"github.com/pavitra93/go-property-management/shared/utils"
)

// Staff management; the router restricts these to super_admin.

func handleGetUsers(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := app.store.Users.GetAll(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Users retrieved successfully", users)
	}
}

func handleGetUser(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := app.store.Users.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "User retrieved successfully", user)
	}
}

func handleCreateUser(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var req models.CreateUserRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := models.Validate(req); err != nil {
			respondError(c, err)
			return
		}
		if err := app.checkProperties(ctx, req.PropertyIDs); err != nil {
			respondError(c, err)
			return
		}
		user := req.Build()
		if err := app.store.Users.Create(ctx, user); err != nil {
			respondError(c, err)
			return
		}
		utils.CreatedResponse(c, "User created successfully", user)
	}
}

func handleUpdateUser(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var req models.UpdateUserRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := models.Validate(req); err != nil {
			respondError(c, err)
			return
		}
		if req.PropertyIDs != nil {
			if err := app.checkProperties(ctx, *req.PropertyIDs); err != nil {
				respondError(c, err)
				return
			}
		}
		changes := req.Changes()
		if len(changes) == 0 {
			respondError(c, fmt.Errorf("%w: no updatable fields supplied", models.ErrValidation))
			return
		}
		user, err := app.store.Users.Update(ctx, c.Param("id"), changes)
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "User updated successfully", user)
	}
}

// checkProperties fails when any assigned property does not exist
func (app *App) checkProperties(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := app.store.Properties.FindBy(ctx, "id", ids...)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(found))
	for _, p := range found {
		known[p.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return fmt.Errorf("%w: property %s does not exist", store.ErrConstraintViolation, id)
		}
	}
	return nil
}
