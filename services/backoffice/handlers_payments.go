package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/utils"
)

// paymentView is a payment with its derived status
type paymentView struct {
	models.Payment
	EffectiveStatus models.PaymentStatus `json:"effective_status"`
}

func (app *App) paymentView(p *models.Payment) paymentView {
	return paymentView{Payment: *p, EffectiveStatus: app.engine.PaymentStatus(p)}
}

// handleGetPayments lists visible payments; ?status= matches the derived status
func handleGetPayments(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		payments, err := loadScoped(c.Request.Context(), app.store.Payments, middleware.CurrentUser(c), c.Query("property_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		status := models.PaymentStatus(c.Query("status"))
		views := make([]paymentView, 0, len(payments))
		for i := range payments {
			v := app.paymentView(&payments[i])
			if status == "" || v.EffectiveStatus == status {
				views = append(views, v)
			}
		}
		utils.OKResponse(c, "Payments retrieved successfully", views)
	}
}

func handleGetPayment(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		payment, err := loadVisible(c.Request.Context(), app.store.Payments, middleware.CurrentUser(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Payment retrieved successfully", app.paymentView(payment))
	}
}

func handleCreatePayment(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var req models.CreatePaymentRequest
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
		if err := app.checkUnitInProperty(ctx, req.UnitID, req.PropertyID); err != nil {
			respondError(c, err)
			return
		}
		if err := app.checkTenantInProperty(ctx, middleware.CurrentUser(c), req.TenantID, req.PropertyID); err != nil {
			respondError(c, err)
			return
		}
		payment := req.Build(app.store.Now())
		if err := app.store.Payments.Create(ctx, payment); err != nil {
			respondError(c, err)
			return
		}
		utils.CreatedResponse(c, "Payment recorded successfully", app.paymentView(payment))
	}
}

func handleUpdatePayment(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, err := loadVisible(ctx, app.store.Payments, middleware.CurrentUser(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		var req models.UpdatePaymentRequest
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
		payment, err := app.store.Payments.Update(ctx, c.Param("id"), changes)
		if err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Payment updated successfully", app.paymentView(payment))
	}
}

func handleDeletePayment(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, err := loadVisible(ctx, app.store.Payments, middleware.CurrentUser(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		if err := app.store.Payments.Delete(ctx, c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		utils.OKResponse(c, "Payment deleted successfully", nil)
	}
}
