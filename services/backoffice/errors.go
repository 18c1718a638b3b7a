package main

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/store"
	"github.com/pavitra93/go-property-management/shared/utils"
)

// respondError maps store and validation errors onto the response envelope
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		utils.BadRequestResponse(c, err.Error())
	case errors.Is(err, store.ErrNotFound):
		utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, store.ErrPreconditionFailed):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, store.ErrConstraintViolation), errors.Is(err, store.ErrInvalidField):
		utils.UnprocessableResponse(c, err.Error())
	case errors.Is(err, store.ErrTransient):
		utils.ServiceUnavailableResponse(c, "Store temporarily unavailable")
	default:
		utils.Logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		utils.InternalServerErrorResponse(c, "Internal error")
	}
}

// bindJSON decodes the body into req, rejecting unknown fields
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format: "+err.Error())
		return false
	}
	return true
}
