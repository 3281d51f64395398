package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"school-app-server/internal/services"
	"school-app-server/internal/utils"
)

// respondError maps a service error onto the response envelope.
func respondError(c *gin.Context, err error, failure string) {
	var conflict *services.ConflictError
	switch {
	case errors.As(err, &conflict):
		utils.Conflict(c, "This time was just taken, please pick another slot: "+conflict.Error(), conflict)
	case errors.Is(err, services.ErrValidation):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, services.ErrForbidden):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		utils.UnprocessableEntity(c, err.Error())
	default:
		_ = c.Error(err)
		utils.InternalServerError(c, failure)
	}
}
