package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"conference-booking-server/services"
)

// respondServiceError maps the typed domain errors onto HTTP responses.
// Every mutating endpoint answers with a {success, message} pair.
func respondServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrResourceBusy):
		status = http.StatusConflict
	case errors.Is(err, services.ErrResourceRequired):
		status = http.StatusUnprocessableEntity
	}

	var providerErr *services.ExternalProviderError
	if errors.As(err, &providerErr) {
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{
		"success": false,
		"message": err.Error(),
	})
}
