// Package handlers exposes the HTTP API.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/cardpress/internal/models"
)

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrInvalidFeed):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrDuplicate),
		errors.Is(err, models.ErrAlreadyInProgress),
		errors.Is(err, models.ErrStaleWrite),
		errors.Is(err, models.ErrNothingToUndo):
		return http.StatusConflict
	case errors.Is(err, models.ErrFeedUnreachable), errors.Is(err, models.ErrFeedUnparseable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a typed error. Internal causes are not leaked for 5xx.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
