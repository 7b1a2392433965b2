package handlers

import (
	"errors"
	"net/http"

	"model-promotion-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrModelNotFound),
		errors.Is(err, domain.ErrVersionNotFound),
		errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, domain.ErrNoModelAvailable):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Conflict errors
	case errors.Is(err, domain.ErrDuplicateRun),
		errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrUnrecognizedTag),
		errors.Is(err, domain.ErrInvalidStage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Store unreachable
	case errors.Is(err, domain.ErrRegistryUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
