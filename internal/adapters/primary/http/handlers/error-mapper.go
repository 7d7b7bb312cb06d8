package handlers

import (
	"context"
	"errors"
	"net/http"

	"prediction-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	var fieldErr *domain.FieldError

	switch {
	// Validation errors
	case errors.As(err, &fieldErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": fieldErr.Field})
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidLimit):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Artifact load errors
	case errors.Is(err, domain.ErrArtifactLoad):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	// Deadline errors
	case errors.Is(err, domain.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "request canceled"})

	// Service unavailable errors
	case errors.Is(err, domain.ErrNoArtifact),
		errors.Is(err, domain.ErrInference),
		errors.Is(err, domain.ErrShuttingDown),
		errors.Is(err, domain.ErrReportsDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
