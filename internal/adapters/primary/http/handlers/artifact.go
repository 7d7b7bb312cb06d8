package handlers

import (
	"errors"
	"io"
	"net/http"

	"prediction-service/internal/adapters/primary/http/dto"
	"prediction-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetArtifact(c *gin.Context) {
	a := h.store.Current()
	if a == nil {
		mapDomainError(c, domain.ErrNoArtifact)
		return
	}
	c.JSON(http.StatusOK, dto.ToArtifactResponse(a))
}

func (h *Handler) GetArtifactSchema(c *gin.Context) {
	a := h.store.Current()
	if a == nil {
		mapDomainError(c, domain.ErrNoArtifact)
		return
	}
	c.JSON(http.StatusOK, dto.ToInputSchema(a, h.predictor.StrictValidation()))
}

func (h *Handler) ReloadArtifact(c *gin.Context) {
	// An empty body, including a chunked one, reloads the configured ref.
	var req dto.ReloadArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.store.Reload(c.Request.Context(), req.Ref)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
