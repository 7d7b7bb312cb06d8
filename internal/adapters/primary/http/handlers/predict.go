package handlers

import (
	"errors"
	"net/http"

	"prediction-service/internal/adapters/primary/http/dto"
	"prediction-service/internal/core/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) Predict(c *gin.Context) {
	var req dto.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RequestID == "" {
		req.RequestID = c.GetString("request_id")
	}

	result, err := h.predictor.Predict(c.Request.Context(), req.ToDomain())
	if err != nil {
		if !errors.Is(err, domain.ErrValidation) {
			log.WithError(err).WithField("request_id", req.RequestID).Warn("prediction failed")
		}
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPredictResponse(result))
}
