package handlers

import (
	"net/http"
	"strconv"

	"prediction-service/internal/adapters/primary/http/dto"
	"prediction-service/internal/core/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ListReports(c *gin.Context) {
	if h.reports == nil {
		mapDomainError(c, domain.ErrReportsDisabled)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		mapDomainError(c, domain.ErrInvalidLimit)
		return
	}

	reports, err := h.reports.ListRecent(c.Request.Context(), limit)
	if err != nil {
		log.WithError(err).Error("list prediction reports failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.PredictionReportResponse, 0, len(reports))
	for _, r := range reports {
		items = append(items, dto.ToPredictionReportResponse(r))
	}

	c.JSON(http.StatusOK, dto.ListPredictionReportsResponse{
		Items:    items,
		PageSize: limit,
	})
}
