package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetStats(c *gin.Context) {
	resp := gin.H{
		"scheduler":        h.scheduler.Stats(),
		"draining":         h.predictor.Draining(),
		"artifact_version": nil,
	}
	if a := h.store.Current(); a != nil {
		resp["artifact_version"] = a.Version
		resp["artifact_refs"] = a.Refs()
	}
	c.JSON(http.StatusOK, resp)
}
