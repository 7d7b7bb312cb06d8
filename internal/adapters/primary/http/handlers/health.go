package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Banner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "ML Service running"})
}

// Healthz reports liveness only; it never touches the prediction path.
func (h *Handler) Healthz(c *gin.Context) {
	resp := gin.H{"status": "ok", "artifact_version": nil}
	if a := h.store.Current(); a != nil {
		resp["artifact_version"] = a.Version
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Readyz(c *gin.Context) {
	switch {
	case h.predictor.Draining():
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "draining"})
	case h.store.Current() == nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "no artifact loaded"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ready", "artifact_version": h.store.Current().Version})
	}
}
