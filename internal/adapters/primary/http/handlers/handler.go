package handlers

import (
	"prediction-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	predictor *services.Predictor
	store     *services.ArtifactStore
	scheduler *services.Scheduler
	reports   *services.PredictionReportService
}

// New builds the HTTP handler. reports may be nil when persistence is disabled.
func New(
	predictor *services.Predictor,
	store *services.ArtifactStore,
	scheduler *services.Scheduler,
	reports *services.PredictionReportService,
) *Handler {
	return &Handler{
		predictor: predictor,
		store:     store,
		scheduler: scheduler,
		reports:   reports,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Predictions
	r.POST("/predict", h.Predict)

	// Artifact
	r.GET("/artifact", h.GetArtifact)
	r.GET("/artifact/schema", h.GetArtifactSchema)
	r.POST("/artifact/reload", h.ReloadArtifact)

	// Reports
	r.GET("/reports", h.ListReports)

	// Stats
	r.GET("/stats", h.GetStats)
}

// RegisterProbes mounts the root banner, the legacy predict path and the
// health probes.
func (h *Handler) RegisterProbes(r gin.IRoutes) {
	r.GET("/", h.Banner)
	r.POST("/predict", h.Predict)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
}
