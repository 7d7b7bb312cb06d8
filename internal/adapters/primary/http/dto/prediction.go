package dto

import (
	"time"

	"github.com/google/uuid"

	"prediction-service/internal/core/domain"
)

// ============================================================================
// Prediction DTOs
// ============================================================================

type PredictRequest struct {
	RequestID string         `json:"request_id" binding:"max=128"`
	Features  map[string]any `json:"features" binding:"required"`
	TimeoutMs int            `json:"timeout_ms" binding:"min=0,max=60000"`
}

func (r PredictRequest) ToDomain() domain.PredictionRequest {
	return domain.PredictionRequest{
		RequestID: r.RequestID,
		Features:  r.Features,
		Timeout:   time.Duration(r.TimeoutMs) * time.Millisecond,
	}
}

type PredictResponse struct {
	RequestID       string             `json:"request_id"`
	Label           string             `json:"label"`
	Confidence      float64            `json:"confidence"`
	Recommendation  string             `json:"recommendation"`
	ArtifactVersion int64              `json:"artifact_version"`
	Degraded        bool               `json:"degraded"`
	Scores          map[string]float64 `json:"scores,omitempty"`
}

func ToPredictResponse(r *domain.PredictionResult) PredictResponse {
	return PredictResponse{
		RequestID:       r.RequestID,
		Label:           r.Label,
		Confidence:      r.Confidence,
		Recommendation:  r.Recommendation,
		ArtifactVersion: r.ArtifactVersion,
		Degraded:        r.Degraded,
		Scores:          r.Scores,
	}
}

// ============================================================================
// Prediction Report DTOs
// ============================================================================

type PredictionReportResponse struct {
	ID              uuid.UUID `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	RequestID       string    `json:"request_id"`
	Label           string    `json:"label"`
	Confidence      float64   `json:"confidence"`
	Recommendation  string    `json:"recommendation"`
	ArtifactVersion int64     `json:"artifact_version"`
	Degraded        bool      `json:"degraded"`
}

type ListPredictionReportsResponse struct {
	Items    []PredictionReportResponse `json:"items"`
	PageSize int                        `json:"page_size"`
}

func ToPredictionReportResponse(r *domain.PredictionReport) PredictionReportResponse {
	return PredictionReportResponse{
		ID:              r.ID,
		CreatedAt:       r.CreatedAt,
		RequestID:       r.RequestID,
		Label:           r.Label,
		Confidence:      r.Confidence,
		Recommendation:  r.Recommendation,
		ArtifactVersion: r.ArtifactVersion,
		Degraded:        r.Degraded,
	}
}
