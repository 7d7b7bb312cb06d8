package domain

import (
	"time"

	"github.com/google/uuid"
)

// PredictionReport is a served prediction kept for later review.
type PredictionReport struct {
	ID              uuid.UUID `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	RequestID       string    `json:"request_id"`
	Label           string    `json:"label"`
	Confidence      float64   `json:"confidence"`
	Recommendation  string    `json:"recommendation"`
	ArtifactVersion int64     `json:"artifact_version"`
	Degraded        bool      `json:"degraded"`
}

func NewPredictionReport(result PredictionResult) *PredictionReport {
	return &PredictionReport{
		ID:              uuid.New(),
		CreatedAt:       time.Now().UTC(),
		RequestID:       result.RequestID,
		Label:           result.Label,
		Confidence:      result.Confidence,
		Recommendation:  result.Recommendation,
		ArtifactVersion: result.ArtifactVersion,
		Degraded:        result.Degraded,
	}
}
