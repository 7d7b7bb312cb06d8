package domain

import "time"

// PredictionRequest is the caller-submitted input before validation.
type PredictionRequest struct {
	RequestID string
	Features  map[string]any
	Timeout   time.Duration
}

// ValidatedFeatures is a request normalized against one artifact schema.
// Values holds one entry per schema feature, in schema order; booleans are
// 0 or 1 and categories are the index into Feature.Values.
type ValidatedFeatures struct {
	ArtifactVersion int64
	Values          []float64
}

type PredictionResult struct {
	RequestID       string             `json:"request_id,omitempty"`
	Label           string             `json:"label"`
	Confidence      float64            `json:"confidence"`
	Recommendation  string             `json:"recommendation"`
	ArtifactVersion int64              `json:"artifact_version"`
	Degraded        bool               `json:"degraded"`
	Scores          map[string]float64 `json:"scores,omitempty"`
}

type JobState string

const (
	JobStateAccumulating JobState = "ACCUMULATING"
	JobStateDispatched   JobState = "DISPATCHED"
	JobStateCompleted    JobState = "COMPLETED"
	JobStateFailed       JobState = "FAILED"
)
