package dto

import (
	"time"

	"prediction-service/internal/core/domain"
)

// ============================================================================
// Artifact DTOs
// ============================================================================

type FeatureResponse struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Default  any      `json:"default,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Values   []string `json:"values,omitempty"`
}

type ArtifactResponse struct {
	Version       int64             `json:"version"`
	Name          string            `json:"name"`
	Digest        string            `json:"digest"`
	Source        string            `json:"source"`
	LoadedAt      time.Time         `json:"loaded_at"`
	MinConfidence float64           `json:"min_confidence"`
	Features      []FeatureResponse `json:"features"`
	Labels        []string          `json:"labels"`
}

func ToArtifactResponse(a *domain.Artifact) ArtifactResponse {
	features := make([]FeatureResponse, 0, len(a.Schema.Features))
	for _, f := range a.Schema.Features {
		features = append(features, FeatureResponse{
			Name:     f.Name,
			Type:     string(f.Type),
			Required: f.Required,
			Default:  f.Default,
			Min:      f.Min,
			Max:      f.Max,
			Values:   f.Values,
		})
	}
	return ArtifactResponse{
		Version:       a.Version,
		Name:          a.Name,
		Digest:        a.Digest,
		Source:        a.Source,
		LoadedAt:      a.LoadedAt,
		MinConfidence: a.MinConfidence,
		Features:      features,
		Labels:        a.LabelNames(),
	}
}

type ReloadArtifactRequest struct {
	Ref string `json:"ref"`
}
