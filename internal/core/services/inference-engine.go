package services

import (
	"context"
	"fmt"
	"math"

	"prediction-service/internal/core/domain"
)

const (
	lowConfidenceAdvice = "Low confidence prediction; confirm with an agronomist before treating. "
	degradedAdvice      = "Unable to assess these inputs reliably; retake the sample and try again."
)

// Engine executes one batch of validated requests against an artifact.
// Results are one-to-one and in input order.
type Engine interface {
	Infer(ctx context.Context, artifact *domain.Artifact, batch []domain.ValidatedFeatures) ([]domain.PredictionResult, error)
}

// LinearEngine scores each label with a linear layer followed by softmax.
// It keeps no state between calls.
type LinearEngine struct{}

func NewLinearEngine() *LinearEngine {
	return &LinearEngine{}
}

func (e *LinearEngine) Infer(ctx context.Context, artifact *domain.Artifact, batch []domain.ValidatedFeatures) ([]domain.PredictionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInference, err)
	}
	if artifact == nil {
		return nil, fmt.Errorf("%w: no artifact", domain.ErrInference)
	}
	model := artifact.Model()
	if model == nil {
		return nil, fmt.Errorf("%w: artifact version %d has been evicted", domain.ErrInference, artifact.Version)
	}
	if len(model.Weights) != len(artifact.Labels) || len(model.Offsets) != len(artifact.Schema.Features) {
		return nil, fmt.Errorf("%w: artifact version %d has an inconsistent model", domain.ErrInference, artifact.Version)
	}

	results := make([]domain.PredictionResult, len(batch))
	for i, item := range batch {
		if item.ArtifactVersion != artifact.Version {
			return nil, fmt.Errorf("%w: item %d validated against version %d, batch runs version %d",
				domain.ErrInference, i, item.ArtifactVersion, artifact.Version)
		}
		if len(item.Values) != len(artifact.Schema.Features) {
			return nil, fmt.Errorf("%w: item %d has %d values, schema has %d features",
				domain.ErrInference, i, len(item.Values), len(artifact.Schema.Features))
		}
		results[i] = predictOne(artifact, model, item.Values)
	}
	return results, nil
}

func predictOne(artifact *domain.Artifact, model *domain.Model, values []float64) domain.PredictionResult {
	x := expand(artifact.Schema.Features, model, values)

	logits := make([]float64, len(model.Weights))
	for l, row := range model.Weights {
		z := model.Bias[l]
		for c, w := range row {
			z += w * x[c]
		}
		logits[l] = z
	}

	result := domain.PredictionResult{ArtifactVersion: artifact.Version}
	probs, ok := softmax(logits)
	if !ok {
		result.Label = artifact.Labels[0].Name
		result.Recommendation = degradedAdvice
		result.Degraded = true
		return result
	}

	best := 0
	scores := make(map[string]float64, len(probs))
	for l, p := range probs {
		scores[artifact.Labels[l].Name] = p
		if p > probs[best] {
			best = l
		}
	}

	result.Label = artifact.Labels[best].Name
	result.Confidence = probs[best]
	result.Recommendation = artifact.Labels[best].Recommendation
	result.Scores = scores
	if result.Confidence < artifact.MinConfidence {
		result.Recommendation = lowConfidenceAdvice + result.Recommendation
	}
	return result
}

// expand turns per-feature values into model columns: standardized numerics
// and one-hot categories.
func expand(features []domain.Feature, model *domain.Model, values []float64) []float64 {
	x := make([]float64, model.Columns)
	for i, f := range features {
		off := model.Offsets[i]
		if f.Type == domain.FeatureTypeCategory {
			idx := int(values[i])
			if idx >= 0 && idx < len(f.Values) {
				x[off+idx] = 1
			}
			continue
		}
		v := values[i] - f.Mean
		if f.Std > 0 {
			v /= f.Std
		}
		x[off] = v
	}
	return x
}

// softmax is computed relative to the largest logit. It reports false when
// any logit is not finite.
func softmax(logits []float64) ([]float64, bool) {
	if len(logits) == 0 {
		return nil, false
	}
	maxLogit := math.Inf(-1)
	for _, z := range logits {
		if math.IsNaN(z) || math.IsInf(z, 0) {
			return nil, false
		}
		if z > maxLogit {
			maxLogit = z
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, z := range logits {
		probs[i] = math.Exp(z - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] = math.Min(1, math.Max(0, probs[i]/sum))
	}
	return probs, true
}
