package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"prediction-service/internal/core/domain"
	"prediction-service/internal/core/ports/output"
)

// artifactDocument is the JSON layout written by the training pipeline.
type artifactDocument struct {
	Version       int64             `json:"version"`
	Name          string            `json:"name"`
	MinConfidence float64           `json:"min_confidence"`
	Features      []featureDocument `json:"features"`
	Labels        []labelDocument   `json:"labels"`
}

type featureDocument struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required *bool    `json:"required"`
	Default  any      `json:"default"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Values   []string `json:"values"`
	Mean     float64  `json:"mean"`
	Std      float64  `json:"std"`
}

type labelDocument struct {
	Name           string             `json:"name"`
	Bias           float64            `json:"bias"`
	Weights        map[string]float64 `json:"weights"`
	Recommendation string             `json:"recommendation"`
}

// DecodeArtifact parses and compiles an artifact document. The returned
// artifact holds one reference owned by the caller.
func DecodeArtifact(blob *ports.ArtifactBlob) (*domain.Artifact, error) {
	if blob == nil || len(bytes.TrimSpace(blob.Data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", domain.ErrInvalidArtifact)
	}

	var doc artifactDocument
	dec := json.NewDecoder(bytes.NewReader(blob.Data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArtifact, err)
	}

	if doc.Version <= 0 {
		return nil, fmt.Errorf("%w: version must be a positive integer", domain.ErrInvalidArtifact)
	}
	if doc.MinConfidence < 0 || doc.MinConfidence > 1 {
		return nil, fmt.Errorf("%w: min_confidence must be within [0,1]", domain.ErrInvalidArtifact)
	}

	features, err := decodeFeatures(doc.Features)
	if err != nil {
		return nil, err
	}
	labels, model, err := compileLabels(doc.Labels, features)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(blob.Data)
	artifact := domain.NewArtifact(doc.Version, hex.EncodeToString(sum[:]), features, labels, model)
	artifact.Name = doc.Name
	artifact.Source = blob.Ref
	artifact.MinConfidence = doc.MinConfidence
	artifact.LoadedAt = time.Now().UTC()
	return artifact, nil
}

func decodeFeatures(docs []featureDocument) ([]domain.Feature, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: at least one feature is required", domain.ErrInvalidArtifact)
	}

	seen := make(map[string]bool, len(docs))
	features := make([]domain.Feature, 0, len(docs))
	for i, d := range docs {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: feature %d has no name", domain.ErrInvalidArtifact, i)
		}
		if strings.Contains(name, "=") {
			return nil, fmt.Errorf("%w: feature name %q must not contain '='", domain.ErrInvalidArtifact, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate feature %q", domain.ErrInvalidArtifact, name)
		}
		seen[name] = true

		f := domain.Feature{
			Name:     name,
			Type:     domain.FeatureType(strings.ToLower(strings.TrimSpace(d.Type))),
			Required: d.Required == nil || *d.Required,
			Default:  d.Default,
			Min:      d.Min,
			Max:      d.Max,
			Mean:     d.Mean,
			Std:      d.Std,
		}
		if f.Type == "" {
			f.Type = domain.FeatureTypeNumber
		}
		if !domain.SupportedFeatureTypes[f.Type] {
			return nil, fmt.Errorf("%w: feature %q has unsupported type %q", domain.ErrInvalidArtifact, name, d.Type)
		}

		if err := checkFeatureShape(&f, d.Values); err != nil {
			return nil, err
		}
		if !f.Required {
			if f.Default == nil {
				return nil, fmt.Errorf("%w: optional feature %q needs a default", domain.ErrInvalidArtifact, name)
			}
			if _, reason := coerceFeature(f, f.Default); reason != "" {
				return nil, fmt.Errorf("%w: default of feature %q: %s", domain.ErrInvalidArtifact, name, reason)
			}
		}
		features = append(features, f)
	}
	return features, nil
}

func checkFeatureShape(f *domain.Feature, values []string) error {
	for _, v := range []*float64{f.Min, f.Max} {
		if v != nil && !finite(*v) {
			return fmt.Errorf("%w: feature %q has a non-finite bound", domain.ErrInvalidArtifact, f.Name)
		}
	}
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return fmt.Errorf("%w: feature %q has min > max", domain.ErrInvalidArtifact, f.Name)
	}
	if !finite(f.Mean) || !finite(f.Std) || f.Std < 0 {
		return fmt.Errorf("%w: feature %q has invalid standardization", domain.ErrInvalidArtifact, f.Name)
	}

	if f.Type != domain.FeatureTypeCategory {
		if len(values) > 0 {
			return fmt.Errorf("%w: feature %q lists values but is not a category", domain.ErrInvalidArtifact, f.Name)
		}
		return nil
	}

	if len(values) == 0 {
		return fmt.Errorf("%w: category feature %q has no values", domain.ErrInvalidArtifact, f.Name)
	}
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			return fmt.Errorf("%w: category feature %q has an empty or duplicate value", domain.ErrInvalidArtifact, f.Name)
		}
		seen[key] = true
		f.Values = append(f.Values, v)
	}
	return nil
}

// compileLabels builds the dense weight matrix. Numeric features are keyed
// by name, category columns by "feature=value".
func compileLabels(docs []labelDocument, features []domain.Feature) ([]domain.Label, *domain.Model, error) {
	if len(docs) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one label is required", domain.ErrInvalidArtifact)
	}

	model := &domain.Model{Offsets: make([]int, len(features))}
	columns := make(map[string]int)
	for i, f := range features {
		model.Offsets[i] = model.Columns
		if f.Type == domain.FeatureTypeCategory {
			for j, v := range f.Values {
				columns[f.Name+"="+strings.ToLower(v)] = model.Columns + j
			}
		} else {
			columns[f.Name] = model.Columns
		}
		model.Columns += f.Width()
	}

	seen := make(map[string]bool, len(docs))
	labels := make([]domain.Label, 0, len(docs))
	for i, d := range docs {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return nil, nil, fmt.Errorf("%w: label %d has no name", domain.ErrInvalidArtifact, i)
		}
		if seen[name] {
			return nil, nil, fmt.Errorf("%w: duplicate label %q", domain.ErrInvalidArtifact, name)
		}
		seen[name] = true
		if !finite(d.Bias) {
			return nil, nil, fmt.Errorf("%w: label %q has a non-finite bias", domain.ErrInvalidArtifact, name)
		}

		row := make([]float64, model.Columns)
		for key, w := range d.Weights {
			col, ok := columns[columnKey(key)]
			if !ok {
				return nil, nil, fmt.Errorf("%w: label %q weights unknown column %q", domain.ErrInvalidArtifact, name, key)
			}
			if !finite(w) {
				return nil, nil, fmt.Errorf("%w: label %q has a non-finite weight for %q", domain.ErrInvalidArtifact, name, key)
			}
			row[col] = w
		}

		labels = append(labels, domain.Label{Name: name, Recommendation: strings.TrimSpace(d.Recommendation)})
		model.Bias = append(model.Bias, d.Bias)
		model.Weights = append(model.Weights, row)
	}
	return labels, model, nil
}

func columnKey(key string) string {
	name, value, ok := strings.Cut(key, "=")
	if !ok {
		return strings.TrimSpace(key)
	}
	return strings.TrimSpace(name) + "=" + strings.ToLower(strings.TrimSpace(value))
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
