package services

import (
	"sort"

	"prediction-service/internal/core/domain"
)

// Validator normalizes raw feature maps against an artifact schema.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	strict bool
}

// NewValidator returns a validator. In strict mode features that are not
// part of the schema are rejected instead of ignored.
func NewValidator(strict bool) *Validator {
	return &Validator{strict: strict}
}

func (v *Validator) Strict() bool {
	return v.strict
}

// Validate checks raw against schema in schema order and stops at the first
// violation.
func (v *Validator) Validate(raw map[string]any, schema domain.Schema) (*domain.ValidatedFeatures, error) {
	values := make([]float64, len(schema.Features))
	for i, f := range schema.Features {
		value, ok := raw[f.Name]
		if !ok || value == nil {
			if f.Required {
				return nil, &domain.FieldError{Field: f.Name, Reason: "required feature is missing"}
			}
			value = f.Default
		}

		x, reason := coerceFeature(f, value)
		if reason != "" {
			return nil, &domain.FieldError{Field: f.Name, Reason: reason}
		}
		values[i] = x
	}

	if v.strict {
		if name := firstUnknown(raw, schema); name != "" {
			return nil, &domain.FieldError{Field: name, Reason: "unknown feature"}
		}
	}

	return &domain.ValidatedFeatures{ArtifactVersion: schema.Version, Values: values}, nil
}

func firstUnknown(raw map[string]any, schema domain.Schema) string {
	known := make(map[string]bool, len(schema.Features))
	for _, f := range schema.Features {
		known[f.Name] = true
	}
	var unknown []string
	for name := range raw {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return ""
	}
	sort.Strings(unknown)
	return unknown[0]
}
