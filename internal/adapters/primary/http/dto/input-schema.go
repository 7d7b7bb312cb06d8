package dto

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/invopop/jsonschema"

	"prediction-service/internal/core/domain"
)

// ToInputSchema describes the "features" object accepted by the given
// artifact as a JSON Schema document.
func ToInputSchema(a *domain.Artifact, strict bool) *jsonschema.Schema {
	props := jsonschema.NewProperties()
	var required []string

	for _, f := range a.Schema.Features {
		props.Set(f.Name, featureSchema(f))
		if f.Required {
			required = append(required, f.Name)
		}
	}

	schema := &jsonschema.Schema{
		Version:     jsonschema.Version,
		ID:          jsonschema.ID(fmt.Sprintf("urn:prediction-service:artifact:%d:input", a.Version)),
		Title:       a.Name,
		Description: fmt.Sprintf("Input features for artifact version %d", a.Version),
		Type:        "object",
		Properties:  props,
		Required:    required,
	}
	if strict {
		schema.AdditionalProperties = jsonschema.FalseSchema
	}
	return schema
}

func featureSchema(f domain.Feature) *jsonschema.Schema {
	s := &jsonschema.Schema{Default: f.Default}
	switch f.Type {
	case domain.FeatureTypeNumber, domain.FeatureTypeInteger:
		s.Type = string(f.Type)
		if f.Min != nil {
			s.Minimum = number(*f.Min)
		}
		if f.Max != nil {
			s.Maximum = number(*f.Max)
		}
	case domain.FeatureTypeBoolean:
		s.Type = "boolean"
	case domain.FeatureTypeCategory:
		s.Type = "string"
		s.Enum = make([]any, 0, len(f.Values))
		for _, v := range f.Values {
			s.Enum = append(s.Enum, v)
		}
	}
	return s
}

func number(x float64) json.Number {
	return json.Number(strconv.FormatFloat(x, 'g', -1, 64))
}
