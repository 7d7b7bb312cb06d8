package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prediction-service/internal/core/domain"
)

func TestValidator_Valid(t *testing.T) {
	a := decodeFixture(t, 7, 0.6)
	v := NewValidator(false)

	got, err := v.Validate(map[string]any{
		"age":          30.0,
		"symptomScore": "0.8",
		"leafWet":      "TRUE",
		"region":       "South",
	}, a.Schema)

	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ArtifactVersion)
	assert.Equal(t, []float64{30, 0.8, 1, 1}, got.Values)
}

func TestValidator_DefaultsForOptionalFeatures(t *testing.T) {
	a := decodeFixture(t, 1, 0.6)

	got, err := NewValidator(false).Validate(map[string]any{
		"age":          12,
		"symptomScore": 0.1,
		"leafWet":      nil,
	}, a.Schema)

	require.NoError(t, err)
	assert.Equal(t, []float64{12, 0.1, 0, 0}, got.Values)
}

func TestValidator_MissingRequired(t *testing.T) {
	a := decodeFixture(t, 1, 0.6)

	_, err := NewValidator(false).Validate(map[string]any{"age": 30}, a.Schema)

	var fieldErr *domain.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "symptomScore", fieldErr.Field)
	assert.Equal(t, "required feature is missing", fieldErr.Reason)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestValidator_Rejections(t *testing.T) {
	a := decodeFixture(t, 1, 0.6)
	base := func(k string, v any) map[string]any {
		raw := map[string]any{"age": 30, "symptomScore": 0.5}
		raw[k] = v
		return raw
	}

	tests := []struct {
		name      string
		raw       map[string]any
		wantField string
		wantMsg   string
	}{
		{"non-integral integer", base("age", 30.5), "age", "expected integer"},
		{"below minimum", base("age", -1), "age", "below minimum"},
		{"above maximum", base("symptomScore", 1.5), "symptomScore", "above maximum"},
		{"not a number", base("symptomScore", "high"), "symptomScore", "expected number"},
		{"nan", base("symptomScore", math.NaN()), "symptomScore", "finite"},
		{"infinity", base("symptomScore", math.Inf(1)), "symptomScore", "finite"},
		{"object", base("age", map[string]any{}), "age", "got object"},
		{"bad boolean", base("leafWet", "maybe"), "leafWet", "expected boolean"},
		{"numeric boolean out of range", base("leafWet", 2), "leafWet", "expected boolean"},
		{"unknown category", base("region", "east"), "region", "unknown category"},
		{"category not a string", base("region", 1), "region", "expected one of"},
	}

	v := NewValidator(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.raw, a.Schema)

			var fieldErr *domain.FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, tt.wantField, fieldErr.Field)
			assert.Contains(t, fieldErr.Reason, tt.wantMsg)
		})
	}
}

func TestValidator_FirstViolationInSchemaOrder(t *testing.T) {
	a := decodeFixture(t, 1, 0.6)

	_, err := NewValidator(false).Validate(map[string]any{
		"age":          "old",
		"symptomScore": "bad",
	}, a.Schema)

	var fieldErr *domain.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "age", fieldErr.Field)
}

func TestValidator_UnknownFields(t *testing.T) {
	a := decodeFixture(t, 1, 0.6)
	raw := map[string]any{"age": 30, "symptomScore": 0.8, "zeta": 1, "colour": "green"}

	_, err := NewValidator(false).Validate(raw, a.Schema)
	assert.NoError(t, err)

	strict := NewValidator(true)
	assert.True(t, strict.Strict())
	_, err = strict.Validate(raw, a.Schema)
	var fieldErr *domain.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "colour", fieldErr.Field)
	assert.Equal(t, "unknown feature", fieldErr.Reason)
}

func TestValidator_Deterministic(t *testing.T) {
	a := decodeFixture(t, 1, 0.6)
	raw := map[string]any{"age": 30, "symptomScore": 0.8}
	v := NewValidator(true)

	first, err := v.Validate(raw, a.Schema)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := v.Validate(raw, a.Schema)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Len(t, raw, 2, "input must not be modified")
}
