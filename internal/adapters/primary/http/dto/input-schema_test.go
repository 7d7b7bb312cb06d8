package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prediction-service/internal/core/domain"
)

func testArtifact() *domain.Artifact {
	lo, hi := 0.0, 1.0
	features := []domain.Feature{
		{Name: "symptomScore", Type: domain.FeatureTypeNumber, Required: true, Min: &lo, Max: &hi},
		{Name: "variety", Type: domain.FeatureTypeCategory, Default: "maize", Values: []string{"maize", "rice"}},
	}
	a := domain.NewArtifact(9, "digest", features, []domain.Label{{Name: "Healthy"}}, &domain.Model{})
	a.Name = "crop-disease"
	return a
}

func TestToInputSchema(t *testing.T) {
	schema := ToInputSchema(testArtifact(), false)

	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, "crop-disease", schema.Title)
	assert.Equal(t, []string{"symptomScore"}, schema.Required)
	assert.Nil(t, schema.AdditionalProperties)

	score, ok := schema.Properties.Get("symptomScore")
	require.True(t, ok)
	assert.Equal(t, "number", score.Type)
	assert.Equal(t, json.Number("0"), score.Minimum)
	assert.Equal(t, json.Number("1"), score.Maximum)

	variety, ok := schema.Properties.Get("variety")
	require.True(t, ok)
	assert.Equal(t, []any{"maize", "rice"}, variety.Enum)
	assert.Equal(t, "maize", variety.Default)
}

func TestToInputSchema_StrictRejectsAdditionalProperties(t *testing.T) {
	raw, err := json.Marshal(ToInputSchema(testArtifact(), true))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, false, doc["additionalProperties"])
}

func TestToArtifactResponse(t *testing.T) {
	resp := ToArtifactResponse(testArtifact())

	assert.Equal(t, int64(9), resp.Version)
	assert.Equal(t, []string{"Healthy"}, resp.Labels)
	require.Len(t, resp.Features, 2)
	assert.Equal(t, "category", resp.Features[1].Type)
	assert.False(t, resp.Features[1].Required)
}
