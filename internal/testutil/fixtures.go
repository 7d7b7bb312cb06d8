package testutil

import (
	"fmt"
	"time"

	"prediction-service/internal/core/ports/output"
)

// CropArtifactJSON returns a crop disease artifact document. With
// blightBias 0.6, {age: 30, symptomScore: 0.8} scores Blight at about 0.91.
func CropArtifactJSON(version int64, blightBias float64) []byte {
	return []byte(fmt.Sprintf(`{
  "version": %d,
  "name": "crop-disease",
  "min_confidence": 0.5,
  "features": [
    {"name": "age", "type": "integer", "min": 0, "max": 365},
    {"name": "symptomScore", "type": "number", "min": 0, "max": 1},
    {"name": "leafWet", "type": "boolean", "required": false, "default": false},
    {"name": "region", "type": "category", "required": false, "default": "north", "values": ["north", "south"]}
  ],
  "labels": [
    {"name": "Healthy", "bias": 0, "weights": {}, "recommendation": "No action needed."},
    {"name": "Blight", "bias": %g, "weights": {"symptomScore": 3.0}, "recommendation": "Apply copper-based fungicide and remove infected leaves."},
    {"name": "Rust", "bias": 0, "weights": {"region=south": 0}, "recommendation": "Apply sulfur spray and improve air circulation."}
  ]
}`, version, blightBias))
}

// CropArtifactBlob wraps CropArtifactJSON as a fetched blob for ref.
func CropArtifactBlob(ref string, version int64, blightBias float64) *ports.ArtifactBlob {
	return &ports.ArtifactBlob{
		Ref:       ref,
		Data:      CropArtifactJSON(version, blightBias),
		FetchedAt: time.Now(),
	}
}
