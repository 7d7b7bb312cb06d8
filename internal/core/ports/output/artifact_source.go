package ports

import (
	"context"
	"time"
)

// ArtifactBlob is the raw artifact document as fetched from a source.
type ArtifactBlob struct {
	Ref       string
	Data      []byte
	FetchedAt time.Time
}

// ArtifactSource defines the contract for reading model artifacts produced
// by the training pipeline.
type ArtifactSource interface {
	// Name identifies the source in logs
	Name() string

	// Supports reports whether ref is addressed to this source
	Supports(ref string) bool

	// Fetch reads the artifact document behind ref
	Fetch(ctx context.Context, ref string) (*ArtifactBlob, error)
}
