package filesystem

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	ports "prediction-service/internal/core/ports/output"
)

const fileScheme = "file://"

type fileSource struct{}

// NewFileSource creates an artifact source for local paths and file:// refs.
func NewFileSource() ports.ArtifactSource {
	return &fileSource{}
}

func (s *fileSource) Name() string { return "filesystem" }

func (s *fileSource) Supports(ref string) bool {
	if strings.HasPrefix(ref, fileScheme) {
		return true
	}
	return ref != "" && !strings.Contains(ref, "://")
}

func (s *fileSource) Fetch(ctx context.Context, ref string) (*ports.ArtifactBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(Path(ref))
	if err != nil {
		return nil, fmt.Errorf("read artifact file: %w", err)
	}
	return &ports.ArtifactBlob{Ref: ref, Data: data, FetchedAt: time.Now()}, nil
}

// Path strips the file:// scheme from ref.
func Path(ref string) string {
	return strings.TrimPrefix(ref, fileScheme)
}

// Ensure interface compliance
var _ ports.ArtifactSource = (*fileSource)(nil)
