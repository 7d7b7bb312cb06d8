package httpblob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	ports "prediction-service/internal/core/ports/output"
)

const maxArtifactBytes = 64 << 20

type httpSource struct {
	httpClient *http.Client
}

// NewHTTPSource creates an artifact source for http:// and https:// blob URLs.
func NewHTTPSource(timeout time.Duration) ports.ArtifactSource {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &httpSource{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *httpSource) Name() string { return "http" }

func (s *httpSource) Supports(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func (s *httpSource) Fetch(ctx context.Context, ref string) (*ports.ArtifactBlob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("create artifact request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	log.WithField("url", ref).Debug("fetching artifact")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("artifact request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artifact request: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read artifact body: %w", err)
	}
	if len(data) > maxArtifactBytes {
		return nil, fmt.Errorf("artifact exceeds %d bytes", maxArtifactBytes)
	}

	return &ports.ArtifactBlob{Ref: ref, Data: data, FetchedAt: time.Now()}, nil
}

// Ensure interface compliance
var _ ports.ArtifactSource = (*httpSource)(nil)
