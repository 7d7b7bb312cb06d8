package testutil

import (
	"context"
	"strings"

	"github.com/stretchr/testify/mock"

	"prediction-service/internal/core/domain"
	"prediction-service/internal/core/ports/output"
)

// MockArtifactSource is a mock of ArtifactSource. It supports refs with
// the configured Prefix.
type MockArtifactSource struct {
	mock.Mock
	Prefix string
}

func (m *MockArtifactSource) Name() string {
	return "mock"
}

func (m *MockArtifactSource) Supports(ref string) bool {
	return strings.HasPrefix(ref, m.Prefix)
}

func (m *MockArtifactSource) Fetch(ctx context.Context, ref string) (*ports.ArtifactBlob, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ArtifactBlob), args.Error(1)
}

// MockPredictionReportRepo is a mock of PredictionReportRepository.
type MockPredictionReportRepo struct {
	mock.Mock
}

func (m *MockPredictionReportRepo) Save(ctx context.Context, report *domain.PredictionReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockPredictionReportRepo) ListRecent(ctx context.Context, limit int) ([]*domain.PredictionReport, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PredictionReport), args.Error(1)
}

// MockReloader is a mock of the artifact reload trigger target.
type MockReloader struct {
	mock.Mock
}

func (m *MockReloader) Reload(ctx context.Context, ref string) (*domain.ReloadResult, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReloadResult), args.Error(1)
}
