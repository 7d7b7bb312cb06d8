package ports

import (
	"context"

	"prediction-service/internal/core/domain"
)

type PredictionReportRepository interface {
	Save(ctx context.Context, report *domain.PredictionReport) error
	ListRecent(ctx context.Context, limit int) ([]*domain.PredictionReport, error)
}
