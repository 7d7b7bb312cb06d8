package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"prediction-service/internal/config"
	"prediction-service/internal/core/domain"
	"prediction-service/internal/core/ports/output"
)

const createReportTable = `
	CREATE TABLE IF NOT EXISTS prediction_report (
		id               UUID PRIMARY KEY,
		created_at       TIMESTAMPTZ NOT NULL,
		request_id       TEXT NOT NULL,
		label            TEXT NOT NULL,
		confidence       DOUBLE PRECISION NOT NULL,
		recommendation   TEXT NOT NULL,
		artifact_version BIGINT NOT NULL,
		degraded         BOOLEAN NOT NULL DEFAULT FALSE
	);
	CREATE INDEX IF NOT EXISTS prediction_report_created_at_idx ON prediction_report (created_at DESC);
`

// NewPool opens and pings a connection pool for cfg.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 && cfg.MaxIdleConns <= cfg.MaxOpenConns {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// DBTX is the subset of *pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type predictionReportRepo struct {
	db DBTX
}

func NewPredictionReportRepository(db DBTX) ports.PredictionReportRepository {
	return &predictionReportRepo{db: db}
}

// EnsureSchema creates the report table when it does not exist.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, createReportTable); err != nil {
		return fmt.Errorf("ensure prediction_report schema: %w", err)
	}
	return nil
}

func (r *predictionReportRepo) Save(ctx context.Context, report *domain.PredictionReport) error {
	query := `
		INSERT INTO prediction_report
			(id, created_at, request_id, label, confidence, recommendation, artifact_version, degraded)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`
	_, err := r.db.Exec(ctx, query,
		report.ID, report.CreatedAt, report.RequestID, report.Label,
		report.Confidence, report.Recommendation, report.ArtifactVersion, report.Degraded,
	)
	if err != nil {
		return fmt.Errorf("save prediction report: %w", err)
	}
	return nil
}

func (r *predictionReportRepo) ListRecent(ctx context.Context, limit int) ([]*domain.PredictionReport, error) {
	query := `
		SELECT id, created_at, request_id, label, confidence, recommendation, artifact_version, degraded
		FROM prediction_report
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list prediction reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.PredictionReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prediction report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list prediction reports: %w", err)
	}
	return reports, nil
}

func scanReport(row pgx.Row) (*domain.PredictionReport, error) {
	var r domain.PredictionReport
	err := row.Scan(
		&r.ID, &r.CreatedAt, &r.RequestID, &r.Label,
		&r.Confidence, &r.Recommendation, &r.ArtifactVersion, &r.Degraded,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Ensure interface compliance
var (
	_ ports.PredictionReportRepository = (*predictionReportRepo)(nil)
	_ DBTX                             = (*pgxpool.Pool)(nil)
)
