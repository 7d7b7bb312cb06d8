package postgres

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"prediction-service/internal/config"
	"prediction-service/internal/core/domain"
)

// mockDB is a mock of DBTX.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	a := m.Called(ctx, sql, args)
	return a.Get(0).(pgconn.CommandTag), a.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	a := m.Called(ctx, sql, args)
	if a.Get(0) == nil {
		return nil, a.Error(1)
	}
	return a.Get(0).(pgx.Rows), a.Error(1)
}

// fakeRows serves fixed rows; Scan assigns values in column order.
type fakeRows struct {
	rows    [][]any
	pos     int
	err     error
	scanErr error
	closed  bool
}

func (r *fakeRows) Close() { r.closed = true }
func (r *fakeRows) Err() error { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte { return nil }
func (r *fakeRows) Conn() *pgx.Conn { return nil }

var _ pgx.Rows = (*fakeRows)(nil)

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.rows[r.pos-1]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		value := reflect.ValueOf(row[i])
		if value.Type() != target.Type() {
			return errors.New("column " + target.Type().String() + " scanned from " + value.Type().String())
		}
		target.Set(value)
	}
	return nil
}

func sampleReport() *domain.PredictionReport {
	return &domain.PredictionReport{
		ID:              uuid.New(),
		CreatedAt:       time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		RequestID:       "field-7",
		Label:           "Blight",
		Confidence:      0.91,
		Recommendation:  "Remove infected leaves",
		ArtifactVersion: 3,
		Degraded:        false,
	}
}

func reportRow(r *domain.PredictionReport) []any {
	return []any{r.ID, r.CreatedAt, r.RequestID, r.Label, r.Confidence, r.Recommendation, r.ArtifactVersion, r.Degraded}
}

func isInsert(sql string) bool { return strings.Contains(sql, "INSERT INTO prediction_report") }
func isSelect(sql string) bool { return strings.Contains(sql, "FROM prediction_report") }

// ============================================================================
// Repository Tests
// ============================================================================

func TestSave_ArgumentOrder(t *testing.T) {
	db := new(mockDB)
	report := sampleReport()
	db.On("Exec", mock.Anything, mock.MatchedBy(isInsert), reportRow(report)).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := NewPredictionReportRepository(db).Save(context.Background(), report)

	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestSave_Error(t *testing.T) {
	db := new(mockDB)
	db.On("Exec", mock.Anything, mock.MatchedBy(isInsert), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection reset"))

	err := NewPredictionReportRepository(db).Save(context.Background(), sampleReport())

	assert.ErrorContains(t, err, "save prediction report")
	assert.ErrorContains(t, err, "connection reset")
}

func TestListRecent_ScansColumnsInOrder(t *testing.T) {
	db := new(mockDB)
	first, second := sampleReport(), sampleReport()
	second.Label = "Healthy"
	second.Degraded = true
	rows := &fakeRows{rows: [][]any{reportRow(first), reportRow(second)}}
	db.On("Query", mock.Anything, mock.MatchedBy(isSelect), []any{5}).Return(rows, nil)

	reports, err := NewPredictionReportRepository(db).ListRecent(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, first, reports[0])
	assert.Equal(t, second, reports[1])
	assert.True(t, rows.closed)
}

func TestListRecent_Errors(t *testing.T) {
	tests := []struct {
		name    string
		rows    *fakeRows
		err     error
		wantErr string
	}{
		{"query fails", nil, errors.New("relation missing"), "list prediction reports"},
		{"scan fails", &fakeRows{rows: [][]any{reportRow(sampleReport())}, scanErr: errors.New("bad type")}, nil, "scan prediction report"},
		{"rows error", &fakeRows{err: errors.New("conn closed")}, nil, "list prediction reports"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := new(mockDB)
			if tt.rows != nil {
				db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(tt.rows, nil)
			} else {
				db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			reports, err := NewPredictionReportRepository(db).ListRecent(context.Background(), 20)

			assert.ErrorContains(t, err, tt.wantErr)
			assert.Nil(t, reports)
		})
	}
}

func TestEnsureSchema(t *testing.T) {
	db := new(mockDB)
	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "CREATE TABLE IF NOT EXISTS prediction_report")
	}), mock.Anything).Return(pgconn.NewCommandTag("CREATE TABLE"), nil)

	require.NoError(t, EnsureSchema(context.Background(), db))
	db.AssertExpectations(t)
}

// TestRepository_Postgres runs against a real database when
// PREDICTION_TEST_DATABASE_DSN is set.
func TestRepository_Postgres(t *testing.T) {
	dsn := os.Getenv("PREDICTION_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("PREDICTION_TEST_DATABASE_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, EnsureSchema(ctx, pool))

	report := sampleReport()
	report.CreatedAt = time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DELETE FROM prediction_report WHERE id = $1", report.ID)
	})

	repo := NewPredictionReportRepository(pool)
	require.NoError(t, repo.Save(ctx, report))

	reports, err := repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	got := reports[0]
	assert.Equal(t, report.ID, got.ID)
	assert.True(t, report.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, report.RequestID, got.RequestID)
	assert.Equal(t, report.Label, got.Label)
	assert.InDelta(t, report.Confidence, got.Confidence, 1e-9)
	assert.Equal(t, report.Recommendation, got.Recommendation)
	assert.Equal(t, report.ArtifactVersion, got.ArtifactVersion)
	assert.Equal(t, report.Degraded, got.Degraded)
}

func TestNewPool_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool, err := NewPool(ctx, config.DatabaseConfig{
		Host:         "127.0.0.1",
		Port:         1,
		User:         "postgres",
		Password:     "postgres",
		Name:         "prediction_service",
		SSLMode:      "disable",
		MaxOpenConns: 1,
	})
	assert.Error(t, err)
	assert.Nil(t, pool)
}

func TestNewPool_InvalidDSN(t *testing.T) {
	_, err := NewPool(context.Background(), config.DatabaseConfig{
		Host:    "127.0.0.1",
		Port:    5432,
		SSLMode: "bogus",
	})
	assert.ErrorContains(t, err, "parse db config")
}
