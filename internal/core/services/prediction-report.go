package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"prediction-service/internal/core/domain"
	"prediction-service/internal/core/ports/output"
)

const (
	defaultReportWorkers   = 2
	defaultReportQueueSize = 256
	reportSaveTimeout      = 5 * time.Second
)

// PredictionReportService persists served predictions in the background and
// lists them back.
type PredictionReportService struct {
	repo    ports.PredictionReportRepository
	workers int

	mu     sync.RWMutex
	queue  chan *domain.PredictionReport
	closed bool
	wg     sync.WaitGroup
}

func NewPredictionReportService(repo ports.PredictionReportRepository, workers int) *PredictionReportService {
	if workers <= 0 {
		workers = defaultReportWorkers
	}
	return &PredictionReportService{
		repo:    repo,
		workers: workers,
		queue:   make(chan *domain.PredictionReport, defaultReportQueueSize),
	}
}

func (s *PredictionReportService) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.run()
	}
}

// Record queues result for persistence. It never blocks the caller; reports
// are dropped when the queue is full or the service is closed.
func (s *PredictionReportService) Record(result domain.PredictionResult) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- domain.NewPredictionReport(result):
	default:
		log.WithField("request_id", result.RequestID).Warn("prediction report queue full, dropping report")
	}
}

func (s *PredictionReportService) ListRecent(ctx context.Context, limit int) ([]*domain.PredictionReport, error) {
	if limit == 0 {
		limit = 20
	}
	if limit < 0 || limit > 100 {
		return nil, domain.ErrInvalidLimit
	}
	return s.repo.ListRecent(ctx, limit)
}

// Close stops accepting reports and waits for queued ones to be written.
func (s *PredictionReportService) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain prediction reports: %w", ctx.Err())
	}
}

func (s *PredictionReportService) run() {
	defer s.wg.Done()
	for report := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), reportSaveTimeout)
		if err := s.repo.Save(ctx, report); err != nil {
			log.WithError(err).WithField("request_id", report.RequestID).Error("save prediction report failed")
		}
		cancel()
	}
}
