package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"prediction-service/internal/core/domain"
)

const (
	DefaultMaxBatchSize = 8
	DefaultMaxWaitTime  = 20 * time.Millisecond
)

type SchedulerConfig struct {
	MaxBatchSize int
	MaxWaitTime  time.Duration
	// OnBatch, when set, is called after every dispatched job finishes.
	OnBatch func(BatchReport)
}

// BatchReport describes one finished job.
type BatchReport struct {
	JobID           uint64
	Size            int
	ArtifactVersion int64
	Reason          string
	QueueWait       time.Duration
	InferenceTime   time.Duration
	State           domain.JobState
	Err             error
}

type SchedulerStats struct {
	JobsDispatched uint64 `json:"jobs_dispatched"`
	JobsCompleted  uint64 `json:"jobs_completed"`
	JobsFailed     uint64 `json:"jobs_failed"`
	ItemsProcessed uint64 `json:"items_processed"`
	Cancelled      uint64 `json:"cancelled"`
	Discarded      uint64 `json:"discarded"`
	LastBatchSize  int64  `json:"last_batch_size"`
	Accumulating   int    `json:"accumulating"`
}

// Scheduler coalesces concurrent requests into micro-batches. A job is
// sealed when it reaches MaxBatchSize, when MaxWaitTime has passed since its
// first member joined, or when a request for another artifact arrives.
type Scheduler struct {
	engine Engine
	cfg    SchedulerConfig

	mu      sync.Mutex
	current *batchJob
	closed  bool
	nextID  uint64

	inflight sync.WaitGroup

	dispatched atomic.Uint64
	completed  atomic.Uint64
	failed     atomic.Uint64
	processed  atomic.Uint64
	cancelled  atomic.Uint64
	discarded  atomic.Uint64
	lastSize   atomic.Int64
}

type batchJob struct {
	id       uint64
	artifact *domain.Artifact
	state    domain.JobState
	members  []*jobMember
	timer    *time.Timer
}

type jobMember struct {
	features domain.ValidatedFeatures
	enqueued time.Time
	job      *batchJob
	done     chan jobOutcome
}

type jobOutcome struct {
	result domain.PredictionResult
	err    error
}

func NewScheduler(engine Engine, cfg SchedulerConfig) (*Scheduler, error) {
	if engine == nil {
		return nil, errors.New("engine must not be nil")
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.MaxWaitTime <= 0 {
		cfg.MaxWaitTime = DefaultMaxWaitTime
	}
	return &Scheduler{engine: engine, cfg: cfg}, nil
}

// Submit enqueues features validated against artifact and waits for the
// result. The caller must hold a reference on artifact for the duration of
// the call. If ctx ends before the job is dispatched the request is
// withdrawn; after dispatch its result is discarded.
func (s *Scheduler) Submit(ctx context.Context, artifact *domain.Artifact, features domain.ValidatedFeatures) (domain.PredictionResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.PredictionResult{}, err
	}

	m := &jobMember{
		features: features,
		enqueued: time.Now(),
		done:     make(chan jobOutcome, 1),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.PredictionResult{}, domain.ErrSchedulerClosed
	}
	job := s.current
	if job != nil && job.artifact != artifact {
		s.sealLocked(job, "artifact_changed")
		job = nil
	}
	if job == nil {
		job = s.openLocked(artifact)
	}
	m.job = job
	job.members = append(job.members, m)
	if len(job.members) >= s.cfg.MaxBatchSize {
		s.sealLocked(job, "max_batch_size")
	}
	s.mu.Unlock()

	select {
	case out := <-m.done:
		return out.result, out.err
	case <-ctx.Done():
		if s.withdraw(m) {
			s.cancelled.Add(1)
		} else {
			s.discarded.Add(1)
		}
		return domain.PredictionResult{}, ctx.Err()
	}
}

// Close rejects new submissions, dispatches the accumulating job and waits
// for in-flight jobs until ctx ends. When ctx ends first, the goroutine
// waiting on in-flight jobs stays alive until the stuck engine call returns.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		if s.current != nil {
			s.sealLocked(s.current, "shutdown")
		}
	}
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain batch scheduler: %w", ctx.Err())
	}
}

func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	accumulating := 0
	if s.current != nil {
		accumulating = len(s.current.members)
	}
	s.mu.Unlock()

	return SchedulerStats{
		JobsDispatched: s.dispatched.Load(),
		JobsCompleted:  s.completed.Load(),
		JobsFailed:     s.failed.Load(),
		ItemsProcessed: s.processed.Load(),
		Cancelled:      s.cancelled.Load(),
		Discarded:      s.discarded.Load(),
		LastBatchSize:  s.lastSize.Load(),
		Accumulating:   accumulating,
	}
}

func (s *Scheduler) openLocked(artifact *domain.Artifact) *batchJob {
	s.nextID++
	// The job keeps the artifact alive until inference finishes, even if
	// every member gives up and the store swaps it out.
	artifact.Retain()
	job := &batchJob{
		id:       s.nextID,
		artifact: artifact,
		state:    domain.JobStateAccumulating,
	}
	job.timer = time.AfterFunc(s.cfg.MaxWaitTime, func() { s.expire(job) })
	s.current = job
	return job
}

func (s *Scheduler) expire(job *batchJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.state == domain.JobStateAccumulating {
		s.sealLocked(job, "max_wait_time")
	}
}

// sealLocked stops a job from accepting members and hands it to the engine.
func (s *Scheduler) sealLocked(job *batchJob, reason string) {
	job.state = domain.JobStateDispatched
	job.timer.Stop()
	if s.current == job {
		s.current = nil
	}
	if len(job.members) == 0 {
		job.state = domain.JobStateCompleted
		job.artifact.Release()
		return
	}

	s.dispatched.Add(1)
	s.inflight.Add(1)
	go s.dispatch(job, job.members, reason)
}

// withdraw removes m from its job if the job has not been dispatched yet.
func (s *Scheduler) withdraw(m *jobMember) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := m.job
	if job.state != domain.JobStateAccumulating {
		return false
	}
	for i, other := range job.members {
		if other == m {
			job.members = append(job.members[:i], job.members[i+1:]...)
			break
		}
	}
	if len(job.members) == 0 {
		job.state = domain.JobStateCompleted
		job.timer.Stop()
		job.artifact.Release()
		if s.current == job {
			s.current = nil
		}
	}
	return true
}

func (s *Scheduler) dispatch(job *batchJob, members []*jobMember, reason string) {
	defer s.inflight.Done()
	defer job.artifact.Release()

	batch := make([]domain.ValidatedFeatures, len(members))
	start := time.Now()
	var queueWait time.Duration
	for i, m := range members {
		batch[i] = m.features
		queueWait += start.Sub(m.enqueued)
	}
	queueWait /= time.Duration(len(members))

	results, err := s.infer(job.artifact, batch)
	inferenceTime := time.Since(start)
	if err == nil && len(results) != len(members) {
		err = fmt.Errorf("%w: engine returned %d results for %d requests", domain.ErrInference, len(results), len(members))
	}

	state := domain.JobStateCompleted
	if err != nil {
		state = domain.JobStateFailed
		err = &domain.BatchError{JobID: job.id, Size: len(members), Err: err}
	}
	s.mu.Lock()
	job.state = state
	s.mu.Unlock()

	fields := log.Fields{
		"job_id":           job.id,
		"batch_size":       len(members),
		"artifact_version": job.artifact.Version,
		"reason":           reason,
		"queue_wait_ms":    queueWait.Seconds() * 1000.0,
		"inference_ms":     inferenceTime.Seconds() * 1000.0,
	}
	if err != nil {
		s.failed.Add(1)
		log.WithFields(fields).WithError(err).Error("batch inference failed")
		for _, m := range members {
			m.done <- jobOutcome{err: err}
		}
	} else {
		s.completed.Add(1)
		s.processed.Add(uint64(len(members)))
		log.WithFields(fields).Debug("batch inference done")
		for i, m := range members {
			m.done <- jobOutcome{result: results[i]}
		}
	}
	s.lastSize.Store(int64(len(members)))

	if s.cfg.OnBatch != nil {
		s.cfg.OnBatch(BatchReport{
			JobID:           job.id,
			Size:            len(members),
			ArtifactVersion: job.artifact.Version,
			Reason:          reason,
			QueueWait:       queueWait,
			InferenceTime:   inferenceTime,
			State:           state,
			Err:             err,
		})
	}
}

// infer isolates engine panics to the batch that caused them.
func (s *Scheduler) infer(artifact *domain.Artifact, batch []domain.ValidatedFeatures) (results []domain.PredictionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: engine panic: %v", domain.ErrInference, r)
		}
	}()
	return s.engine.Infer(context.Background(), artifact, batch)
}
