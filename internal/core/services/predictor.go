package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"prediction-service/internal/core/domain"
)

const DefaultRequestTimeout = 2 * time.Second

// PredictionRecorder receives every successful prediction.
type PredictionRecorder interface {
	Record(result domain.PredictionResult)
}

type PredictorConfig struct {
	RequestTimeout time.Duration
}

// Predictor is the request/response entry point: it validates against the
// active artifact, queues on the scheduler and maps failures to domain errors.
type Predictor struct {
	store     *ArtifactStore
	validator *Validator
	scheduler *Scheduler
	recorder  PredictionRecorder
	cfg       PredictorConfig

	draining atomic.Bool
}

func NewPredictor(store *ArtifactStore, validator *Validator, scheduler *Scheduler, recorder PredictionRecorder, cfg PredictorConfig) *Predictor {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	return &Predictor{
		store:     store,
		validator: validator,
		scheduler: scheduler,
		recorder:  recorder,
		cfg:       cfg,
	}
}

// Start loads the configured artifact. A failed initial load is logged and
// leaves the service unready until a reload succeeds.
func (p *Predictor) Start(ctx context.Context) error {
	if p.store.DefaultRef() == "" {
		log.Warn("no artifact reference configured, waiting for a reload")
		return nil
	}
	if _, err := p.store.Reload(ctx, ""); err != nil {
		log.WithError(err).Warn("initial artifact load failed, serving unavailable until a reload succeeds")
	}
	return nil
}

// Stop rejects new predictions and drains in-flight batches.
func (p *Predictor) Stop(ctx context.Context) error {
	p.draining.Store(true)
	return p.scheduler.Close(ctx)
}

func (p *Predictor) Draining() bool {
	return p.draining.Load()
}

// StrictValidation reports whether unknown features are rejected.
func (p *Predictor) StrictValidation() bool {
	return p.validator.Strict()
}

func (p *Predictor) Predict(ctx context.Context, req domain.PredictionRequest) (*domain.PredictionResult, error) {
	if p.draining.Load() {
		return nil, domain.ErrShuttingDown
	}
	if strings.TrimSpace(req.RequestID) == "" {
		req.RequestID = uuid.New().String()
	}

	artifact, err := p.store.Acquire()
	if err != nil {
		return nil, err
	}
	defer artifact.Release()

	features, err := p.validator.Validate(req.Features, artifact.Schema)
	if err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = p.cfg.RequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := p.scheduler.Submit(ctx, artifact, *features)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%w after %s", domain.ErrTimeout, timeout)
		case errors.Is(err, domain.ErrSchedulerClosed):
			return nil, domain.ErrShuttingDown
		}
		return nil, err
	}

	result.RequestID = req.RequestID
	if p.recorder != nil {
		p.recorder.Record(result)
	}
	return &result, nil
}
