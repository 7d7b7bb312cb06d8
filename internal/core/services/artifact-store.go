package services

import (
	"context"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"prediction-service/internal/core/domain"
	"prediction-service/internal/core/ports/output"
)

// ArtifactStore owns the active model artifact. Readers load it wait-free;
// reloads serialize on a writer lock.
type ArtifactStore struct {
	sources    []ports.ArtifactSource
	defaultRef string

	current  atomic.Pointer[domain.Artifact]
	reloadMu sync.Mutex

	evictHook func(*domain.Artifact)
}

func NewArtifactStore(defaultRef string, sources ...ports.ArtifactSource) *ArtifactStore {
	return &ArtifactStore{sources: sources, defaultRef: defaultRef}
}

// SetEvictHook registers fn to run whenever a retired artifact is freed.
func (s *ArtifactStore) SetEvictHook(fn func(*domain.Artifact)) {
	s.evictHook = fn
}

func (s *ArtifactStore) DefaultRef() string {
	return s.defaultRef
}

// Load fetches and decodes an artifact without activating it.
func (s *ArtifactStore) Load(ctx context.Context, ref string) (*domain.Artifact, error) {
	if ref == "" {
		ref = s.defaultRef
	}

	src := s.sourceFor(ref)
	if src == nil {
		return nil, &domain.LoadError{Ref: ref, Err: domain.ErrUnsupportedArtifactRef}
	}

	blob, err := src.Fetch(ctx, ref)
	if err != nil {
		return nil, &domain.LoadError{Ref: ref, Err: err}
	}

	artifact, err := DecodeArtifact(blob)
	if err != nil {
		return nil, &domain.LoadError{Ref: ref, Err: err}
	}
	artifact.Source = ref

	log.WithFields(log.Fields{
		"ref":     ref,
		"source":  src.Name(),
		"version": artifact.Version,
		"digest":  artifact.Digest,
	}).Debug("artifact loaded")
	return artifact, nil
}

// Current returns the active artifact, or nil before the first load.
// The caller must not use it after a swap without holding a reference; see Acquire.
func (s *ArtifactStore) Current() *domain.Artifact {
	return s.current.Load()
}

// Acquire returns the active artifact with a reference taken.
// The caller must Release it.
func (s *ArtifactStore) Acquire() (*domain.Artifact, error) {
	for {
		a := s.current.Load()
		if a == nil {
			return nil, domain.ErrNoArtifact
		}
		if a.Retain() {
			return a, nil
		}
		// Swapped out and evicted between Load and Retain; the next Load sees its successor.
	}
}

// Swap activates a and hands its caller-owned reference to the store.
// It returns the previously active artifact, which may already be evicted.
func (s *ArtifactStore) Swap(a *domain.Artifact) *domain.Artifact {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	return s.swap(a)
}

func (s *ArtifactStore) swap(a *domain.Artifact) *domain.Artifact {
	a.OnEvict(s.evicted)
	prev := s.current.Swap(a)
	if prev == a {
		return prev
	}
	if prev != nil {
		prev.Release()
	}
	return prev
}

// Reload loads ref and activates it. On any failure the last good artifact
// keeps serving.
func (s *ArtifactStore) Reload(ctx context.Context, ref string) (*domain.ReloadResult, error) {
	if ref == "" {
		ref = s.defaultRef
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	next, err := s.Load(ctx, ref)
	if err != nil {
		log.WithError(err).WithField("ref", ref).Error("artifact reload failed, keeping last good artifact")
		return nil, err
	}

	result := &domain.ReloadResult{
		Status:  domain.ReloadStatusSwapped,
		Ref:     ref,
		Version: next.Version,
		Digest:  next.Digest,
	}

	if cur := s.current.Load(); cur != nil {
		result.PreviousVersion = cur.Version
		switch {
		case cur.Digest == next.Digest:
			next.Release()
			result.Status = domain.ReloadStatusUnchanged
			result.PreviousVersion = 0
			return result, nil
		case cur.Version == next.Version:
			next.Release()
			err := &domain.LoadError{Ref: ref, Err: domain.ErrArtifactVersionConflict}
			log.WithError(err).WithField("version", cur.Version).Error("artifact reload failed, keeping last good artifact")
			return nil, err
		case next.Version < cur.Version:
			log.WithFields(log.Fields{
				"from": cur.Version,
				"to":   next.Version,
			}).Warn("rolling back to an older artifact version")
		}
	}

	s.swap(next)
	log.WithFields(log.Fields{
		"ref":              ref,
		"version":          next.Version,
		"previous_version": result.PreviousVersion,
		"digest":           next.Digest,
	}).Info("artifact activated")
	return result, nil
}

func (s *ArtifactStore) sourceFor(ref string) ports.ArtifactSource {
	for _, src := range s.sources {
		if src.Supports(ref) {
			return src
		}
	}
	return nil
}

func (s *ArtifactStore) evicted(a *domain.Artifact) {
	log.WithFields(log.Fields{
		"version": a.Version,
		"digest":  a.Digest,
	}).Info("artifact evicted")
	if s.evictHook != nil {
		s.evictHook(a)
	}
}
