package domain

import (
	"sync/atomic"
	"time"
)

type FeatureType string

const (
	FeatureTypeNumber   FeatureType = "number"
	FeatureTypeInteger  FeatureType = "integer"
	FeatureTypeBoolean  FeatureType = "boolean"
	FeatureTypeCategory FeatureType = "category"
)

var SupportedFeatureTypes = map[FeatureType]bool{
	FeatureTypeNumber:   true,
	FeatureTypeInteger:  true,
	FeatureTypeBoolean:  true,
	FeatureTypeCategory: true,
}

// Feature describes one named input of a model artifact.
type Feature struct {
	Name     string      `json:"name"`
	Type     FeatureType `json:"type"`
	Required bool        `json:"required"`
	Default  any         `json:"default,omitempty"`
	Min      *float64    `json:"min,omitempty"`
	Max      *float64    `json:"max,omitempty"`
	Values   []string    `json:"values,omitempty"`

	// Standardization applied by the engine to numeric inputs: (x - Mean) / Std.
	Mean float64 `json:"mean,omitempty"`
	Std  float64 `json:"std,omitempty"`
}

// Width is the number of model columns the feature expands to.
func (f Feature) Width() int {
	if f.Type == FeatureTypeCategory {
		return len(f.Values)
	}
	return 1
}

// Schema is the ordered input contract of one artifact version.
type Schema struct {
	Version  int64     `json:"version"`
	Features []Feature `json:"features"`
}

type Label struct {
	Name           string `json:"name"`
	Recommendation string `json:"recommendation"`
}

// Model is the compiled linear layer of an artifact. Weights is indexed
// [label][column]; Offsets[i] is the first column of schema feature i.
type Model struct {
	Columns int
	Offsets []int
	Bias    []float64
	Weights [][]float64
}

// Artifact is an immutable, versioned model loaded by the artifact store.
// Only the reference count changes after construction.
type Artifact struct {
	Version       int64
	Digest        string
	Name          string
	Source        string
	LoadedAt      time.Time
	Schema        Schema
	Labels        []Label
	MinConfidence float64

	model   atomic.Pointer[Model]
	refs    atomic.Int64
	onEvict func(*Artifact)
}

// NewArtifact returns an artifact holding a single reference, owned by the caller.
func NewArtifact(version int64, digest string, features []Feature, labels []Label, model *Model) *Artifact {
	a := &Artifact{
		Version: version,
		Digest:  digest,
		Schema:  Schema{Version: version, Features: features},
		Labels:  labels,
	}
	a.model.Store(model)
	a.refs.Store(1)
	return a
}

// Model returns the compiled weights, or nil once the artifact has been evicted.
func (a *Artifact) Model() *Model {
	return a.model.Load()
}

func (a *Artifact) LabelNames() []string {
	names := make([]string, len(a.Labels))
	for i, l := range a.Labels {
		names[i] = l.Name
	}
	return names
}

// OnEvict registers fn to run when the last reference is released.
// It must be called before the artifact is shared.
func (a *Artifact) OnEvict(fn func(*Artifact)) {
	a.onEvict = fn
}

// Retain takes a reference. It fails once the artifact has been evicted.
func (a *Artifact) Retain() bool {
	for {
		n := a.refs.Load()
		if n <= 0 {
			return false
		}
		if a.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops a reference and evicts the artifact when none remain.
func (a *Artifact) Release() {
	if a.refs.Add(-1) != 0 {
		return
	}
	a.model.Store(nil)
	if a.onEvict != nil {
		a.onEvict(a)
	}
}

func (a *Artifact) Refs() int64 {
	return a.refs.Load()
}

func (a *Artifact) Evicted() bool {
	return a.model.Load() == nil
}

type ReloadStatus string

const (
	ReloadStatusSwapped   ReloadStatus = "swapped"
	ReloadStatusUnchanged ReloadStatus = "unchanged"
)

// ReloadResult reports the outcome of a successful artifact reload.
type ReloadResult struct {
	Status          ReloadStatus `json:"status"`
	Ref             string       `json:"ref"`
	Version         int64        `json:"version"`
	PreviousVersion int64        `json:"previous_version,omitempty"`
	Digest          string       `json:"digest"`
}
