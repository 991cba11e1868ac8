package speaker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Enrollment errors. Enrollment is all-or-nothing: any failure discards all
// collected samples and no partial voice print is ever persisted.
var (
	ErrInsufficientSamples = errors.New("insufficient enrollment samples")
	ErrInconsistentSamples = errors.New("inconsistent enrollment samples")
	ErrDuplicateName       = errors.New("voice print name already enrolled")
)

// DefaultConsistencyFloor is the stock minimum pairwise cosine similarity
// required among enrollment sample embeddings. Samples that disagree more
// than this (different speakers, corrupt audio) are rejected rather than
// averaged into a noisy voice print.
const DefaultConsistencyFloor = 0.60

// DefaultSampleCount is the stock number of enrollment recordings.
const DefaultSampleCount = 3

// Enroller turns N raw audio samples into one committed voice print.
type Enroller struct {
	extractor Extractor
	registry  *Registry

	// SampleCount is the number of recordings required (minimum 2).
	SampleCount int

	// ConsistencyFloor is the minimum pairwise cosine similarity among
	// sample embeddings.
	ConsistencyFloor float64

	log *zap.Logger
}

// NewEnroller wires the enrollment coordinator. Non-positive tuning fields
// fall back to defaults.
func NewEnroller(extractor Extractor, registry *Registry, sampleCount int, floor float64, log *zap.Logger) *Enroller {
	if sampleCount < 2 {
		sampleCount = DefaultSampleCount
	}
	if floor <= 0 {
		floor = DefaultConsistencyFloor
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Enroller{
		extractor:        extractor,
		registry:         registry,
		SampleCount:      sampleCount,
		ConsistencyFloor: floor,
		log:              log,
	}
}

// Enroll extracts an embedding from each sample, validates consistency, and
// commits the re-normalized centroid under the given display name.
//
// Failure modes: fewer samples than required -> ErrInsufficientSamples; a
// name already enrolled (case-insensitive) -> ErrDuplicateName; any single
// extraction failure aborts and propagates; minimum pairwise similarity
// below the floor -> ErrInconsistentSamples.
func (e *Enroller) Enroll(ctx context.Context, name string, samples [][]float32) (VoicePrint, error) {
	if len(samples) < e.SampleCount {
		return VoicePrint{}, fmt.Errorf("%w: need %d, got %d",
			ErrInsufficientSamples, e.SampleCount, len(samples))
	}
	if name == "" {
		return VoicePrint{}, fmt.Errorf("%w: empty name", ErrDuplicateName)
	}
	// Checked up front to avoid wasted extraction, and again inside Add's
	// critical section via the registry mirror below.
	if existing, ok := e.registry.FindByName(name); ok {
		return VoicePrint{}, fmt.Errorf("%w: %q (id %d)", ErrDuplicateName, existing.Name, existing.ID)
	}

	embeddings := make([]Embedding, 0, len(samples))
	for i, sample := range samples {
		emb, err := e.extractor.Extract(ctx, sample)
		if err != nil {
			return VoicePrint{}, fmt.Errorf("sample %d: %w", i+1, err)
		}
		embeddings = append(embeddings, emb)
	}

	minSim := minPairwiseCosine(embeddings)
	if minSim < e.ConsistencyFloor {
		e.log.Warn("enrollment rejected",
			zap.String("name", name),
			zap.Float64("min_pairwise_similarity", minSim),
			zap.Float64("floor", e.ConsistencyFloor))
		return VoicePrint{}, fmt.Errorf("%w: min pairwise similarity %.3f below floor %.3f",
			ErrInconsistentSamples, minSim, e.ConsistencyFloor)
	}

	if existing, ok := e.registry.FindByName(name); ok {
		return VoicePrint{}, fmt.Errorf("%w: %q (id %d)", ErrDuplicateName, existing.Name, existing.ID)
	}

	vp, err := e.registry.Add(name, Centroid(embeddings))
	if err != nil {
		return VoicePrint{}, err
	}
	e.log.Info("enrollment committed",
		zap.Int64("id", vp.ID),
		zap.String("name", name),
		zap.Float64("min_pairwise_similarity", minSim))
	return vp, nil
}
