package speaker

import (
	"context"
	"errors"
	"time"
)

// Extraction errors. All are expected conditions: a failed extraction marks
// recognition unknown, it never fails the surrounding transcription.
var (
	// ErrTooShort means the utterance is below the minimum duration the
	// model needs for a stable embedding.
	ErrTooShort = errors.New("utterance too short for embedding extraction")

	// ErrInvalidInput means the sample buffer is empty or corrupt.
	ErrInvalidInput = errors.New("invalid audio input")

	// ErrModelNotLoaded means the speaker model file is missing or failed
	// to load.
	ErrModelNotLoaded = errors.New("speaker model not loaded")
)

// MinUtterance is the shortest audio accepted for extraction.
const MinUtterance = 500 * time.Millisecond

// MinSamples is the sample count corresponding to MinUtterance at the given
// capture rate.
func MinSamples(sampleRate int) int {
	return int(MinUtterance.Seconds() * float64(sampleRate))
}

// Extractor maps variable-length mono audio at the configured capture rate
// to a fixed-length embedding. Implementations are deterministic for
// identical input and safe for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, samples []float32) (Embedding, error)
	Close() error
}
