package speaker

import (
	"context"
	"errors"
	"math"
	"testing"
)

// scriptedExtractor returns one canned embedding per Extract call.
type scriptedExtractor struct {
	embeddings []Embedding
	errs       []error
	calls      int
}

func (s *scriptedExtractor) Extract(ctx context.Context, samples []float32) (Embedding, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.embeddings) {
		return nil, errors.New("no scripted embedding")
	}
	return s.embeddings[i], nil
}

func (s *scriptedExtractor) Close() error { return nil }

func dummySamples(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, 16000)
	}
	return out
}

func TestEnrollCommitsCentroid(t *testing.T) {
	ext := &scriptedExtractor{embeddings: []Embedding{
		{1, 0},
		{0.9, 0.1},
		{0.95, 0.05},
	}}
	r := newTestRegistry(t, newMemStore())
	e := NewEnroller(ext, r, 3, 0.60, nil)

	vp, err := e.Enroll(context.Background(), "Alice", dummySamples(3))
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if vp.Name != "Alice" || vp.ID == 0 {
		t.Fatalf("bad voice print: %+v", vp)
	}

	// The committed embedding is unit-normalized.
	var norm float64
	for _, v := range vp.Embedding {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
		t.Fatalf("embedding norm = %f, want 1", math.Sqrt(norm))
	}
}

func TestEnrollInsufficientSamples(t *testing.T) {
	e := NewEnroller(&scriptedExtractor{}, newTestRegistry(t, newMemStore()), 3, 0.60, nil)

	_, err := e.Enroll(context.Background(), "Alice", dummySamples(2))
	if !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("err = %v, want ErrInsufficientSamples", err)
	}
}

func TestEnrollInconsistentSamplesRejected(t *testing.T) {
	// Orthogonal embeddings: min pairwise similarity 0, below the floor.
	ext := &scriptedExtractor{embeddings: []Embedding{
		{1, 0},
		{0, 1},
		{1, 0},
	}}
	r := newTestRegistry(t, newMemStore())
	e := NewEnroller(ext, r, 3, 0.60, nil)

	_, err := e.Enroll(context.Background(), "Alice", dummySamples(3))
	if !errors.Is(err, ErrInconsistentSamples) {
		t.Fatalf("err = %v, want ErrInconsistentSamples", err)
	}
	// All-or-nothing: nothing persisted.
	if got := r.List(); len(got) != 0 {
		t.Fatalf("rejected enrollment persisted %d prints", len(got))
	}
}

func TestEnrollDuplicateName(t *testing.T) {
	r := newTestRegistry(t, newMemStore())
	r.Add("Alice", Embedding{1, 0})

	ext := &scriptedExtractor{embeddings: []Embedding{{1, 0}, {1, 0}, {1, 0}}}
	e := NewEnroller(ext, r, 3, 0.60, nil)

	_, err := e.Enroll(context.Background(), "alice", dummySamples(3))
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("err = %v, want ErrDuplicateName", err)
	}
	if ext.calls != 0 {
		t.Fatalf("extraction ran %d times for a known-duplicate name", ext.calls)
	}
}

func TestEnrollExtractionFailureAborts(t *testing.T) {
	ext := &scriptedExtractor{
		embeddings: []Embedding{{1, 0}, nil, {1, 0}},
		errs:       []error{nil, ErrTooShort, nil},
	}
	r := newTestRegistry(t, newMemStore())
	e := NewEnroller(ext, r, 3, 0.60, nil)

	_, err := e.Enroll(context.Background(), "Alice", dummySamples(3))
	if !errors.Is(err, ErrTooShort) {
		t.Fatalf("err = %v, want ErrTooShort", err)
	}
	if got := r.List(); len(got) != 0 {
		t.Fatalf("failed enrollment persisted %d prints", len(got))
	}
}
