package audio

import "sync"

// FrameRing is a fixed-capacity circular buffer of recent frames. The
// capture loop keeps the last few frames here so that when speech onset is
// confirmed, the audio that arrived just before the confirmation (the first
// syllable) can be prepended to the utterance instead of lost.
type FrameRing struct {
	mu     sync.Mutex
	frames [][]float32
	next   int
	count  int
}

// NewFrameRing creates a ring holding up to n frames. n must be positive.
func NewFrameRing(n int) *FrameRing {
	if n < 1 {
		n = 1
	}
	return &FrameRing{frames: make([][]float32, n)}
}

// Push stores a copy of the frame, evicting the oldest when full.
func (fr *FrameRing) Push(frame []float32) {
	cp := make([]float32, len(frame))
	copy(cp, frame)

	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.frames[fr.next] = cp
	fr.next = (fr.next + 1) % len(fr.frames)
	if fr.count < len(fr.frames) {
		fr.count++
	}
}

// Drain returns the buffered frames oldest-first as one flat sample slice
// and empties the ring.
func (fr *FrameRing) Drain() []float32 {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.count == 0 {
		return nil
	}
	start := (fr.next - fr.count + len(fr.frames)) % len(fr.frames)
	var out []float32
	for i := 0; i < fr.count; i++ {
		out = append(out, fr.frames[(start+i)%len(fr.frames)]...)
	}
	for i := range fr.frames {
		fr.frames[i] = nil
	}
	fr.next = 0
	fr.count = 0
	return out
}

// Len returns the number of buffered frames.
func (fr *FrameRing) Len() int {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return fr.count
}
