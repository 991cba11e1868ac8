package audio

import (
	"errors"
	"sync"
	"time"
)

// ErrNotRecording is returned by Cancel and Seal when no recording session
// is active.
var ErrNotRecording = errors.New("not recording")

// ErrAlreadyRecording is returned by Start when a session is in progress.
var ErrAlreadyRecording = errors.New("already recording")

// Utterance is one sealed, contiguous speech segment. It is immutable once
// produced and consumed exactly once by the STT/embedding stage.
type Utterance struct {
	Samples    []float32
	SampleRate int
	Start      time.Time
	Duration   time.Duration
	Reason     FinalizeReason
}

type recorderState int

const (
	recorderIdle recorderState = iota
	recorderRecording
)

// Recorder accumulates utterance samples between a VAD speech-start and a
// finalize event. A single mutex owns the Idle -> Recording -> sealed
// transition, so a user cancel can never interleave with a concurrently
// arriving finalize: whichever takes the lock first wins, and the loser gets
// ErrNotRecording.
type Recorder struct {
	mu         sync.Mutex
	state      recorderState
	sampleRate int
	samples    []float32
	start      time.Time
}

// NewRecorder creates a recorder for the given capture sample rate.
func NewRecorder(sampleRate int) *Recorder {
	return &Recorder{sampleRate: sampleRate}
}

// Start opens a new recording session.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == recorderRecording {
		return ErrAlreadyRecording
	}
	r.state = recorderRecording
	r.samples = r.samples[:0]
	r.start = time.Now()
	return nil
}

// Feed appends a frame to the active session. Frames fed while idle are
// dropped silently rather than queued, so a slow downstream consumer cannot
// cause unbounded growth.
func (r *Recorder) Feed(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != recorderRecording {
		return
	}
	r.samples = append(r.samples, samples...)
}

// Seal closes the session and returns the sealed utterance. The sample
// slice is handed off; the recorder keeps no reference to it. At most one
// sealed utterance is produced per session.
func (r *Recorder) Seal(reason FinalizeReason) (*Utterance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != recorderRecording {
		return nil, ErrNotRecording
	}
	sealed := make([]float32, len(r.samples))
	copy(sealed, r.samples)
	u := &Utterance{
		Samples:    sealed,
		SampleRate: r.sampleRate,
		Start:      r.start,
		Duration:   time.Duration(len(sealed)) * time.Second / time.Duration(r.sampleRate),
		Reason:     reason,
	}
	r.state = recorderIdle
	r.samples = r.samples[:0]
	return u, nil
}

// Cancel discards the active session's buffer. Calling it while idle
// returns ErrNotRecording and has no side effects.
func (r *Recorder) Cancel() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != recorderRecording {
		return ErrNotRecording
	}
	r.state = recorderIdle
	r.samples = r.samples[:0]
	return nil
}

// Active reports whether a recording session is open.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == recorderRecording
}
