package audio

import (
	"sync"
	"time"
)

// FinalizeReason explains why an utterance was sealed.
type FinalizeReason string

const (
	ReasonSilenceTimeout FinalizeReason = "silence-timeout"
	ReasonMaxDuration    FinalizeReason = "max-duration"
	ReasonCancelled      FinalizeReason = "user-cancelled"
)

// State is the detector's position in the capture cycle.
type State int

const (
	// StateIdle means no speech has been confirmed yet.
	StateIdle State = iota
	// StateListening means speech was detected and an utterance is accumulating.
	StateListening
	// StateFinalizing means silence is accumulating toward the timeout.
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateFinalizing:
		return "finalizing"
	}
	return "unknown"
}

// EventType classifies the outcome of processing one frame.
type EventType int

const (
	EventNone EventType = iota
	EventSpeechStarted
	EventSpeechContinuing
	EventSilenceDetected
	EventFinalized
)

// Event is emitted by Detector.Process for every frame. Reason is set only
// for EventFinalized.
type Event struct {
	Type   EventType
	Reason FinalizeReason

	// Energy is the RMS energy of the processed frame, exposed for
	// calibration display.
	Energy float64
}

// DetectorConfig holds energy-VAD tuning.
type DetectorConfig struct {
	// Sensitivity is the RMS energy threshold on the normalized [0, 1]
	// scale above which a frame counts as speech.
	Sensitivity float64

	// SilenceTimeout is how long sub-threshold audio must persist after
	// speech before the utterance is finalized.
	SilenceTimeout time.Duration

	// MaxUtterance caps the total utterance length regardless of ongoing
	// speech, guarding against a stuck-open mic or continuous noise.
	MaxUtterance time.Duration

	// MinSpeech is the shortest supra-threshold burst that counts as
	// speech onset. Shorter spikes (clicks, pops) never leave idle.
	MinSpeech time.Duration

	// SampleRate converts frame sample counts into durations.
	SampleRate int
}

// DefaultDetectorConfig returns the stock tuning: 0.02 sensitivity,
// 1.28s silence timeout, 30s utterance cap, 96ms speech onset floor.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Sensitivity:    0.02,
		SilenceTimeout: 1280 * time.Millisecond,
		MaxUtterance:   30 * time.Second,
		MinSpeech:      96 * time.Millisecond,
		SampleRate:     16000,
	}
}

// Detector is the energy-based voice activity detector. It is a pure state
// machine over the frame stream: no I/O, no fallible operations. Durations
// are tracked from accumulated sample counts at the configured rate, not
// wall clock, so a slow consumer cannot distort the timeouts.
//
// Process is driven by the single goroutine draining the capturer, but
// SetSuppressed and Reset may arrive from hotkey or TTS goroutines, so all
// state transitions happen under one mutex.
type Detector struct {
	mu  sync.Mutex
	cfg DetectorConfig

	minSpeechSamples int
	silenceSamples   int
	maxSamples       int

	state            State
	pendingSpeech    int // supra-threshold run while still idle
	silenceRun       int // sub-threshold run while listening/finalizing
	utteranceSamples int // total samples since speech onset
	suppressed       bool
}

// NewDetector creates a detector. Zero config fields fall back to defaults.
func NewDetector(cfg DetectorConfig) *Detector {
	def := DefaultDetectorConfig()
	if cfg.Sensitivity <= 0 {
		cfg.Sensitivity = def.Sensitivity
	}
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = def.SilenceTimeout
	}
	if cfg.MaxUtterance <= 0 {
		cfg.MaxUtterance = def.MaxUtterance
	}
	if cfg.MinSpeech <= 0 {
		cfg.MinSpeech = def.MinSpeech
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	return &Detector{
		cfg:              cfg,
		minSpeechSamples: durationToSamples(cfg.MinSpeech, cfg.SampleRate),
		silenceSamples:   durationToSamples(cfg.SilenceTimeout, cfg.SampleRate),
		maxSamples:       durationToSamples(cfg.MaxUtterance, cfg.SampleRate),
	}
}

// Process classifies one frame and advances the state machine.
func (d *Detector) Process(samples []float32) Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	energy := RMSEnergy(samples)
	if d.suppressed || len(samples) == 0 {
		return Event{Type: EventNone, Energy: energy}
	}

	speech := energy > d.cfg.Sensitivity
	n := len(samples)

	switch d.state {
	case StateIdle:
		if !speech {
			// Isolated spikes shorter than MinSpeech reset here and
			// never trigger an utterance.
			d.pendingSpeech = 0
			return Event{Type: EventNone, Energy: energy}
		}
		d.pendingSpeech += n
		if d.pendingSpeech < d.minSpeechSamples {
			return Event{Type: EventNone, Energy: energy}
		}
		d.state = StateListening
		d.utteranceSamples = d.pendingSpeech
		d.pendingSpeech = 0
		d.silenceRun = 0
		return Event{Type: EventSpeechStarted, Energy: energy}

	case StateListening:
		d.utteranceSamples += n
		if d.utteranceSamples >= d.maxSamples {
			return d.finalize(ReasonMaxDuration, energy)
		}
		if speech {
			return Event{Type: EventSpeechContinuing, Energy: energy}
		}
		d.state = StateFinalizing
		d.silenceRun = n
		if d.silenceRun >= d.silenceSamples {
			return d.finalize(ReasonSilenceTimeout, energy)
		}
		return Event{Type: EventSilenceDetected, Energy: energy}

	case StateFinalizing:
		d.utteranceSamples += n
		if d.utteranceSamples >= d.maxSamples {
			return d.finalize(ReasonMaxDuration, energy)
		}
		if speech {
			// Speech resumed before the timeout; keep accumulating.
			d.state = StateListening
			d.silenceRun = 0
			return Event{Type: EventSpeechContinuing, Energy: energy}
		}
		d.silenceRun += n
		if d.silenceRun >= d.silenceSamples {
			return d.finalize(ReasonSilenceTimeout, energy)
		}
		return Event{Type: EventNone, Energy: energy}
	}

	return Event{Type: EventNone, Energy: energy}
}

func (d *Detector) finalize(reason FinalizeReason, energy float64) Event {
	d.reset()
	return Event{Type: EventFinalized, Reason: reason, Energy: energy}
}

// State returns the current detector state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// SetSuppressed mutes frame classification (e.g. while the assistant's own
// TTS output is playing) so playback cannot re-trigger capture.
func (d *Detector) SetSuppressed(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suppressed = v
}

// Reset returns the detector to idle, dropping all accumulated counters.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

func (d *Detector) reset() {
	d.state = StateIdle
	d.pendingSpeech = 0
	d.silenceRun = 0
	d.utteranceSamples = 0
}

func durationToSamples(dur time.Duration, rate int) int {
	return int(dur.Seconds() * float64(rate))
}
