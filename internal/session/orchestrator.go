// Package session runs the live voice pipeline: microphone frames in,
// transcribed (and, when possible, speaker-attributed) utterances out.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emmett/aria/internal/audio"
	"github.com/emmett/aria/internal/speaker"
	"github.com/emmett/aria/internal/stt"
)

// ErrStopped is returned by operations on a stopped orchestrator.
var ErrStopped = errors.New("session orchestrator stopped")

// DefaultRecognitionGrace is how long a finished transcription waits for the
// speaker-recognition result before shipping without it.
const DefaultRecognitionGrace = 500 * time.Millisecond

// preRollFrames is how many recent frames are kept while idle and prepended
// to an utterance at speech onset, so the confirming syllable is not clipped.
const preRollFrames = 4

// Config tunes one orchestrator.
type Config struct {
	Detector audio.DetectorConfig

	// RecognitionGrace bounds how long a completed transcription waits for
	// speaker recognition. Zero means DefaultRecognitionGrace.
	RecognitionGrace time.Duration

	// SpeakerEnabled gates the recognition path entirely.
	SpeakerEnabled bool
}

// Result is one processed utterance, delivered on Results. Err is set when
// transcription failed; Speaker is nil when recognition was disabled, timed
// out, or did not identify anyone above threshold (in the last case Speaker
// still carries the best similarity with Identified=false).
type Result struct {
	SessionID  string               `json:"session_id"`
	Text       string               `json:"text"`
	Confidence float64              `json:"confidence"`
	Duration   time.Duration        `json:"duration"`
	Reason     audio.FinalizeReason `json:"reason"`
	Speaker    *speaker.Match       `json:"speaker,omitempty"`
	Err        error                `json:"-"`
}

// Orchestrator owns the capture loop and the per-utterance processing
// pipeline. One goroutine drains the capturer and drives the VAD and the
// recorder; each sealed utterance is processed on its own goroutine, with at
// most one in flight at a time.
type Orchestrator struct {
	cfg      Config
	capturer audio.Capturer
	detector *audio.Detector
	recorder *audio.Recorder
	preRoll  *audio.FrameRing
	engine   stt.Engine
	ident    *speaker.Identifier
	log      *zap.Logger

	results chan Result

	mu         sync.Mutex
	pendingCfg *Config               // staged, applied at the next idle boundary
	enrollSink chan *audio.Utterance // set only during EnrollmentCapture
	inFlight   bool
	procGen    uint64             // bumped by Cancel; stale results are dropped
	procCancel context.CancelFunc // aborts the in-flight processing goroutine

	done     chan struct{}
	loopDone chan struct{}
	stopOnce sync.Once
}

// New wires an orchestrator. ident may be nil when SpeakerEnabled is false.
func New(cfg Config, capturer audio.Capturer, engine stt.Engine, ident *speaker.Identifier, log *zap.Logger) *Orchestrator {
	if cfg.RecognitionGrace <= 0 {
		cfg.RecognitionGrace = DefaultRecognitionGrace
	}
	if log == nil {
		log = zap.NewNop()
	}
	det := audio.NewDetector(cfg.Detector)
	rate := cfg.Detector.SampleRate
	if rate <= 0 {
		rate = audio.DefaultDetectorConfig().SampleRate
	}
	return &Orchestrator{
		cfg:      cfg,
		capturer: capturer,
		detector: det,
		recorder: audio.NewRecorder(rate),
		preRoll:  audio.NewFrameRing(preRollFrames),
		engine:   engine,
		ident:    ident,
		log:      log,
		results:  make(chan Result, 8),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
}

// Run starts capture and blocks draining the device until ctx is cancelled
// or Stop is called. Results are delivered on Results for the duration.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.capturer.Start(ctx); err != nil {
		return err
	}
	defer close(o.loopDone)
	defer o.capturer.Stop()

	o.log.Info("session loop started")
	for {
		select {
		case <-ctx.Done():
			o.drainActive()
			return ctx.Err()
		case <-o.done:
			o.drainActive()
			return nil
		case err, ok := <-o.capturer.Errors():
			if ok && err != nil {
				o.log.Warn("capture error", zap.Error(err))
			}
		case sample, ok := <-o.capturer.Samples():
			if !ok {
				o.drainActive()
				return nil
			}
			o.handleFrame(ctx, audio.DecodeS16LE(sample.Data))
		}
	}
}

// handleFrame advances the VAD and the recorder by one frame.
func (o *Orchestrator) handleFrame(ctx context.Context, frame []float32) {
	if o.det().State() == audio.StateIdle {
		o.applyPendingConfig()
	}

	ev := o.det().Process(frame)

	switch ev.Type {
	case audio.EventSpeechStarted:
		if err := o.recorder.Start(); err != nil {
			o.log.Warn("recorder start failed", zap.Error(err))
			return
		}
		if lead := o.preRoll.Drain(); lead != nil {
			o.recorder.Feed(lead)
		}
		o.recorder.Feed(frame)
		o.log.Debug("speech started", zap.Float64("energy", ev.Energy))

	case audio.EventSpeechContinuing, audio.EventSilenceDetected:
		o.recorder.Feed(frame)

	case audio.EventFinalized:
		o.recorder.Feed(frame)
		utt, err := o.recorder.Seal(ev.Reason)
		if err != nil {
			// A concurrent Cancel won the race; nothing to process.
			return
		}
		o.dispatch(ctx, utt)

	case audio.EventNone:
		if o.recorder.Active() {
			o.recorder.Feed(frame)
		} else {
			o.preRoll.Push(frame)
		}
	}
}

// dispatch routes a sealed utterance to the enrollment sink when one is
// armed, otherwise to the STT/recognition pipeline. At most one utterance is
// processed at a time; a second one sealing while the first is still in
// flight is dropped with a warning rather than queued behind stale results.
func (o *Orchestrator) dispatch(ctx context.Context, utt *audio.Utterance) {
	o.mu.Lock()
	if sink := o.enrollSink; sink != nil {
		o.mu.Unlock()
		select {
		case sink <- utt:
		default:
			o.log.Warn("enrollment sink full, utterance dropped")
		}
		return
	}
	if o.inFlight {
		o.mu.Unlock()
		o.log.Warn("utterance dropped, previous still processing",
			zap.Duration("duration", utt.Duration))
		return
	}
	o.inFlight = true
	cfg := o.cfg
	gen := o.procGen
	pctx, cancel := context.WithCancel(ctx)
	o.procCancel = cancel
	o.mu.Unlock()

	go func() {
		defer cancel()
		defer func() {
			o.mu.Lock()
			o.inFlight = false
			o.mu.Unlock()
		}()
		o.process(pctx, utt, cfg, gen)
	}()
}

// process runs transcription and recognition concurrently for one utterance.
// Recognition never delays the transcript by more than the grace window, and
// its failure never fails the result.
func (o *Orchestrator) process(ctx context.Context, utt *audio.Utterance, cfg Config, gen uint64) {
	id := uuid.NewString()
	log := o.log.With(zap.String("session_id", id))

	var matchCh chan speaker.Match
	if cfg.SpeakerEnabled && o.ident != nil {
		matchCh = make(chan speaker.Match, 1)
		go func() {
			m, err := o.ident.Identify(ctx, utt.Samples)
			if err != nil {
				log.Debug("speaker recognition unavailable", zap.Error(err))
			}
			matchCh <- m
		}()
	}

	res := Result{
		SessionID: id,
		Duration:  utt.Duration,
		Reason:    utt.Reason,
	}

	tr, err := o.engine.Transcribe(ctx, utt.Samples)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Debug("transcription abandoned")
			return
		}
		log.Error("transcription failed", zap.Error(err))
		res.Err = err
		o.deliver(gen, res)
		return
	}
	res.Text = tr.Text
	res.Confidence = tr.Confidence

	if matchCh != nil {
		grace := time.NewTimer(cfg.RecognitionGrace)
		defer grace.Stop()
		select {
		case m := <-matchCh:
			res.Speaker = &m
		case <-grace.C:
			log.Warn("speaker recognition timed out, delivering without identity",
				zap.Duration("grace", cfg.RecognitionGrace))
		case <-ctx.Done():
		}
	}

	log.Info("utterance processed",
		zap.Duration("duration", utt.Duration),
		zap.String("reason", string(utt.Reason)),
		zap.Float64("confidence", res.Confidence),
		zap.Bool("identified", res.Speaker != nil && res.Speaker.Identified))
	o.deliver(gen, res)
}

// deliver ships a result unless the session it came from was cancelled while
// processing ran.
func (o *Orchestrator) deliver(gen uint64, res Result) {
	o.mu.Lock()
	stale := gen != o.procGen
	o.mu.Unlock()
	if stale {
		o.log.Debug("result from cancelled session dropped",
			zap.String("session_id", res.SessionID))
		return
	}
	select {
	case o.results <- res:
	case <-o.done:
	}
}

// Results is the stream of processed utterances.
func (o *Orchestrator) Results() <-chan Result {
	return o.results
}

// Cancel discards the in-progress recording, if any, returns the VAD to
// idle, and abandons the in-flight utterance: its STT and recognition calls
// are interrupted and their results, whenever they return, are never
// delivered.
func (o *Orchestrator) Cancel() {
	if err := o.recorder.Cancel(); err == nil {
		o.log.Info("recording cancelled")
	}
	o.mu.Lock()
	o.procGen++
	if o.procCancel != nil {
		o.procCancel()
		o.procCancel = nil
	}
	o.mu.Unlock()
	o.det().Reset()
}

// SetSuppressed mutes VAD triggering, used while the assistant's own speech
// output is playing.
func (o *Orchestrator) SetSuppressed(v bool) {
	o.det().SetSuppressed(v)
}

// det returns the current detector; the pointer is swapped when a staged
// configuration is applied.
func (o *Orchestrator) det() *audio.Detector {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.detector
}

// UpdateConfig stages new VAD tuning. It takes effect at the next idle
// boundary so an in-progress utterance is never re-timed mid-flight.
func (o *Orchestrator) UpdateConfig(cfg Config) {
	if cfg.RecognitionGrace <= 0 {
		cfg.RecognitionGrace = DefaultRecognitionGrace
	}
	o.mu.Lock()
	o.pendingCfg = &cfg
	o.mu.Unlock()
	o.log.Info("configuration staged for next idle boundary")
}

func (o *Orchestrator) applyPendingConfig() {
	o.mu.Lock()
	cfg := o.pendingCfg
	o.pendingCfg = nil
	o.mu.Unlock()
	if cfg == nil {
		return
	}
	o.mu.Lock()
	o.cfg = *cfg
	o.detector = audio.NewDetector(cfg.Detector)
	o.mu.Unlock()
	o.log.Info("configuration applied",
		zap.Float64("sensitivity", cfg.Detector.Sensitivity),
		zap.Duration("silence_timeout", cfg.Detector.SilenceTimeout))
}

// EnrollmentCapture diverts the next n sealed utterances away from the STT
// pipeline and returns their raw samples, for use as enrollment recordings.
// It blocks until n utterances arrive or ctx is cancelled.
func (o *Orchestrator) EnrollmentCapture(ctx context.Context, n int) ([][]float32, error) {
	sink := make(chan *audio.Utterance, n)

	o.mu.Lock()
	if o.enrollSink != nil {
		o.mu.Unlock()
		return nil, errors.New("enrollment capture already in progress")
	}
	o.enrollSink = sink
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.enrollSink = nil
		o.mu.Unlock()
	}()

	out := make([][]float32, 0, n)
	for len(out) < n {
		select {
		case utt := <-sink:
			o.log.Info("enrollment sample captured",
				zap.Int("sample", len(out)+1), zap.Int("of", n),
				zap.Duration("duration", utt.Duration))
			out = append(out, utt.Samples)
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-o.done:
			return nil, ErrStopped
		}
	}
	return out, nil
}

// drainActive seals and drops any recording still open at shutdown.
func (o *Orchestrator) drainActive() {
	if o.recorder.Active() {
		o.recorder.Cancel()
	}
	o.det().Reset()
}

// Stop ends the session loop and waits for it to exit. Call only after Run
// has been started. Safe to call more than once.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		close(o.done)
		<-o.loopDone
		o.log.Info("session loop stopped")
	})
}
