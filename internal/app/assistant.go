// Package app assembles the voice pipeline from configuration and drives it
// for the CLI entry points.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/emmett/aria/internal/audio"
	"github.com/emmett/aria/internal/config"
	"github.com/emmett/aria/internal/input"
	"github.com/emmett/aria/internal/models"
	"github.com/emmett/aria/internal/output"
	"github.com/emmett/aria/internal/session"
	"github.com/emmett/aria/internal/speaker"
	"github.com/emmett/aria/internal/store"
	"github.com/emmett/aria/internal/stt"
	"github.com/emmett/aria/internal/tts"
)

// Assistant is the fully wired pipeline: capture, VAD, STT, speaker
// recognition, output, and the optional TTS sidecar.
type Assistant struct {
	cfg *config.Config
	log *zap.Logger

	store      *store.Badger
	registry   *speaker.Registry
	extractor  speaker.Extractor
	identifier *speaker.Identifier
	enroller   *speaker.Enroller

	engine stt.Engine
	orch   *session.Orchestrator
	synth  tts.Engine
	hotkey *input.HotkeyManager

	formatter output.Formatter
	statusOut *output.ConsoleOutput
	outFile   *os.File
}

// NewAssistant builds the pipeline. Speaker recognition degrades to disabled
// (with a warning) when its model or store is unavailable; STT is mandatory.
func NewAssistant(cfg *config.Config, log *zap.Logger) (*Assistant, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Assistant{cfg: cfg, log: log}

	mgr, err := models.NewManager(cfg.Models.Dir)
	if err != nil {
		return nil, err
	}

	sttPath, err := resolveSTTModel(mgr, cfg.Models.STT)
	if err != nil {
		return nil, err
	}
	engine, err := stt.NewVoskEngine(stt.Config{
		ModelPath:  sttPath,
		SampleRate: cfg.Audio.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize stt engine: %w", err)
	}
	a.engine = engine

	speakerEnabled := cfg.Speaker.Enabled
	if speakerEnabled {
		if err := a.setupSpeaker(mgr); err != nil {
			log.Warn("speaker recognition disabled", zap.Error(err))
			speakerEnabled = false
		}
	}

	capturer, err := a.newCapturer()
	if err != nil {
		a.closePartial()
		return nil, err
	}

	a.orch = session.New(session.Config{
		Detector: audio.DetectorConfig{
			Sensitivity:    cfg.VAD.Sensitivity,
			SilenceTimeout: time.Duration(cfg.VAD.SilenceTimeoutMs) * time.Millisecond,
			MaxUtterance:   time.Duration(cfg.VAD.MaxUtteranceMs) * time.Millisecond,
			MinSpeech:      time.Duration(cfg.VAD.MinSpeechMs) * time.Millisecond,
			SampleRate:     cfg.Audio.SampleRate,
		},
		RecognitionGrace: time.Duration(cfg.Speaker.RecognitionGraceMs) * time.Millisecond,
		SpeakerEnabled:   speakerEnabled,
	}, capturer, a.engine, a.identifier, log)

	if cfg.TTS.Enabled {
		synth, err := tts.NewSidecarEngine(tts.Config{
			Command: cfg.TTS.Command,
			OnStart: func() { a.orch.SetSuppressed(true) },
			OnEnd:   func() { a.orch.SetSuppressed(false) },
		}, log)
		if err != nil {
			log.Warn("tts disabled", zap.Error(err))
		} else {
			a.synth = synth
		}
	}

	if err := a.setupOutput(); err != nil {
		a.closePartial()
		return nil, err
	}
	return a, nil
}

// setupSpeaker opens the voice print store and loads the embedding model.
func (a *Assistant) setupSpeaker(mgr *models.Manager) error {
	modelPath := a.cfg.Models.Speaker
	if modelPath == "" {
		p, err := mgr.Path(models.DefaultSpeakerModelName)
		if err != nil {
			return err
		}
		modelPath = p
	}

	extractor, err := speaker.NewONNXExtractor(modelPath, a.cfg.Audio.SampleRate, a.log)
	if err != nil {
		return err
	}

	st, err := store.Open(store.Options{Dir: a.cfg.Speaker.StoreDir, Logger: a.log})
	if err != nil {
		extractor.Close()
		return err
	}
	registry, err := speaker.NewRegistry(st, a.log)
	if err != nil {
		st.Close()
		extractor.Close()
		return err
	}

	a.extractor = extractor
	a.store = st
	a.registry = registry
	a.identifier = speaker.NewIdentifier(extractor, registry,
		speaker.NewMatcher(a.cfg.Speaker.RecognitionThreshold), a.log)
	a.enroller = speaker.NewEnroller(extractor, registry,
		a.cfg.Speaker.EnrollmentSamples, a.cfg.Speaker.ConsistencyFloor, a.log)
	return nil
}

func (a *Assistant) newCapturer() (audio.Capturer, error) {
	captureCfg := audio.DefaultCaptureConfig()
	captureCfg.SampleRate = uint32(a.cfg.Audio.SampleRate)
	captureCfg.FrameSize = uint32(a.cfg.Audio.FrameSize)

	if a.cfg.Audio.Device != "" {
		device, err := audio.FindDevice(a.cfg.Audio.Device)
		if err != nil {
			return nil, err
		}
		captureCfg.DeviceID = device.ID
		a.log.Info("using capture device", zap.String("name", device.Name))
	}
	return audio.NewCapturer(captureCfg)
}

func (a *Assistant) setupOutput() error {
	writer := os.Stdout
	if a.cfg.Output.File != "" {
		f, err := os.Create(a.cfg.Output.File)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		a.outFile = f
		writer = f
	}

	switch strings.ToLower(a.cfg.Output.Format) {
	case "json":
		a.formatter = output.NewJSONFormatter(writer)
	case "text":
		a.formatter = output.NewPlainTextFormatter(writer)
	case "console", "":
		a.formatter = output.NewConsoleOutput(output.ConsoleConfig{
			ShowTimestamp: true,
			ShowMetadata:  true,
			Writer:        writer,
		})
	default:
		return fmt.Errorf("unknown output format: %s (valid: console, json, text)", a.cfg.Output.Format)
	}

	a.statusOut = output.DefaultConsoleOutput()
	if a.cfg.Output.File != "" {
		a.statusOut = output.NewConsoleOutput(output.ConsoleConfig{
			ShowTimestamp: true,
			Writer:        os.Stderr,
		})
	}
	return nil
}

// Run drives the live loop until ctx is cancelled.
func (a *Assistant) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.cfg.Hotkeys.Enabled {
		a.hotkey = input.NewHotkeyManager(
			func(listening bool) {
				a.orch.SetSuppressed(!listening)
				if listening {
					a.statusOut.Info("Listening resumed")
				} else {
					a.statusOut.Info("Listening paused")
				}
			},
			func() {
				a.orch.Cancel()
				a.statusOut.Info("Recording cancelled")
			},
		)
		if err := a.hotkey.Start(ctx, input.Bindings{
			Toggle: a.cfg.Hotkeys.Toggle,
			Cancel: a.cfg.Hotkeys.Cancel,
		}); err != nil {
			a.log.Warn("hotkeys unavailable", zap.Error(err))
			a.hotkey = nil
		}
	}

	runErr := make(chan error, 1)
	go func() { runErr <- a.orch.Run(ctx) }()

	a.statusOut.Info("Voice pipeline ready. Speak into your microphone. Press Ctrl+C to stop.")

	var count int
	for {
		select {
		case err := <-runErr:
			a.statusOut.Info(fmt.Sprintf("Session ended. Total utterances: %d", count))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case res := <-a.orch.Results():
			if res.Err != nil {
				a.statusOut.Error(fmt.Sprintf("Transcription error: %v", res.Err))
				continue
			}
			if res.Text == "" {
				continue
			}
			count++
			a.formatter.WriteResult(toOutputResult(count, res))
		}
	}
}

// Speak plays a response through the TTS sidecar, suppressing capture for
// the duration. A nil synth (TTS disabled) is a silent no-op.
func (a *Assistant) Speak(ctx context.Context, text string) error {
	if a.synth == nil {
		return nil
	}
	return a.synth.Speak(ctx, text)
}

// Enroller returns the enrollment coordinator, or nil when speaker
// recognition is disabled.
func (a *Assistant) Enroller() *speaker.Enroller {
	return a.enroller
}

// Registry returns the voice print registry, or nil when speaker recognition
// is disabled.
func (a *Assistant) Registry() *speaker.Registry {
	return a.registry
}

// Orchestrator exposes the session orchestrator for enrollment capture.
func (a *Assistant) Orchestrator() *session.Orchestrator {
	return a.orch
}

// Close tears the pipeline down in reverse dependency order.
func (a *Assistant) Close() error {
	if a.hotkey != nil {
		a.hotkey.Stop()
	}
	if a.synth != nil {
		a.synth.Close()
	}
	if a.formatter != nil {
		a.formatter.Close()
	}
	if a.outFile != nil {
		a.outFile.Close()
	}
	a.closePartial()
	return nil
}

func (a *Assistant) closePartial() {
	if a.extractor != nil {
		a.extractor.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.engine != nil {
		a.engine.Close()
	}
}

func toOutputResult(index int, res session.Result) output.TranscriptionResult {
	out := output.TranscriptionResult{
		Index:      index,
		SessionID:  res.SessionID,
		Text:       res.Text,
		Confidence: res.Confidence,
		Timestamp:  time.Now(),
		Duration:   res.Duration.Seconds(),
		Reason:     string(res.Reason),
	}
	if res.Speaker != nil {
		out.SpeakerSimilarity = res.Speaker.Similarity
		out.SpeakerIdentified = res.Speaker.Identified
		if res.Speaker.Identified {
			out.Speaker = res.Speaker.Name
		}
	}
	return out
}

// resolveSTTModel turns a configured model name or path into an on-disk
// model directory, falling back to the default model name.
func resolveSTTModel(mgr *models.Manager, configured string) (string, error) {
	if configured != "" {
		// An existing directory is used as-is; otherwise treat it as a
		// catalog name.
		if info, err := os.Stat(configured); err == nil && info.IsDir() {
			return configured, nil
		}
		return mgr.Path(configured)
	}
	return mgr.Path(models.DefaultSTTModelName)
}
