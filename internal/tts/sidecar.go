package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// SidecarEngine runs an external synthesizer process per utterance. The
// process gets the text on stdin and is killed when ctx is cancelled or the
// engine closes, so a hung synthesizer can never wedge the pipeline.
type SidecarEngine struct {
	cfg Config
	log *zap.Logger

	speakMu sync.Mutex // serializes utterances

	mu      sync.Mutex
	current *exec.Cmd
	closed  bool
}

// NewSidecarEngine creates a sidecar TTS engine.
func NewSidecarEngine(cfg Config, log *zap.Logger) (*SidecarEngine, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, ErrNoCommand
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SidecarEngine{cfg: cfg, log: log}, nil
}

// Speak pipes the text into one synthesizer invocation and waits for it.
// Only one utterance plays at a time; concurrent calls serialize.
func (s *SidecarEngine) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s.speakMu.Lock()
	defer s.speakMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("tts engine closed")
	}

	parts := strings.Fields(s.cfg.Command)
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Stdin = strings.NewReader(text)
	s.current = cmd
	s.mu.Unlock()

	if s.cfg.OnStart != nil {
		s.cfg.OnStart()
	}
	defer func() {
		if s.cfg.OnEnd != nil {
			s.cfg.OnEnd()
		}
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
	}()

	s.log.Debug("tts playback started", zap.Int("chars", len(text)))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tts command failed: %w", err)
	}
	return nil
}

// Close kills any in-flight synthesis and marks the engine unusable.
func (s *SidecarEngine) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.current != nil && s.current.Process != nil {
		_ = s.current.Process.Kill()
	}
	return nil
}

var _ Engine = (*SidecarEngine)(nil)
