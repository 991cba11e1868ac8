// Package tts speaks assistant responses through an external synthesizer
// command. While speech plays, the voice pipeline is suppressed so the
// assistant does not transcribe itself.
package tts

import (
	"context"
	"errors"
)

// ErrNoCommand is returned when no synthesizer command is configured.
var ErrNoCommand = errors.New("no tts command configured")

// Engine defines the interface for text-to-speech engines
type Engine interface {
	// Speak synthesizes and plays the text, blocking until playback ends
	// or ctx is cancelled.
	Speak(ctx context.Context, text string) error

	// Close releases resources and kills any playing synthesis.
	Close() error
}

// Config holds TTS engine configuration
type Config struct {
	// Command is the synthesizer invocation, e.g. "piper --model en.onnx"
	// or "espeak-ng". Text is written to its stdin.
	Command string

	// OnStart and OnEnd bracket playback; the pipeline uses them to
	// suppress the VAD while the speakers are live. Either may be nil.
	OnStart func()
	OnEnd   func()
}
