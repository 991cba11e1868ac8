package stt

import (
	"context"
	"errors"
)

// Transcription errors.
var (
	ErrNotInitialized = errors.New("stt engine not initialized")
	ErrModelNotFound  = errors.New("stt model not found")
)

// Result represents the transcription of one complete utterance.
type Result struct {
	// Text is the recognized text
	Text string

	// Confidence is the average word-level confidence (0.0 to 1.0).
	// Zero when the engine produced no word results.
	Confidence float64

	// Words contains word-level timings when the engine provides them
	Words []Word
}

// Word is a single recognized word with timing and confidence.
type Word struct {
	Text       string
	Confidence float64
	Start      float64
	End        float64
}

// Config holds configuration for the STT engine.
type Config struct {
	// ModelPath is the path to the STT model directory
	ModelPath string

	// SampleRate is the audio sample rate in Hz
	SampleRate int

	// MaxAlternatives is the maximum number of alternative results to return
	MaxAlternatives int
}

// DefaultConfig returns a default STT configuration.
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:       modelPath,
		SampleRate:      16000,
		MaxAlternatives: 0,
	}
}

// Engine transcribes complete utterances. Implementations are safe for use
// from one session goroutine at a time; the orchestrator serializes calls.
type Engine interface {
	// Transcribe decodes one finalized utterance. The samples are mono
	// float32 PCM at the configured sample rate.
	Transcribe(ctx context.Context, samples []float32) (*Result, error)

	// Close releases engine resources.
	Close() error
}
