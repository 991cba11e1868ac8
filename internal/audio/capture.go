package audio

import (
	"context"
	"time"
)

// CaptureConfig holds configuration for audio capture.
type CaptureConfig struct {
	// SampleRate is the number of samples per second (Hz). 16000 is what
	// both the STT and speaker models expect.
	SampleRate uint32

	// Channels is the number of audio channels. The pipeline is mono.
	Channels uint32

	// FrameSize is the number of samples per capture callback. 512 at
	// 16kHz is 32ms per frame.
	FrameSize uint32

	// QueueDepth is the capacity of the sample channel between the device
	// callback and the pipeline goroutine.
	QueueDepth int

	// DeviceID selects the capture device; empty means system default.
	DeviceID string
}

// DefaultCaptureConfig returns the pipeline's standard capture settings.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate: 16000,
		Channels:   1,
		FrameSize:  512, // 32ms at 16kHz
		QueueDepth: 64,  // ~2s of slack before frames drop
		DeviceID:   "",
	}
}

// Sample is one chunk of captured audio as delivered by the device.
type Sample struct {
	// Data is raw little-endian 16-bit PCM.
	Data      []byte
	Timestamp time.Time
	Frames    uint32
}

// Capturer owns the microphone device. No other component reads from or
// reconfigures the device directly; reconfiguration means stopping one
// capturer and starting another between utterances.
type Capturer interface {
	// Start begins audio capture. Device and permission failures surface
	// here, before any session begins.
	Start(ctx context.Context) error

	// Stop stops capture and closes the sample channel.
	Stop() error

	// Samples returns the channel of captured chunks, in strict arrival
	// order.
	Samples() <-chan Sample

	// Errors returns a channel of non-fatal capture errors (e.g. dropped
	// frames on overflow).
	Errors() <-chan error

	// IsRunning reports whether capture is active.
	IsRunning() bool
}

// NewCapturer creates the platform capturer for the given configuration.
func NewCapturer(cfg CaptureConfig) (Capturer, error) {
	return newMalgoCapturer(cfg)
}
