package audio

import (
	"testing"
	"time"
)

// testDetectorConfig uses short windows so state transitions happen within a
// handful of 512-sample (32ms) frames.
func testDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Sensitivity:    0.02,
		SilenceTimeout: 160 * time.Millisecond, // 5 frames
		MaxUtterance:   10 * time.Second,
		MinSpeech:      96 * time.Millisecond, // 3 frames
		SampleRate:     16000,
	}
}

func loudFrame() []float32 {
	return constantFrame(0.5)
}

func quietFrame() []float32 {
	return constantFrame(0.0)
}

func constantFrame(amplitude float32) []float32 {
	frame := make([]float32, 512)
	for i := range frame {
		frame[i] = amplitude
	}
	return frame
}

func TestDetectorSpeechOnset(t *testing.T) {
	d := NewDetector(testDetectorConfig())

	// Two loud frames (64ms) stay below the 96ms onset floor.
	for i := 0; i < 2; i++ {
		if ev := d.Process(loudFrame()); ev.Type != EventNone {
			t.Fatalf("frame %d: got %v, want EventNone", i, ev.Type)
		}
	}
	if d.State() != StateIdle {
		t.Fatalf("state = %v, want idle before onset floor", d.State())
	}

	ev := d.Process(loudFrame())
	if ev.Type != EventSpeechStarted {
		t.Fatalf("got %v, want EventSpeechStarted", ev.Type)
	}
	if d.State() != StateListening {
		t.Fatalf("state = %v, want listening", d.State())
	}
}

func TestDetectorClickRejected(t *testing.T) {
	d := NewDetector(testDetectorConfig())

	// A single loud frame followed by silence is a click, not speech.
	d.Process(loudFrame())
	if ev := d.Process(quietFrame()); ev.Type != EventNone {
		t.Fatalf("got %v, want EventNone", ev.Type)
	}
	if d.State() != StateIdle {
		t.Fatalf("state = %v, want idle", d.State())
	}

	// The pending run must have been discarded: two more loud frames do
	// not reach the floor.
	d.Process(loudFrame())
	if ev := d.Process(loudFrame()); ev.Type != EventNone {
		t.Fatalf("pending speech survived a silent frame: got %v", ev.Type)
	}
}

func TestDetectorSilenceTimeout(t *testing.T) {
	d := NewDetector(testDetectorConfig())

	for i := 0; i < 3; i++ {
		d.Process(loudFrame())
	}
	if d.State() != StateListening {
		t.Fatalf("state = %v, want listening", d.State())
	}

	// 5 quiet frames reach the 160ms timeout.
	var final Event
	for i := 0; i < 5; i++ {
		final = d.Process(quietFrame())
		if i < 4 && final.Type == EventFinalized {
			t.Fatalf("finalized after %d quiet frames, want 5", i+1)
		}
	}
	if final.Type != EventFinalized {
		t.Fatalf("got %v, want EventFinalized", final.Type)
	}
	if final.Reason != ReasonSilenceTimeout {
		t.Fatalf("reason = %q, want %q", final.Reason, ReasonSilenceTimeout)
	}
	if d.State() != StateIdle {
		t.Fatalf("state = %v, want idle after finalize", d.State())
	}
}

func TestDetectorSpeechResumeResetsSilence(t *testing.T) {
	d := NewDetector(testDetectorConfig())

	for i := 0; i < 3; i++ {
		d.Process(loudFrame())
	}
	// Partial silence, then speech resumes.
	for i := 0; i < 3; i++ {
		d.Process(quietFrame())
	}
	if ev := d.Process(loudFrame()); ev.Type != EventSpeechContinuing {
		t.Fatalf("got %v, want EventSpeechContinuing", ev.Type)
	}

	// The silence run restarted: 4 quiet frames are not enough again.
	for i := 0; i < 4; i++ {
		if ev := d.Process(quietFrame()); ev.Type == EventFinalized {
			t.Fatalf("finalized after %d quiet frames post-resume", i+1)
		}
	}
	if ev := d.Process(quietFrame()); ev.Type != EventFinalized {
		t.Fatalf("got %v, want EventFinalized", ev.Type)
	}
}

func TestDetectorMaxDuration(t *testing.T) {
	cfg := testDetectorConfig()
	cfg.MaxUtterance = 320 * time.Millisecond // 5120 samples
	d := NewDetector(cfg)

	for i := 0; i < 3; i++ {
		d.Process(loudFrame())
	}

	// Continuous speech must still finalize at the cap.
	var final Event
	for i := 0; i < 8; i++ {
		final = d.Process(loudFrame())
		if final.Type == EventFinalized {
			break
		}
	}
	if final.Type != EventFinalized {
		t.Fatal("continuous speech never hit the max-duration cap")
	}
	if final.Reason != ReasonMaxDuration {
		t.Fatalf("reason = %q, want %q", final.Reason, ReasonMaxDuration)
	}
}

func TestDetectorSuppressed(t *testing.T) {
	d := NewDetector(testDetectorConfig())
	d.SetSuppressed(true)

	for i := 0; i < 10; i++ {
		if ev := d.Process(loudFrame()); ev.Type != EventNone {
			t.Fatalf("suppressed detector emitted %v", ev.Type)
		}
	}
	if d.State() != StateIdle {
		t.Fatalf("state = %v, want idle while suppressed", d.State())
	}

	// Unsuppressing resumes normal detection.
	d.SetSuppressed(false)
	for i := 0; i < 2; i++ {
		d.Process(loudFrame())
	}
	if ev := d.Process(loudFrame()); ev.Type != EventSpeechStarted {
		t.Fatalf("got %v, want EventSpeechStarted after unsuppress", ev.Type)
	}
}

func TestDetectorEnergyReported(t *testing.T) {
	d := NewDetector(testDetectorConfig())
	ev := d.Process(constantFrame(0.25))
	if ev.Energy < 0.24 || ev.Energy > 0.26 {
		t.Fatalf("energy = %f, want ~0.25", ev.Energy)
	}
}
