package audio

import (
	"errors"
	"testing"
)

func TestRecorderSealReturnsFedSamples(t *testing.T) {
	r := NewRecorder(16000)

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Feed([]float32{0.1, 0.2})
	r.Feed([]float32{0.3})

	utt, err := r.Seal(ReasonSilenceTimeout)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if len(utt.Samples) != 3 {
		t.Fatalf("len(Samples) = %d, want 3", len(utt.Samples))
	}
	if utt.Reason != ReasonSilenceTimeout {
		t.Fatalf("reason = %q, want %q", utt.Reason, ReasonSilenceTimeout)
	}
	if utt.SampleRate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", utt.SampleRate)
	}
}

func TestRecorderSealOncePerSession(t *testing.T) {
	r := NewRecorder(16000)
	r.Start()
	r.Feed([]float32{0.1})

	if _, err := r.Seal(ReasonSilenceTimeout); err != nil {
		t.Fatalf("first Seal: %v", err)
	}
	if _, err := r.Seal(ReasonSilenceTimeout); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("second Seal err = %v, want ErrNotRecording", err)
	}
}

func TestRecorderDropsFramesWhileIdle(t *testing.T) {
	r := NewRecorder(16000)

	r.Feed([]float32{0.9, 0.9}) // dropped

	r.Start()
	r.Feed([]float32{0.1})
	utt, err := r.Seal(ReasonMaxDuration)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if len(utt.Samples) != 1 {
		t.Fatalf("idle frames leaked into session: len = %d", len(utt.Samples))
	}
}

func TestRecorderCancel(t *testing.T) {
	r := NewRecorder(16000)

	if err := r.Cancel(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("idle Cancel err = %v, want ErrNotRecording", err)
	}

	r.Start()
	r.Feed([]float32{0.5})
	if err := r.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if r.Active() {
		t.Fatal("recorder still active after Cancel")
	}

	// Cancelled audio must not leak into the next session.
	r.Start()
	r.Feed([]float32{0.1})
	utt, err := r.Seal(ReasonSilenceTimeout)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if len(utt.Samples) != 1 {
		t.Fatalf("cancelled samples leaked: len = %d", len(utt.Samples))
	}
}

func TestRecorderStartTwice(t *testing.T) {
	r := NewRecorder(16000)
	r.Start()
	if err := r.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second Start err = %v, want ErrAlreadyRecording", err)
	}
}

func TestRecorderSealedSliceIsIndependent(t *testing.T) {
	r := NewRecorder(16000)
	r.Start()
	r.Feed([]float32{0.1})
	utt, _ := r.Seal(ReasonSilenceTimeout)

	// A new session must not clobber the sealed utterance.
	r.Start()
	r.Feed([]float32{0.9})
	if utt.Samples[0] != 0.1 {
		t.Fatalf("sealed utterance mutated: %f", utt.Samples[0])
	}
}
