package audio

import "testing"

func TestFrameRingEvictsOldest(t *testing.T) {
	fr := NewFrameRing(2)
	fr.Push([]float32{1})
	fr.Push([]float32{2})
	fr.Push([]float32{3}) // evicts {1}

	got := fr.Drain()
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("Drain = %v, want [2 3]", got)
	}
}

func TestFrameRingDrainEmpties(t *testing.T) {
	fr := NewFrameRing(4)
	fr.Push([]float32{1, 2})

	if got := fr.Drain(); len(got) != 2 {
		t.Fatalf("first Drain len = %d, want 2", len(got))
	}
	if got := fr.Drain(); got != nil {
		t.Fatalf("second Drain = %v, want nil", got)
	}
	if fr.Len() != 0 {
		t.Fatalf("Len = %d, want 0", fr.Len())
	}
}

func TestFrameRingCopiesFrames(t *testing.T) {
	fr := NewFrameRing(2)
	frame := []float32{1}
	fr.Push(frame)
	frame[0] = 99

	if got := fr.Drain(); got[0] != 1 {
		t.Fatalf("ring aliased caller's frame: %v", got)
	}
}
