package speaker

import "testing"

func activePrint(id int64, name string, emb Embedding) VoicePrint {
	return VoicePrint{ID: id, Name: name, Embedding: emb, Active: true}
}

func TestMatcherIdentifiesAboveThreshold(t *testing.T) {
	m := NewMatcher(0.70)
	prints := []VoicePrint{
		activePrint(1, "alice", Embedding{1, 0}),
		activePrint(2, "bob", Embedding{0, 1}),
	}

	got := m.Match(Embedding{0.9, 0.1}, prints)
	if !got.Identified {
		t.Fatal("expected identification")
	}
	if got.ID != 1 || got.Name != "alice" {
		t.Fatalf("matched %d/%q, want 1/alice", got.ID, got.Name)
	}
	if got.Similarity < 0.9 {
		t.Fatalf("similarity = %f, want > 0.9", got.Similarity)
	}
}

func TestMatcherBelowThresholdReportsBestScore(t *testing.T) {
	m := NewMatcher(0.95)
	prints := []VoicePrint{activePrint(1, "alice", Embedding{1, 0})}

	got := m.Match(Embedding{0.5, 0.866}, prints) // ~0.5 similarity
	if got.Identified {
		t.Fatal("below-threshold probe identified")
	}
	if got.ID != 0 || got.Name != "" {
		t.Fatalf("unidentified match carries identity: %+v", got)
	}
	if got.Similarity < 0.4 || got.Similarity > 0.6 {
		t.Fatalf("similarity = %f, want ~0.5", got.Similarity)
	}
}

func TestMatcherEmptyRegistry(t *testing.T) {
	m := NewMatcher(0.70)
	got := m.Match(Embedding{1, 0}, nil)
	if got.Identified {
		t.Fatal("empty registry produced identification")
	}
	if got.Similarity != 0 {
		t.Fatalf("similarity = %f, want 0", got.Similarity)
	}
}

func TestMatcherTieBreaksToLowestID(t *testing.T) {
	m := NewMatcher(0.70)
	emb := Embedding{1, 0}
	prints := []VoicePrint{
		activePrint(7, "later", emb),
		activePrint(3, "earlier", emb),
	}

	got := m.Match(emb, prints)
	if got.ID != 3 {
		t.Fatalf("tie broke to %d, want 3", got.ID)
	}
}

func TestMatcherSkipsInactive(t *testing.T) {
	m := NewMatcher(0.70)
	emb := Embedding{1, 0}
	prints := []VoicePrint{
		{ID: 1, Name: "retired", Embedding: emb, Active: false},
	}

	if got := m.Match(emb, prints); got.Identified {
		t.Fatal("inactive print matched")
	}
}

func TestMatcherNegativeSimilarityReported(t *testing.T) {
	m := NewMatcher(0.70)
	prints := []VoicePrint{activePrint(1, "alice", Embedding{1, 0})}

	got := m.Match(Embedding{-1, 0}, prints)
	if got.Identified {
		t.Fatal("opposite embedding identified")
	}
	if got.Similarity > -0.99 {
		t.Fatalf("similarity = %f, want ~-1", got.Similarity)
	}
}
