package store

import (
	"errors"
	"testing"
	"time"

	"github.com/emmett/aria/internal/speaker"
)

func openTestStore(t *testing.T) *Badger {
	t.Helper()
	b, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestPersistAssignsSequentialIDs(t *testing.T) {
	b := openTestStore(t)

	a := &speaker.VoicePrint{Name: "Alice", Embedding: speaker.Embedding{1, 0}, Active: true}
	if err := b.Persist(a); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if a.ID == 0 {
		t.Fatal("ID not assigned")
	}

	c := &speaker.VoicePrint{Name: "Bob", Embedding: speaker.Embedding{0, 1}, Active: true}
	if err := b.Persist(c); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if c.ID <= a.ID {
		t.Fatalf("IDs not increasing: %d then %d", a.ID, c.ID)
	}
}

func TestPersistExistingIDOverwrites(t *testing.T) {
	b := openTestStore(t)

	vp := &speaker.VoicePrint{Name: "Alice", Embedding: speaker.Embedding{1, 0}, Active: true}
	b.Persist(vp)

	vp.Name = "Alicia"
	if err := b.Persist(vp); err != nil {
		t.Fatalf("re-Persist: %v", err)
	}

	all, err := b.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("len = %d, want 1", len(all))
	}
	if all[0].Name != "Alicia" {
		t.Fatalf("Name = %q, want Alicia", all[0].Name)
	}
}

func TestLoadAllRoundTrip(t *testing.T) {
	b := openTestStore(t)

	enrolled := time.Now().Truncate(time.Second)
	vp := &speaker.VoicePrint{
		Name:       "Alice",
		Embedding:  speaker.Embedding{0.5, -0.5, 0.25},
		EnrolledAt: enrolled,
		Active:     true,
	}
	b.Persist(vp)

	all, err := b.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("len = %d, want 1", len(all))
	}
	got := all[0]
	if got.ID != vp.ID || got.Name != "Alice" || !got.Active {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != -0.5 {
		t.Fatalf("embedding mismatch: %v", got.Embedding)
	}
	if !got.EnrolledAt.Equal(enrolled) {
		t.Fatalf("EnrolledAt = %v, want %v", got.EnrolledAt, enrolled)
	}
}

func TestUpdateStats(t *testing.T) {
	b := openTestStore(t)

	vp := &speaker.VoicePrint{Name: "Alice", Embedding: speaker.Embedding{1}, Active: true}
	b.Persist(vp)

	seen := time.Now().Truncate(time.Second)
	if err := b.UpdateStats(vp.ID, seen, 7); err != nil {
		t.Fatalf("UpdateStats: %v", err)
	}

	all, _ := b.LoadAll()
	if all[0].RecognitionCount != 7 {
		t.Fatalf("count = %d, want 7", all[0].RecognitionCount)
	}
	if all[0].LastRecognized == nil || !all[0].LastRecognized.Equal(seen) {
		t.Fatalf("LastRecognized = %v, want %v", all[0].LastRecognized, seen)
	}
	// The rest of the record is untouched.
	if all[0].Name != "Alice" {
		t.Fatalf("Name = %q, want Alice", all[0].Name)
	}
}

func TestUpdateStatsMissing(t *testing.T) {
	b := openTestStore(t)
	if err := b.UpdateStats(42, time.Now(), 1); !errors.Is(err, speaker.ErrNotFound) {
		t.Fatalf("err = %v, want speaker.ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	b := openTestStore(t)

	vp := &speaker.VoicePrint{Name: "Alice", Embedding: speaker.Embedding{1}, Active: true}
	b.Persist(vp)

	if err := b.Delete(vp.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, _ := b.LoadAll()
	if len(all) != 0 {
		t.Fatalf("len = %d after delete, want 0", len(all))
	}

	if err := b.Delete(vp.ID); !errors.Is(err, speaker.ErrNotFound) {
		t.Fatalf("double Delete err = %v, want speaker.ErrNotFound", err)
	}
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Fatal("Open without Dir succeeded")
	}
}

func TestRegistryIntegration(t *testing.T) {
	b := openTestStore(t)

	r, err := speaker.NewRegistry(b, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	vp, err := r.Add("Alice", speaker.Embedding{1, 0})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Touch(vp.ID); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	all, _ := b.LoadAll()
	if len(all) != 1 || all[0].RecognitionCount != 1 {
		t.Fatalf("store state = %+v, want one print with count 1", all)
	}
}
