package speaker

import (
	"errors"
	"testing"
	"time"
)

// memStore is an in-memory Store for registry tests.
type memStore struct {
	prints map[int64]VoicePrint
	nextID int64
	failOn string
}

func newMemStore() *memStore {
	return &memStore{prints: make(map[int64]VoicePrint)}
}

func (s *memStore) LoadAll() ([]VoicePrint, error) {
	out := make([]VoicePrint, 0, len(s.prints))
	for _, vp := range s.prints {
		out = append(out, vp)
	}
	return out, nil
}

func (s *memStore) Persist(vp *VoicePrint) error {
	if s.failOn == "persist" {
		return errors.New("store down")
	}
	if vp.ID == 0 {
		s.nextID++
		vp.ID = s.nextID
	}
	s.prints[vp.ID] = *vp
	return nil
}

func (s *memStore) Delete(id int64) error {
	if _, ok := s.prints[id]; !ok {
		return ErrNotFound
	}
	delete(s.prints, id)
	return nil
}

func (s *memStore) UpdateStats(id int64, last time.Time, count int64) error {
	if s.failOn == "stats" {
		return errors.New("store down")
	}
	vp, ok := s.prints[id]
	if !ok {
		return ErrNotFound
	}
	vp.LastRecognized = &last
	vp.RecognitionCount = count
	s.prints[id] = vp
	return nil
}

func (s *memStore) Close() error { return nil }

func newTestRegistry(t *testing.T, st Store) *Registry {
	t.Helper()
	r, err := NewRegistry(st, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestRegistryAddAssignsID(t *testing.T) {
	r := newTestRegistry(t, newMemStore())

	vp, err := r.Add("Alice", Embedding{1, 0})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if vp.ID != 1 {
		t.Fatalf("ID = %d, want 1", vp.ID)
	}
	if !vp.Active {
		t.Fatal("new print not active")
	}

	got, err := r.Get(vp.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Alice" {
		t.Fatalf("Name = %q, want Alice", got.Name)
	}
}

func TestRegistryAddStoreFailureLeavesMirrorClean(t *testing.T) {
	st := newMemStore()
	st.failOn = "persist"
	r := newTestRegistry(t, st)

	if _, err := r.Add("Alice", Embedding{1, 0}); err == nil {
		t.Fatal("expected persist error")
	}
	if got := r.List(); len(got) != 0 {
		t.Fatalf("mirror has %d entries after failed Add", len(got))
	}
}

func TestRegistryListSortedByID(t *testing.T) {
	r := newTestRegistry(t, newMemStore())
	r.Add("b", Embedding{1, 0})
	r.Add("a", Embedding{0, 1})
	r.Add("c", Embedding{1, 1})

	got := r.List()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].ID >= got[i].ID {
			t.Fatalf("List not sorted: %v", got)
		}
	}
}

func TestRegistryFindByNameCaseInsensitive(t *testing.T) {
	r := newTestRegistry(t, newMemStore())
	r.Add("Alice", Embedding{1, 0})

	if _, ok := r.FindByName("aLiCe"); !ok {
		t.Fatal("case-insensitive lookup failed")
	}
	if _, ok := r.FindByName("bob"); ok {
		t.Fatal("found a speaker that was never enrolled")
	}
}

func TestRegistryRemove(t *testing.T) {
	st := newMemStore()
	r := newTestRegistry(t, st)
	vp, _ := r.Add("Alice", Embedding{1, 0})

	if err := r.Remove(vp.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := r.Get(vp.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Remove err = %v, want ErrNotFound", err)
	}
	if err := r.Remove(vp.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double Remove err = %v, want ErrNotFound", err)
	}
	if len(st.prints) != 0 {
		t.Fatal("store still holds deleted print")
	}
}

func TestRegistryTouch(t *testing.T) {
	r := newTestRegistry(t, newMemStore())
	vp, _ := r.Add("Alice", Embedding{1, 0})

	if err := r.Touch(vp.ID); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	got, _ := r.Get(vp.ID)
	if got.RecognitionCount != 1 {
		t.Fatalf("count = %d, want 1", got.RecognitionCount)
	}
	if got.LastRecognized == nil {
		t.Fatal("LastRecognized not set")
	}
}

func TestRegistryTouchStoreFailureKeepsMirror(t *testing.T) {
	st := newMemStore()
	r := newTestRegistry(t, st)
	vp, _ := r.Add("Alice", Embedding{1, 0})

	st.failOn = "stats"
	if err := r.Touch(vp.ID); err == nil {
		t.Fatal("expected stats error")
	}
	got, _ := r.Get(vp.ID)
	if got.RecognitionCount != 0 {
		t.Fatalf("mirror updated despite store failure: count = %d", got.RecognitionCount)
	}
}

func TestRegistryLoadsExistingPrints(t *testing.T) {
	st := newMemStore()
	st.prints[5] = VoicePrint{ID: 5, Name: "Old", Embedding: Embedding{1, 0}, Active: true}
	st.nextID = 5

	r := newTestRegistry(t, st)
	got, err := r.Get(5)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Old" {
		t.Fatalf("Name = %q, want Old", got.Name)
	}
}
