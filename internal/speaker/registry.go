package speaker

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned for operations on voice prints that do not exist.
var ErrNotFound = errors.New("voice print not found")

// VoicePrint is a named, enrolled user's reference embedding.
type VoicePrint struct {
	ID               int64      `msgpack:"id"`
	Name             string     `msgpack:"name"`
	Embedding        Embedding  `msgpack:"embedding"`
	EnrolledAt       time.Time  `msgpack:"enrolled_at"`
	LastRecognized   *time.Time `msgpack:"last_recognized"`
	RecognitionCount int64      `msgpack:"recognition_count"`
	Active           bool       `msgpack:"active"`
}

// Store is the durable persistence boundary behind the registry. The
// registry serializes all calls into it.
type Store interface {
	// LoadAll returns every persisted voice print.
	LoadAll() ([]VoicePrint, error)

	// Persist writes a voice print, assigning vp.ID when it is zero.
	Persist(vp *VoicePrint) error

	// Delete removes a voice print by ID.
	Delete(id int64) error

	// UpdateStats records a successful recognition.
	UpdateStats(id int64, lastRecognized time.Time, count int64) error

	Close() error
}

// Registry is the in-memory mirror of the enrolled voice prints. Mutations
// take the write lock and flow through the store before the mirror is
// updated, so the mirror never gets ahead of durable state; the matcher's
// linear scan runs under the read lock and may proceed from multiple
// sessions concurrently.
type Registry struct {
	mu     sync.RWMutex
	store  Store
	prints map[int64]*VoicePrint
	log    *zap.Logger
}

// NewRegistry builds a registry mirroring the store's current contents.
func NewRegistry(store Store, log *zap.Logger) (*Registry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	all, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load voice prints: %w", err)
	}
	prints := make(map[int64]*VoicePrint, len(all))
	for i := range all {
		vp := all[i]
		prints[vp.ID] = &vp
	}
	log.Info("voice print registry loaded", zap.Int("count", len(prints)))
	return &Registry{store: store, prints: prints, log: log}, nil
}

// Add persists a new active voice print and mirrors it.
func (r *Registry) Add(name string, emb Embedding) (VoicePrint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vp := VoicePrint{
		Name:       name,
		Embedding:  emb,
		EnrolledAt: time.Now(),
		Active:     true,
	}
	if err := r.store.Persist(&vp); err != nil {
		return VoicePrint{}, fmt.Errorf("persist voice print: %w", err)
	}
	stored := vp
	r.prints[vp.ID] = &stored
	r.log.Info("voice print enrolled", zap.Int64("id", vp.ID), zap.String("name", name))
	return vp, nil
}

// Remove deletes a voice print from the store and the mirror.
func (r *Registry) Remove(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.prints[id]; !ok {
		return ErrNotFound
	}
	if err := r.store.Delete(id); err != nil {
		return fmt.Errorf("delete voice print: %w", err)
	}
	delete(r.prints, id)
	r.log.Info("voice print deleted", zap.Int64("id", id))
	return nil
}

// List returns a snapshot of all voice prints, ordered by ID.
func (r *Registry) List() []VoicePrint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]VoicePrint, 0, len(r.prints))
	for _, vp := range r.prints {
		out = append(out, *vp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a voice print by ID.
func (r *Registry) Get(id int64) (VoicePrint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vp, ok := r.prints[id]
	if !ok {
		return VoicePrint{}, ErrNotFound
	}
	return *vp, nil
}

// FindByName returns the voice print with the given name, compared
// case-insensitively.
func (r *Registry) FindByName(name string) (VoicePrint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, vp := range r.prints {
		if strings.EqualFold(vp.Name, name) {
			return *vp, true
		}
	}
	return VoicePrint{}, false
}

// Touch records a successful recognition: bumps the counter and the
// last-recognized timestamp, durably and in the mirror.
func (r *Registry) Touch(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	vp, ok := r.prints[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	count := vp.RecognitionCount + 1
	if err := r.store.UpdateStats(id, now, count); err != nil {
		return fmt.Errorf("update recognition stats: %w", err)
	}
	vp.RecognitionCount = count
	vp.LastRecognized = &now
	return nil
}

// active returns snapshots of the active voice prints for matching.
func (r *Registry) active() []VoicePrint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]VoicePrint, 0, len(r.prints))
	for _, vp := range r.prints {
		if vp.Active {
			out = append(out, *vp)
		}
	}
	return out
}
