// Package store persists voice prints in an embedded BadgerDB key-value
// store. Records are msgpack-encoded under "vp:<id>" keys; numeric IDs come
// from a badger sequence so they survive restarts.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/emmett/aria/internal/speaker"
)

var keyPrefix = []byte("vp:")

// Options configures the voice-print store.
type Options struct {
	// Dir is the directory for BadgerDB data files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence. Used in tests.
	InMemory bool

	// Logger receives badger's own log output. Badger is chatty at info
	// level, so it is mapped to debug.
	Logger *zap.Logger
}

// Badger implements speaker.Store.
type Badger struct {
	db  *badger.DB
	seq *badger.Sequence
	log *zap.Logger
}

// Open opens (creating if needed) the voice-print database.
func Open(opts Options) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: Dir is required for on-disk mode")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(zapBadgerLogger{log.Sugar()})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open voice print store: %w", err)
	}
	seq, err := db.GetSequence([]byte("seq:voiceprint"), 16)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open voice print sequence: %w", err)
	}
	return &Badger{db: db, seq: seq, log: log}, nil
}

// LoadAll returns every persisted voice print.
func (b *Badger) LoadAll() ([]speaker.VoicePrint, error) {
	var prints []speaker.VoicePrint
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = keyPrefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(keyPrefix); it.ValidForPrefix(keyPrefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var vp speaker.VoicePrint
			if err := msgpack.Unmarshal(val, &vp); err != nil {
				return fmt.Errorf("decode voice print %q: %w", it.Item().Key(), err)
			}
			prints = append(prints, vp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prints, nil
}

// Persist writes a voice print, assigning the next sequence ID when vp.ID
// is zero.
func (b *Badger) Persist(vp *speaker.VoicePrint) error {
	if vp.ID == 0 {
		next, err := b.seq.Next()
		if err != nil {
			return fmt.Errorf("next voice print id: %w", err)
		}
		// Sequence starts at 0; IDs are 1-based.
		vp.ID = int64(next) + 1
	}
	val, err := msgpack.Marshal(vp)
	if err != nil {
		return fmt.Errorf("encode voice print: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(vp.ID), val)
	})
}

// Delete removes a voice print. Deleting an absent ID reports
// speaker.ErrNotFound.
func (b *Badger) Delete(id int64) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key(id)); err != nil {
			return err
		}
		return txn.Delete(key(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return speaker.ErrNotFound
	}
	return err
}

// UpdateStats records a successful recognition on the stored record.
func (b *Badger) UpdateStats(id int64, lastRecognized time.Time, count int64) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var vp speaker.VoicePrint
		if err := msgpack.Unmarshal(val, &vp); err != nil {
			return fmt.Errorf("decode voice print %d: %w", id, err)
		}
		vp.LastRecognized = &lastRecognized
		vp.RecognitionCount = count
		out, err := msgpack.Marshal(&vp)
		if err != nil {
			return fmt.Errorf("encode voice print %d: %w", id, err)
		}
		return txn.Set(key(id), out)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return speaker.ErrNotFound
	}
	return err
}

// Close releases the sequence lease and closes the database.
func (b *Badger) Close() error {
	if b.seq != nil {
		_ = b.seq.Release()
	}
	return b.db.Close()
}

func key(id int64) []byte {
	k := make([]byte, len(keyPrefix)+8)
	copy(k, keyPrefix)
	binary.BigEndian.PutUint64(k[len(keyPrefix):], uint64(id))
	return k
}

var _ speaker.Store = (*Badger)(nil)

// zapBadgerLogger adapts zap to badger.Logger, demoting badger's info and
// debug chatter below the app's log level.
type zapBadgerLogger struct {
	s *zap.SugaredLogger
}

func (l zapBadgerLogger) Errorf(f string, v ...interface{})   { l.s.Errorf("badger: "+f, v...) }
func (l zapBadgerLogger) Warningf(f string, v ...interface{}) { l.s.Warnf("badger: "+f, v...) }
func (l zapBadgerLogger) Infof(f string, v ...interface{})    { l.s.Debugf("badger: "+f, v...) }
func (l zapBadgerLogger) Debugf(f string, v ...interface{})   { l.s.Debugf("badger: "+f, v...) }
