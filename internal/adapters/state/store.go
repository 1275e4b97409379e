// Package state implements the persisted run record store.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.strandlab.net/floe/internal/core/domain"
	"go.strandlab.net/floe/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.RunRecordStore = (*Store)(nil)

// envelope wraps a record with a checksum over its canonical encoding.
// A record whose checksum does not verify is dropped on load, forcing
// Stale treatment for that target only; the rest of the store stays
// usable.
type envelope struct {
	Record   domain.RunRecord `json:"record"`
	Checksum string           `json:"checksum"`
}

// Store implements ports.RunRecordStore backed by a flat JSON file.
// Writes replace the file atomically via a temp file and rename, and a
// mutex serialises read-modify-write cycles so submissions for
// unrelated targets cannot interleave a partial update.
type Store struct {
	path  string
	mu    sync.Mutex
	cache map[string]domain.RunRecord
}

// NewStore opens the store at path, creating an empty one if the file
// does not exist.
func NewStore(path string, log ports.Logger) (*Store, error) {
	s := &Store{
		path:  filepath.Clean(path),
		cache: make(map[string]domain.RunRecord),
	}
	if err := s.load(log); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(log ports.Logger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.Wrap(err, "failed to read run record store")
	}
	if len(data) == 0 {
		return nil
	}

	var envelopes map[string]envelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return zerr.Wrap(err, "failed to unmarshal run record store")
	}

	for target, env := range envelopes {
		sum, err := checksum(env.Record)
		if err != nil {
			return err
		}
		if sum != env.Checksum {
			if log != nil {
				log.Warn("dropping corrupt run record", "target", target)
			}
			continue
		}
		s.cache[target] = env.Record
	}
	return nil
}

// save writes the whole store atomically. Callers must hold s.mu.
func (s *Store) save() error {
	envelopes := make(map[string]envelope, len(s.cache))
	for target, rec := range s.cache {
		sum, err := checksum(rec)
		if err != nil {
			return err
		}
		envelopes[target] = envelope{Record: rec, Checksum: sum}
	}

	data, err := json.MarshalIndent(envelopes, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal run record store")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.Wrap(err, "failed to create directory for run record store")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return zerr.Wrap(err, "failed to create temp file for run record store")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to write run record store")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to close run record store")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to replace run record store")
	}
	return nil
}

// checksum hashes the record's canonical JSON encoding with xxhash.
func checksum(rec domain.RunRecord) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", zerr.Wrap(err, "failed to encode run record for checksum")
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}

// Get retrieves the record for a target. Returns nil, nil if missing.
func (s *Store) Get(target string) (*domain.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.cache[target]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Update applies fn to the target's record under the store lock and
// persists before returning, preserving the persist-then-proceed
// ordering for the caller.
func (s *Store) Update(target string, fn func(*domain.RunRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.cache[target]
	if !ok {
		rec = domain.RunRecord{Target: target, Status: domain.StatusNeverRun}
	}
	if err := fn(&rec); err != nil {
		return err
	}
	rec.Target = target
	rec.UpdatedAt = time.Now().UTC()
	s.cache[target] = rec

	return s.save()
}

// All returns a snapshot of every record.
func (s *Store) All() (map[string]domain.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]domain.RunRecord, len(s.cache))
	for target, rec := range s.cache {
		out[target] = rec
	}
	return out, nil
}

// Prune drops records whose target is no longer declared.
func (s *Store) Prune(keep map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for target := range s.cache {
		if !keep[target] {
			delete(s.cache, target)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save()
}
