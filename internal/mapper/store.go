package mapper

import (
	"encoding/json"
	"os"
	"sync"

	"invoice-audit-service/internal/models"
	"invoice-audit-service/pkg/errors"
	"invoice-audit-service/pkg/logger"

	"github.com/spf13/afero"
)

// LearnedStore holds caller-confirmed label corrections: normalized raw label
// to canonical field. It is the only mutable shared state in the core, with
// single-writer many-reader access guarded by an RWMutex. Entries are written
// only through Learn, never inferred from fuzzy matches, so a wrong guess can
// never entrench itself silently.
//
// The store persists as a flat JSON object of label name to field name. The
// filesystem is abstracted through afero so tests run against an in-memory
// filesystem.
type LearnedStore struct {
	fs   afero.Fs
	path string
	log  logger.Logger

	mu      sync.RWMutex
	entries map[string]models.CanonicalField
}

// NewLearnedStore creates a store backed by the given filesystem and path.
// Call Load before first use to pick up persisted entries.
func NewLearnedStore(fs afero.Fs, path string) *LearnedStore {
	return &LearnedStore{
		fs:      fs,
		path:    path,
		log:     logger.GetGlobalLogger().WithComponent("learned_store"),
		entries: make(map[string]models.CanonicalField),
	}
}

// NewMemoryStore creates a store backed by an in-memory filesystem, for
// callers that do not need persistence across restarts.
func NewMemoryStore() *LearnedStore {
	return NewLearnedStore(afero.NewMemMapFs(), "learned_mappings.json")
}

// Load reads persisted mappings from the store file. A missing file is not
// an error; the store starts empty.
func (s *LearnedStore) Load() error {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.StorageError(errors.CodeLoadFailed, s.path, err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.StorageError(errors.CodeLoadFailed, s.path, err)
	}

	entries := make(map[string]models.CanonicalField, len(raw))
	for label, name := range raw {
		field, err := models.ParseCanonicalField(name)
		if err != nil {
			return errors.StorageError(errors.CodeLoadFailed, s.path, err).
				WithContext("label", label)
		}
		entries[label] = field
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	s.log.WithField("count", len(entries)).Debug("Loaded learned mappings")
	return nil
}

// Lookup returns the learned field for a normalized label.
func (s *LearnedStore) Lookup(normalizedLabel string) (models.CanonicalField, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	field, ok := s.entries[normalizedLabel]
	return field, ok
}

// Learn inserts or overwrites the mapping for a normalized label and persists
// the store. It is idempotent: learning an identical mapping twice leaves the
// store and its file unchanged after the second call.
func (s *LearnedStore) Learn(normalizedLabel string, field models.CanonicalField) error {
	if !field.IsValid() {
		return errors.MappingError(errors.CodeUnknownField, normalizedLabel, nil)
	}

	s.mu.Lock()
	if existing, ok := s.entries[normalizedLabel]; ok && existing == field {
		s.mu.Unlock()
		return nil
	}
	s.entries[normalizedLabel] = field
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.log.WithFields(logger.Fields{
		"label": normalizedLabel,
		"field": field.String(),
	}).Info("Learned field mapping")

	return s.persist(snapshot)
}

// Forget removes all learned mappings and deletes the store file.
func (s *LearnedStore) Forget() error {
	s.mu.Lock()
	s.entries = make(map[string]models.CanonicalField)
	s.mu.Unlock()

	if err := s.fs.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.StorageError(errors.CodeSaveFailed, s.path, err)
	}
	return nil
}

// Len returns the number of learned mappings.
func (s *LearnedStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns a copy of the learned mappings.
func (s *LearnedStore) Entries() map[string]models.CanonicalField {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make(map[string]models.CanonicalField, len(s.entries))
	for label, field := range s.entries {
		cp[label] = field
	}
	return cp
}

// snapshotLocked serializes the entries for persistence. Caller holds the
// write lock.
func (s *LearnedStore) snapshotLocked() map[string]string {
	raw := make(map[string]string, len(s.entries))
	for label, field := range s.entries {
		raw[label] = field.String()
	}
	return raw
}

func (s *LearnedStore) persist(raw map[string]string) error {
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return errors.StorageError(errors.CodeSaveFailed, s.path, err)
	}

	if err := afero.WriteFile(s.fs, s.path, data, 0644); err != nil {
		return errors.StorageError(errors.CodeSaveFailed, s.path, err)
	}
	return nil
}
