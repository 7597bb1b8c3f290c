// Package dataset holds the loaded facility records and the session's
// filter threshold.
package dataset

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/couchcryptid/methane-encoder-service/internal/domain"
)

// Store is an ordered, concurrency-safe collection of records keyed by ID.
// Re-adding an ID replaces the record in place. Every change bumps Version.
type Store struct {
	mu        sync.RWMutex
	records   []domain.EmissionRecord
	index     map[string]int
	version   uint64
	listeners []func(version uint64, size int)
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// Add inserts or replaces records and returns the new version. Subscribers
// run after the lock is released.
func (s *Store) Add(records ...domain.EmissionRecord) uint64 {
	s.mu.Lock()
	if len(records) == 0 {
		v := s.version
		s.mu.Unlock()
		return v
	}
	for _, r := range records {
		if i, ok := s.index[r.ID]; ok {
			s.records[i] = r
			continue
		}
		s.index[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}
	s.version++
	version, size := s.version, len(s.records)
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(version, size)
	}
	return version
}

// Subscribe registers fn to run after every change with the new version and
// record count.
func (s *Store) Subscribe(fn func(version uint64, size int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// LoadBatch stores the records of encoded facilities. It implements
// pipeline.BatchLoader so the store can sit behind the Kafka pipeline.
func (s *Store) LoadBatch(_ context.Context, batch []domain.EncodedFacility) error {
	records := make([]domain.EmissionRecord, len(batch))
	for i := range batch {
		records[i] = batch[i].Record
	}
	s.Add(records...)
	return nil
}

// All returns a copy of the records in insertion order.
func (s *Store) All() []domain.EmissionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.EmissionRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Snapshot returns a copy of the records together with the version they
// belong to.
func (s *Store) Snapshot() ([]domain.EmissionRecord, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.EmissionRecord, len(s.records))
	copy(out, s.records)
	return out, s.version
}

// Get looks up a record by ID.
func (s *Store) Get(id string) (domain.EmissionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return domain.EmissionRecord{}, false
	}
	return s.records[i], true
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Version increases on every change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// MaxMethane returns the largest methane value, or 0 for an empty store.
func (s *Store) MaxMethane() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var maxV float64
	for i := range s.records {
		if v := s.records[i].MethaneTonsCO2e; v > maxV {
			maxV = v
		}
	}
	return maxV
}

// CheckReadiness reports ready once at least one record is loaded.
func (s *Store) CheckReadiness(_ context.Context) error {
	if s.Len() == 0 {
		return errors.New("dataset has no records loaded")
	}
	return nil
}
