package store

import (
	"context"
	"sync"

	"github.com/kilianp07/conformance/core/model"
)

// MemoryStore keeps results in memory. It backs tests and the serve command.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]model.FitnessResult
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]model.FitnessResult)}
}

func memKey(r model.FitnessResult) string { return r.Case + "/" + r.Key.String() }

// Put stores res, replacing an earlier result of the same case and group.
func (s *MemoryStore) Put(_ context.Context, res model.FitnessResult) error {
	s.mu.Lock()
	s.results[memKey(res)] = res
	s.mu.Unlock()
	return nil
}

// Query returns the matching results ordered by key.
func (s *MemoryStore) Query(_ context.Context, q Query) ([]model.FitnessResult, error) {
	s.mu.RLock()
	all := make([]model.FitnessResult, 0, len(s.results))
	for _, r := range s.results {
		all = append(all, r)
	}
	s.mu.RUnlock()
	return filter(all, q), nil
}

// Len returns the number of stored results.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

func (s *MemoryStore) Close() error { return nil }
