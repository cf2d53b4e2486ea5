package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kilianp07/conformance/core/model"
	"github.com/kilianp07/conformance/pkg/export"
)

// JSONStore collects results and writes them on Close as one JSON object
// keyed by "<year>-<week>-<department>".
type JSONStore struct {
	path string
	mu   sync.Mutex
	buf  resultBuffer
}

type resultBuffer interface {
	Put(context.Context, model.FitnessResult) error
	Reader
}

// NewJSONStore returns a store writing to path. The directory is created.
func NewJSONStore(path string) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &JSONStore{path: path, buf: NewMemoryStore()}, nil
}

// Path returns the output file.
func (s *JSONStore) Path() string { return s.path }

func (s *JSONStore) Put(ctx context.Context, res model.FitnessResult) error {
	return s.buf.Put(ctx, res)
}

// Close writes the file atomically.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	results, err := s.buf.Query(context.Background(), Query{})
	if err != nil {
		return fmt.Errorf("collect results for %s: %w", s.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".results-*.json")
	if err != nil {
		return err
	}
	if err := export.WriteJSON(tmp, export.ResultsByKey(results)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// JSONFile reads a results file written by JSONStore.
type JSONFile struct {
	path string
}

// OpenJSONFile returns a reader over path.
func OpenJSONFile(path string) *JSONFile { return &JSONFile{path: path} }

func (f *JSONFile) Query(_ context.Context, q Query) ([]model.FitnessResult, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	var byKey map[string]model.FitnessResult
	if err := json.Unmarshal(data, &byKey); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	all := make([]model.FitnessResult, 0, len(byKey))
	for k, r := range byKey {
		if r.Key == (model.GroupKey{}) {
			key, err := model.ParseGroupKey(k)
			if err != nil {
				return nil, err
			}
			r.Key = key
		}
		all = append(all, r)
	}
	return filter(all, q), nil
}
