package store

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kilianp07/conformance/core/model"
)

// JSONLStore appends one JSON line per result with automatic rotation.
type JSONLStore struct {
	mu     sync.Mutex
	logger *lumberjack.Logger
	path   string
}

// NewJSONLStore creates a store with rotation options in megabytes and days.
func NewJSONLStore(path string, maxSizeMB, maxBackups, maxAgeDays int) (*JSONLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	return &JSONLStore{logger: lj, path: path}, nil
}

// Put writes the result and triggers rotation if needed.
func (s *JSONLStore) Put(_ context.Context, res model.FitnessResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.logger.Write(append(b, '\n'))
	return err
}

// Query reads the active file and its rotated backups.
func (s *JSONLStore) Query(_ context.Context, q Query) ([]model.FitnessResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readJSONL(s.path, q)
}

// Close closes the underlying writer.
func (s *JSONLStore) Close() error {
	return s.logger.Close()
}

// JSONLFile reads results written by JSONLStore.
type JSONLFile struct{ path string }

// OpenJSONLFile returns a reader over path and its backups.
func OpenJSONLFile(path string) *JSONLFile { return &JSONLFile{path: path} }

func (f *JSONLFile) Query(_ context.Context, q Query) ([]model.FitnessResult, error) {
	return readJSONL(f.path, q)
}

func readJSONL(path string, q Query) ([]model.FitnessResult, error) {
	ext := filepath.Ext(path)
	backups, err := filepath.Glob(path[:len(path)-len(ext)] + "-*" + ext)
	if err != nil {
		return nil, err
	}
	var all []model.FitnessResult
	for _, name := range append(backups, path) {
		f, err := os.Open(name)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			var r model.FitnessResult
			if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
				continue
			}
			all = append(all, r)
		}
		err = sc.Err()
		_ = f.Close()
		if err != nil {
			return nil, err
		}
	}
	return filter(all, q), nil
}
