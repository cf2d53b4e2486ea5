package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/conformance/core/factory"
	"github.com/kilianp07/conformance/core/model"
)

func result(year, week int, dept string, status model.Status, fit *model.Fitness) model.FitnessResult {
	return model.FitnessResult{
		Key:     model.GroupKey{Year: year, Week: week, Department: dept},
		Case:    "case_1",
		RunID:   "run",
		Status:  status,
		Fitness: fit,
	}
}

func sample() []model.FitnessResult {
	return []model.FitnessResult{
		result(2021, 7, "CARDIO", model.StatusScored, model.Scored(0.75)),
		result(2021, 3, "ORTHO", model.StatusScored, model.Scored(1)),
		result(2021, 7, "NEURO", model.StatusSkippedEmpty, nil),
		result(2021, 8, "CARDIO", model.StatusTimedOut, nil),
	}
}

func putAll(t *testing.T, s interface {
	Put(context.Context, model.FitnessResult) error
}) {
	t.Helper()
	for _, r := range sample() {
		require.NoError(t, s.Put(context.Background(), r))
	}
}

func TestQueryMatch(t *testing.T) {
	r := result(2021, 7, "CARDIO", model.StatusScored, model.Scored(0.5))
	assert.True(t, Query{}.Match(r))
	assert.True(t, Query{Year: 2021, Week: 7, Department: "CARDIO", Case: "case_1", Status: model.StatusScored}.Match(r))
	assert.False(t, Query{Week: 8}.Match(r))
	assert.False(t, Query{Department: "ORTHO"}.Match(r))
	assert.False(t, Query{Case: "case_2"}.Match(r))
	assert.False(t, Query{Status: model.StatusFailed}.Match(r))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	putAll(t, s)
	assert.Equal(t, 4, s.Len())

	got, err := s.Query(context.Background(), Query{Week: 7})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "CARDIO", got[0].Key.Department)
	assert.Equal(t, "NEURO", got[1].Key.Department)

	// Same case and group replaces.
	require.NoError(t, s.Put(context.Background(), result(2021, 7, "CARDIO", model.StatusScored, model.Scored(0.9))))
	assert.Equal(t, 4, s.Len())
}

func TestJSONStoreWritesKeyedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results_case_1.json")
	s, err := NewJSONStore(path)
	require.NoError(t, err)
	putAll(t, s)
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 4)
	assert.Contains(t, raw, "2021-7-CARDIO")

	got, err := OpenJSONFile(path).Query(context.Background(), Query{Status: model.StatusScored})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ORTHO", got[0].Key.Department)
	assert.InDelta(t, 0.75, got[1].Fitness.Value, 1e-9)
}

type brokenBuffer struct{ *MemoryStore }

func (brokenBuffer) Query(context.Context, Query) ([]model.FitnessResult, error) {
	return nil, errors.New("buffer lost")
}

func TestJSONStoreCloseReportsCollectError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	s, err := NewJSONStore(path)
	require.NoError(t, err)
	s.buf = brokenBuffer{NewMemoryStore()}
	putAll(t, s)

	err = s.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffer lost")
	assert.NoFileExists(t, path)
}

func TestJSONLStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	s, err := NewJSONLStore(path, 1, 1, 1)
	require.NoError(t, err)
	putAll(t, s)

	got, err := s.Query(context.Background(), Query{Department: "CARDIO"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.StatusScored, got[0].Status)
	assert.Equal(t, model.StatusTimedOut, got[1].Status)
	require.NoError(t, s.Close())

	r, err := Open(path)
	require.NoError(t, err)
	all, err := r.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore("file:results_test.db?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	putAll(t, s)

	got, err := s.Query(context.Background(), Query{Year: 2021, Week: 7})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "CARDIO", got[0].Key.Department)
	assert.Nil(t, got[1].Fitness)

	// Rewriting a group replaces the row.
	require.NoError(t, s.Put(context.Background(), result(2021, 7, "CARDIO", model.StatusScored, model.Scored(0.5))))
	got, err = s.Query(context.Background(), Query{Department: "CARDIO", Week: 7})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.5, got[0].Fitness.Value, 1e-9)

	got, err = s.Query(context.Background(), Query{Status: model.StatusTimedOut})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	s, err := New([]factory.ModuleConfig{
		{Type: "json"},
		{Type: "jsonl", Conf: map[string]any{"path": "stream_{case}.jsonl"}},
	}, Target{RunDir: dir, Case: "case_2"})
	require.NoError(t, err)
	_, ok := s.(*MultiStore)
	require.True(t, ok)
	require.NoError(t, s.Put(context.Background(), result(2021, 1, "A", model.StatusScored, model.Scored(1))))
	require.NoError(t, s.Close())

	assert.FileExists(t, filepath.Join(dir, "results_case_2.json"))
	assert.FileExists(t, filepath.Join(dir, "stream_case_2.jsonl"))
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New([]factory.ModuleConfig{{Type: "memory"}, {Type: "nope"}}, Target{})
	assert.Error(t, err)
	_, err = New(nil, Target{})
	assert.Error(t, err)
	assert.Contains(t, Types(), "sqlite")
}

func TestOpenRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, err := Open(path)
	assert.Error(t, err)
	_, err = Open(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

type failingStore struct{ closed bool }

func (f *failingStore) Put(context.Context, model.FitnessResult) error { return assert.AnError }
func (f *failingStore) Close() error                                   { f.closed = true; return nil }

func TestMultiStoreJoinsErrors(t *testing.T) {
	mem := NewMemoryStore()
	bad := &failingStore{}
	m := NewMultiStore(mem, nil, bad)
	err := m.Put(context.Background(), sample()[0])
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, mem.Len())
	require.NoError(t, m.Close())
	assert.True(t, bad.closed)
}
