package conformance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/conformance/core/alignment"
	"github.com/kilianp07/conformance/core/events"
	"github.com/kilianp07/conformance/core/metrics"
	"github.com/kilianp07/conformance/core/model"
	"github.com/kilianp07/conformance/core/petrinet"
	"github.com/kilianp07/conformance/internal/eventbus"
)

const day0 = 18800

type mapSource struct {
	groups  map[model.GroupKey]model.Group
	fail    map[model.GroupKey]error
	dropped int
}

func (s *mapSource) Keys(context.Context) ([]model.GroupKey, error) {
	var keys []model.GroupKey
	for k := range s.groups {
		keys = append(keys, k)
	}
	for k := range s.fail {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys, nil
}

func (s *mapSource) Group(_ context.Context, key model.GroupKey) (model.Group, error) {
	if err, ok := s.fail[key]; ok {
		return model.Group{}, err
	}
	return s.groups[key], nil
}

func (s *mapSource) Dropped() int { return s.dropped }

type memStore struct {
	mu   sync.Mutex
	byID map[model.GroupKey]model.FitnessResult
	err  error
}

func newMemStore() *memStore { return &memStore{byID: map[model.GroupKey]model.FitnessResult{}} }

func (m *memStore) Put(_ context.Context, res model.FitnessResult) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[res.Key] = res
	return nil
}

func (m *memStore) Close() error { return nil }

type countingAligner struct {
	mu    sync.Mutex
	calls int
	inner Aligner
	panic map[string]bool
}

func (c *countingAligner) Align(net *petrinet.Net, trace model.Trace) (*alignment.Alignment, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.panic[net.Name] {
		panic("corrupt marking")
	}
	return c.inner.Align(net, trace)
}

type recordingSink struct {
	mu      sync.Mutex
	results int
	runs    []metrics.RunSummary
}

func (s *recordingSink) RecordGroupResult(model.FitnessResult) error {
	s.mu.Lock()
	s.results++
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) RecordRun(sum metrics.RunSummary) error {
	s.runs = append(s.runs, sum)
	return nil
}

type stubVisualizer struct {
	mu    sync.Mutex
	keys  []model.GroupKey
	err   error
	panic bool
}

func (v *stubVisualizer) Render(_ context.Context, key model.GroupKey, _ *petrinet.Net) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys = append(v.keys, key)
	if v.panic {
		panic("renderer crashed")
	}
	return "net.html", v.err
}

type timeoutAligner struct{ err error }

func (a timeoutAligner) Align(*petrinet.Net, model.Trace) (*alignment.Alignment, error) {
	return nil, a.err
}

func key(week int) model.GroupKey {
	return model.GroupKey{Year: 2021, Week: week, Department: "CARDIO"}
}

func group(k model.GroupKey, days [][]string, trace ...string) model.Group {
	g := model.Group{Key: k, Observed: model.NewTrace(trace...)}
	for d, acts := range days {
		for _, a := range acts {
			g.Planned = append(g.Planned, model.PlannedOperation{Day: day0 + d, Activity: a})
		}
	}
	return g
}

func scenarios() *mapSource {
	return &mapSource{groups: map[model.GroupKey]model.Group{
		key(1): group(key(1), [][]string{{"A", "B"}, {"C"}}, "A", "B", "C"),
		key(2): group(key(2), [][]string{{"A", "B"}}, "A"),
		key(3): group(key(3), [][]string{{"A", "B"}}, "A", "B", "X"),
		key(4): group(key(4), nil, "A"),
	}}
}

func TestRunScenarios(t *testing.T) {
	store := newMemStore()
	aligner := &countingAligner{inner: alignment.NewEngine(alignment.Options{})}
	r := NewRunner(store, Options{RunID: "r1", Case: "e", Workers: 2}, WithAligner(aligner))

	sum, err := r.Run(context.Background(), scenarios())
	require.NoError(t, err)
	require.Len(t, sum.Results, 4)
	assert.Equal(t, key(1), sum.Results[0].Key)

	a := store.byID[key(1)]
	assert.Equal(t, model.StatusScored, a.Status)
	require.True(t, a.HasFitness())
	assert.InDelta(t, 1.0, a.Fitness.Value, 1e-9)
	assert.Equal(t, 3, a.SyncMoves)
	assert.Zero(t, a.Cost)
	assert.Equal(t, "e", a.Case)
	assert.Equal(t, "r1", a.RunID)

	b := store.byID[key(2)]
	assert.Equal(t, model.StatusScored, b.Status)
	assert.InDelta(t, 2.0/3.0, b.Fitness.Value, 1e-9)
	assert.Equal(t, 1, b.ModelMoves)
	assert.Zero(t, b.LogMoves)

	c := store.byID[key(3)]
	assert.InDelta(t, 0.8, c.Fitness.Value, 1e-9)
	assert.Equal(t, 1, c.LogMoves)
	assert.Zero(t, c.ModelMoves)

	d := store.byID[key(4)]
	assert.Equal(t, model.StatusSkippedEmpty, d.Status)
	assert.Nil(t, d.Fitness)
	assert.Equal(t, ErrEmptyGroup.Error(), d.Error)

	// The empty group never reaches the engine.
	assert.Equal(t, 3, aligner.calls)
	assert.Equal(t, map[model.Status]int{model.StatusScored: 3, model.StatusSkippedEmpty: 1}, sum.Counts)
}

func TestRunEmptyTraceScoresZero(t *testing.T) {
	store := newMemStore()
	src := &mapSource{groups: map[model.GroupKey]model.Group{
		key(5): group(key(5), [][]string{{"A"}, {"B", "C"}}),
	}}
	_, err := NewRunner(store, Options{}).Run(context.Background(), src)
	require.NoError(t, err)

	res := store.byID[key(5)]
	assert.Equal(t, model.StatusScored, res.Status)
	assert.Equal(t, 0.0, res.Fitness.Value)
	assert.Equal(t, 3, res.ModelMoves)
}

func TestRunIsolatesPanics(t *testing.T) {
	store := newMemStore()
	aligner := &countingAligner{
		inner: alignment.NewEngine(alignment.Options{}),
		panic: map[string]bool{key(2).String(): true},
	}
	sum, err := NewRunner(store, Options{Workers: 1}, WithAligner(aligner)).Run(context.Background(), scenarios())
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, store.byID[key(2)].Status)
	assert.Contains(t, store.byID[key(2)].Error, "corrupt marking")
	assert.Nil(t, store.byID[key(2)].Fitness)
	assert.Equal(t, model.StatusScored, store.byID[key(1)].Status)
	assert.Equal(t, model.StatusScored, store.byID[key(3)].Status)
	assert.Equal(t, 1, sum.Counts[model.StatusFailed])
}

func TestRunTimeoutHasNoFitness(t *testing.T) {
	store := newMemStore()
	src := &mapSource{groups: map[model.GroupKey]model.Group{
		key(6): group(key(6), [][]string{{"A", "B", "C"}, {"D"}}, "X", "Y"),
	}}
	_, err := NewRunner(store, Options{MaxExpansions: 1}).Run(context.Background(), src)
	require.NoError(t, err)

	res := store.byID[key(6)]
	assert.Equal(t, model.StatusTimedOut, res.Status)
	assert.Nil(t, res.Fitness)
	assert.Equal(t, 1, res.Expanded)
}

func TestRunTimeoutReportsAlignerExpansions(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"budget error", &alignment.BudgetError{Expanded: 42}, 42},
		{"wrapped budget error", fmt.Errorf("group: %w", &alignment.BudgetError{Expanded: 9}), 9},
		{"bare timeout", alignment.ErrTimeout, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			src := &mapSource{groups: map[model.GroupKey]model.Group{
				key(6): group(key(6), [][]string{{"A"}}, "A"),
			}}
			r := NewRunner(store, Options{MaxExpansions: 7}, WithAligner(timeoutAligner{err: tt.err}))
			_, err := r.Run(context.Background(), src)
			require.NoError(t, err)

			res := store.byID[key(6)]
			assert.Equal(t, model.StatusTimedOut, res.Status)
			assert.Equal(t, tt.want, res.Expanded)
			assert.Nil(t, res.Fitness)
		})
	}
}

func TestRunSourceErrorFailsOnlyThatGroup(t *testing.T) {
	store := newMemStore()
	src := scenarios()
	src.fail = map[model.GroupKey]error{key(9): errors.New("bad rows")}

	sum, err := NewRunner(store, Options{}).Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, store.byID[key(9)].Status)
	assert.Equal(t, 5, len(sum.Results))
}

func TestRunStoreErrorAbortsRun(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("disk full")
	_, err := NewRunner(store, Options{Workers: 1}).Run(context.Background(), scenarios())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := newMemStore()
	sum, err := NewRunner(store, Options{}).Run(ctx, scenarios())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, sum)
	assert.Empty(t, sum.Results)
}

func TestRunVisualizerFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	vis := &stubVisualizer{err: errors.New("no space")}
	_, err := NewRunner(store, Options{}, WithVisualizer(vis)).Run(context.Background(), scenarios())
	require.NoError(t, err)
	assert.Len(t, vis.keys, 3)
	assert.Equal(t, model.StatusScored, store.byID[key(1)].Status)
}

func TestRunVisualizerPanicIsNotFatal(t *testing.T) {
	store := newMemStore()
	vis := &stubVisualizer{panic: true}
	sum, err := NewRunner(store, Options{}, WithVisualizer(vis)).Run(context.Background(), scenarios())
	require.NoError(t, err)
	assert.Len(t, vis.keys, 3)
	assert.Equal(t, model.StatusScored, store.byID[key(1)].Status)
	assert.InDelta(t, 1.0, store.byID[key(1)].Fitness.Value, 1e-9)
	assert.Zero(t, sum.Counts[model.StatusFailed])
}

func TestRunPublishesProgressAndMetrics(t *testing.T) {
	bus := eventbus.NewTyped[events.Progress]()
	defer bus.Close()
	sub := bus.Subscribe()
	sink := &recordingSink{}
	src := scenarios()
	src.dropped = 2

	_, err := NewRunner(newMemStore(), Options{Case: "eue"}, WithBus(bus), WithMetrics(sink)).Run(context.Background(), src)
	require.NoError(t, err)

	first := <-sub
	started, ok := first.(events.RunStarted)
	require.True(t, ok, "got %T", first)
	assert.Equal(t, 4, started.Groups)
	for i := 0; i < 4; i++ {
		ev := <-sub
		done, ok := ev.(events.GroupDone)
		require.True(t, ok, "got %T", ev)
		assert.Equal(t, 4, done.Total)
	}
	last := <-sub
	finished, ok := last.(events.RunFinished)
	require.True(t, ok, "got %T", last)
	assert.NoError(t, finished.Err)

	assert.Equal(t, 4, sink.results)
	require.Len(t, sink.runs, 1)
	assert.Equal(t, 2, sink.runs[0].Dropped)
	assert.Equal(t, 4, sink.runs[0].Total())
	assert.Equal(t, "eue", sink.runs[0].Case)
}
