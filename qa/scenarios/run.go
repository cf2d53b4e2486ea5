package scenarios

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/conformance/core/conformance"
	"github.com/kilianp07/conformance/core/model"
	"github.com/kilianp07/conformance/infra/logger"
	"github.com/kilianp07/conformance/infra/metrics"
	"github.com/kilianp07/conformance/infra/store"
)

// source serves a single group.
type source struct{ grp model.Group }

func (s source) Keys(context.Context) ([]model.GroupKey, error) {
	return []model.GroupKey{s.grp.Key}, nil
}

func (s source) Group(_ context.Context, key model.GroupKey) (model.Group, error) {
	if key != s.grp.Key {
		return model.Group{}, fmt.Errorf("unknown group %s", key)
	}
	return s.grp, nil
}

// RunScenario scores the scenario group end to end and checks the stored
// result and the exported metrics.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	mem := store.NewMemoryStore()

	key := model.GroupKey{Year: 2021, Week: 25, Department: "QA"}
	runner := conformance.NewRunner(mem, conformance.Options{
		RunID:          "scenario",
		Case:           sc.Name,
		Workers:        1,
		MaxExpansions:  sc.MaxExpansions,
		ContiguousDays: sc.ContiguousDays,
	}, conformance.WithMetrics(sink), conformance.WithLogger(logger.NopLogger{}))

	sum, err := runner.Run(context.Background(), source{grp: sc.Group(key)})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Counts[sc.Expected.Status])

	stored, err := mem.Query(context.Background(), store.Query{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	res := stored[0]

	assert.Equal(t, sc.Expected.Status, res.Status, res.Error)
	assert.Equal(t, sc.Expected.Sync, res.SyncMoves, "sync moves")
	assert.Equal(t, sc.Expected.Log, res.LogMoves, "log moves")
	assert.Equal(t, sc.Expected.Model, res.ModelMoves, "model moves")
	if sc.Expected.Fitness != nil {
		require.True(t, res.HasFitness())
		assert.InDelta(t, *sc.Expected.Fitness, res.Fitness.Value, 1e-3)
	} else {
		assert.False(t, res.HasFitness())
	}

	counted := testutil.ToFloat64(sink.GroupsCounter().WithLabelValues(sc.Name, string(sc.Expected.Status)))
	assert.Equal(t, 1.0, counted)
}
