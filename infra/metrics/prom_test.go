package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/conformance/core/metrics"
	"github.com/kilianp07/conformance/core/model"
)

func TestPromSinkRecordGroupResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	key := model.GroupKey{Year: 2021, Week: 7, Department: "CARDIO"}
	require.NoError(t, s.RecordGroupResult(model.FitnessResult{Key: key, Case: "e", Status: model.StatusScored, Fitness: model.Scored(1), Expanded: 5}))
	require.NoError(t, s.RecordGroupResult(model.FitnessResult{Key: key, Case: "e", Status: model.StatusScored, Fitness: model.Scored(0.5)}))
	require.NoError(t, s.RecordGroupResult(model.FitnessResult{Key: key, Case: "e", Status: model.StatusSkippedEmpty}))

	assert.Equal(t, 2.0, testutil.ToFloat64(s.groups.WithLabelValues("e", "scored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.groups.WithLabelValues("e", "skipped_empty")))
	assert.Equal(t, 1, testutil.CollectAndCount(s.fitness))
	assert.Equal(t, 3, testutil.CollectAndCount(s.groups)+testutil.CollectAndCount(s.duration))
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, a.RecordGroupResult(model.FitnessResult{Case: "e", Status: model.StatusFailed}))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.groups.WithLabelValues("e", "failed")))
}

func TestPromSinkRecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, s.RecordRun(coremetrics.RunSummary{
		Case:     "eue",
		Counts:   map[model.Status]int{model.StatusScored: 7},
		Duration: 2 * time.Second,
	}))
	assert.Equal(t, 7.0, testutil.ToFloat64(s.lastRun.WithLabelValues("eue", "scored")))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.lastRun.WithLabelValues("eue", "failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.lastTotal.WithLabelValues("eue")))
}
