package metrics

import (
	"time"

	"github.com/kilianp07/conformance/core/model"
)

// MetricsSink records scored groups for observability purposes.
type MetricsSink interface {
	RecordGroupResult(res model.FitnessResult) error
}

// RunSummary aggregates the outcome of one case of a run.
type RunSummary struct {
	RunID    string
	Case     string
	Counts   map[model.Status]int
	Dropped  int
	Duration time.Duration
	Time     time.Time
}

// Total returns the number of groups processed.
func (s RunSummary) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// RunRecorder records run summaries.
type RunRecorder interface {
	RecordRun(sum RunSummary) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordGroupResult(model.FitnessResult) error { return nil }

// Ensure NopSink implements RunRecorder.
func (NopSink) RecordRun(RunSummary) error { return nil }
