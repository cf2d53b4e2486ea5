package metrics

import "github.com/kilianp07/conformance/core/model"

// MultiSink fanouts group results to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordGroupResult forwards the result to all sinks, returning the first error encountered.
func (m *MultiSink) RecordGroupResult(res model.FitnessResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordGroupResult(res); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun forwards run summaries when supported by the sink.
func (m *MultiSink) RecordRun(sum RunSummary) error {
	for _, s := range m.Sinks {
		if rr, ok := s.(RunRecorder); ok {
			if err := rr.RecordRun(sum); err != nil {
				return err
			}
		}
	}
	return nil
}
