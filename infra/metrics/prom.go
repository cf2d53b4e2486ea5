package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/conformance/core/metrics"
	"github.com/kilianp07/conformance/core/model"
)

// PromSink records group outcomes in Prometheus metrics.
type PromSink struct {
	groups    *prometheus.CounterVec
	fitness   *prometheus.HistogramVec
	expanded  *prometheus.HistogramVec
	duration  *prometheus.HistogramVec
	lastRun   *prometheus.GaugeVec
	lastTotal *prometheus.GaugeVec
}

// NewPromSink registers conformance metrics on the default Prometheus registerer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	s, err := NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		groups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conformance_groups_total",
			Help: "Total number of processed groups by status",
		}, []string{"case", "status"}),
		fitness: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conformance_group_fitness",
			Help:    "Fitness of scored groups",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"case"}),
		expanded: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conformance_alignment_expanded_states",
			Help:    "Search states expanded per alignment",
			Buckets: prometheus.ExponentialBuckets(10, 4, 10),
		}, []string{"case"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conformance_group_duration_seconds",
			Help:    "Time spent scoring one group",
			Buckets: prometheus.DefBuckets,
		}, []string{"case"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "conformance_last_run_groups",
			Help: "Groups per status in the last completed run",
		}, []string{"case", "status"}),
		lastTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "conformance_last_run_duration_seconds",
			Help: "Wall time of the last completed run",
		}, []string{"case"}),
	}
	var err error
	if s.groups, err = register(reg, s.groups); err != nil {
		return nil, err
	}
	if s.fitness, err = register(reg, s.fitness); err != nil {
		return nil, err
	}
	if s.expanded, err = register(reg, s.expanded); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.lastRun, err = register(reg, s.lastRun); err != nil {
		return nil, err
	}
	if s.lastTotal, err = register(reg, s.lastTotal); err != nil {
		return nil, err
	}
	return s, nil
}

// register reuses an already registered collector of the same shape.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordGroupResult updates the counters and histograms for one group.
func (s *PromSink) RecordGroupResult(res model.FitnessResult) error {
	s.groups.WithLabelValues(res.Case, string(res.Status)).Inc()
	if res.HasFitness() {
		s.fitness.WithLabelValues(res.Case).Observe(res.Fitness.Value)
	}
	if res.Status == model.StatusScored || res.Status == model.StatusTimedOut {
		s.expanded.WithLabelValues(res.Case).Observe(float64(res.Expanded))
	}
	s.duration.WithLabelValues(res.Case).Observe(float64(res.DurationMS) / 1000)
	return nil
}

// RecordRun publishes the per-status totals of a completed run.
func (s *PromSink) RecordRun(sum coremetrics.RunSummary) error {
	for _, st := range model.Statuses {
		s.lastRun.WithLabelValues(sum.Case, string(st)).Set(float64(sum.Counts[st]))
	}
	s.lastTotal.WithLabelValues(sum.Case).Set(sum.Duration.Seconds())
	return nil
}

// GroupsCounter exposes the per case and status group counter.
func (s *PromSink) GroupsCounter() *prometheus.CounterVec { return s.groups }
