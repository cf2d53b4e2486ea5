// Package app wires the configuration into runnable conformance services.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/conformance/config"
	"github.com/kilianp07/conformance/core/conformance"
	"github.com/kilianp07/conformance/core/events"
	"github.com/kilianp07/conformance/core/extract"
	coremetrics "github.com/kilianp07/conformance/core/metrics"
	"github.com/kilianp07/conformance/core/model"
	coremon "github.com/kilianp07/conformance/core/monitoring"
	"github.com/kilianp07/conformance/core/petrinet"
	"github.com/kilianp07/conformance/core/report"
	"github.com/kilianp07/conformance/infra/dataset"
	"github.com/kilianp07/conformance/infra/logger"
	_ "github.com/kilianp07/conformance/infra/metrics"
	"github.com/kilianp07/conformance/infra/monitoring"
	"github.com/kilianp07/conformance/infra/store"
	"github.com/kilianp07/conformance/infra/visualizer"
	"github.com/kilianp07/conformance/internal/eventbus"
	"github.com/kilianp07/conformance/pkg/export"
)

// ErrUnknownCase is returned when a requested case is not configured.
var ErrUnknownCase = errors.New("unknown case")

// Service scores the configured dataset, one independent run per case.
type Service struct {
	cfg  *config.Config
	log  logger.Logger
	sink coremetrics.MetricsSink
	bus  *eventbus.TypedBus[events.Progress]
	mon  coremon.Monitor
	now  func() time.Time
}

// RunOptions selects what a Run scores and where it writes.
type RunOptions struct {
	// Cases restricts the run to the named cases. Empty runs them all.
	Cases []string
	// RunDir overrides the timestamped directory under output.dir.
	RunDir string
	// RunID overrides the generated run identifier.
	RunID string
}

// RunResult is the outcome of a Run.
type RunResult struct {
	RunID     string
	RunDir    string
	Stats     dataset.Stats
	Summaries []*conformance.Summary
	Reports   []report.Report
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	return &Service{
		cfg:  cfg,
		log:  logger.New("service"),
		sink: sink,
		bus:  eventbus.NewTyped[events.Progress](),
		mon:  mon,
		now:  time.Now,
	}, nil
}

// Bus returns the progress bus of every run of the service.
func (s *Service) Bus() *eventbus.TypedBus[events.Progress] { return s.bus }

func (s *Service) cases(names []string) ([]config.CaseConfig, error) {
	if len(names) == 0 {
		return s.cfg.Alignment.Cases, nil
	}
	out := make([]config.CaseConfig, 0, len(names))
	for _, n := range names {
		cs, ok := s.cfg.Alignment.Case(n)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownCase, n)
		}
		out = append(out, cs)
	}
	return out, nil
}

// Run loads the dataset once and scores every selected case into its own
// stores under the run directory. A report per case is written next to the
// results.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	cases, err := s.cases(opts.Cases)
	if err != nil {
		return nil, err
	}
	out := &RunResult{RunID: opts.RunID, RunDir: opts.RunDir}
	if out.RunID == "" {
		out.RunID = uuid.NewString()
	}
	if out.RunDir == "" {
		out.RunDir = s.cfg.Output.RunDir(s.now())
	}
	if err := os.MkdirAll(out.RunDir, 0o755); err != nil {
		return nil, fmt.Errorf("run dir: %w", err)
	}
	log := s.log.With("run_id", out.RunID)

	records, stats, err := dataset.Load(ctx, s.cfg.Dataset, logger.New("dataset"))
	if err != nil {
		return nil, err
	}
	out.Stats = stats
	log.Infof("loaded %d records from %d rows, %d dropped", stats.Records, stats.Rows, stats.Dropped)

	for _, cs := range cases {
		sum, err := s.runCase(ctx, out, records, cs)
		if sum != nil {
			out.Summaries = append(out.Summaries, sum)
			rep := report.Build(cs.Name, sum.Results)
			out.Reports = append(out.Reports, rep)
			if werr := writeReport(filepath.Join(out.RunDir, "report_"+cs.Name+".json"), rep); werr != nil {
				log.Warnf("write report of %s: %v", cs.Name, werr)
			}
		}
		if err != nil {
			return out, fmt.Errorf("case %s: %w", cs.Name, err)
		}
	}
	s.mon.Flush(2 * time.Second)
	return out, nil
}

func (s *Service) runCase(ctx context.Context, out *RunResult, records []model.Record, cs config.CaseConfig) (sum *conformance.Summary, err error) {
	log := s.log.With("case", cs.Name)
	src := extract.New(records, s.cfg.Alignment.Filter(cs), log)
	st, err := store.New(s.cfg.Stores, store.Target{RunDir: out.RunDir, Case: cs.Name})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close stores: %w", cerr)
		}
	}()

	opts := []conformance.Option{
		conformance.WithMetrics(s.sink),
		conformance.WithBus(s.bus),
		conformance.WithLogger(log),
	}
	if s.cfg.Visualizer.Enabled {
		dir := filepath.Join(out.RunDir, "petri_nets", cs.Name)
		opts = append(opts, conformance.WithVisualizer(visualizer.NewHTMLRenderer(dir, log)))
	}
	runner := conformance.NewRunner(st, conformance.Options{
		RunID:          out.RunID,
		Case:           cs.Name,
		Workers:        s.cfg.Alignment.Workers,
		MaxExpansions:  s.cfg.Alignment.MaxExpansions,
		ContiguousDays: s.cfg.Alignment.ContiguousDays,
	}, opts...)
	return runner.Run(ctx, src)
}

func writeReport(path string, rep report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteJSON(f, rep); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// RenderNet builds the net of one group of a case and renders it into dir.
// It returns the artifact path.
func (s *Service) RenderNet(ctx context.Context, key model.GroupKey, caseName, dir string) (string, error) {
	cs, ok := s.cfg.Alignment.Case(caseName)
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownCase, caseName)
	}
	records, _, err := dataset.Load(ctx, s.cfg.Dataset, logger.New("dataset"))
	if err != nil {
		return "", err
	}
	grp, err := extract.New(records, s.cfg.Alignment.Filter(cs), s.log).Group(ctx, key)
	if err != nil {
		return "", err
	}
	net, ok := petrinet.Build(key.String(), grp.Planned, petrinet.Options{ContiguousDays: s.cfg.Alignment.ContiguousDays})
	if !ok {
		return "", fmt.Errorf("%s: %w", key, conformance.ErrEmptyGroup)
	}
	return visualizer.NewHTMLRenderer(dir, s.log).Render(ctx, key, net)
}

// Close releases the resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if n := s.bus.Dropped(); n > 0 {
		s.log.Debugf("%d progress events dropped by slow subscribers", n)
	}
	s.mon.Flush(2 * time.Second)
	if c, ok := s.sink.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
