package conformance

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/conformance/core/alignment"
	"github.com/kilianp07/conformance/core/events"
	"github.com/kilianp07/conformance/core/fitness"
	"github.com/kilianp07/conformance/core/logger"
	"github.com/kilianp07/conformance/core/metrics"
	"github.com/kilianp07/conformance/core/model"
	"github.com/kilianp07/conformance/core/monitoring"
	"github.com/kilianp07/conformance/core/petrinet"
	"github.com/kilianp07/conformance/internal/eventbus"
)

// Options configures a Runner.
type Options struct {
	RunID string
	Case  string
	// Workers bounds the number of groups scored at once. Zero uses the
	// number of CPUs.
	Workers        int
	MaxExpansions  int
	ContiguousDays bool
}

// Option customises a Runner.
type Option func(*Runner)

// WithVisualizer enables net rendering.
func WithVisualizer(v Visualizer) Option { return func(r *Runner) { r.vis = v } }

// WithMetrics records every result on sink.
func WithMetrics(sink metrics.MetricsSink) Option { return func(r *Runner) { r.sink = sink } }

// WithBus publishes progress events on bus.
func WithBus(bus *eventbus.TypedBus[events.Progress]) Option {
	return func(r *Runner) { r.bus = bus }
}

// WithLogger sets the runner logger.
func WithLogger(l logger.Logger) Option { return func(r *Runner) { r.log = l } }

// WithAligner replaces the alignment engine.
func WithAligner(a Aligner) Option { return func(r *Runner) { r.aligner = a } }

// Runner orchestrates the per-group pipeline: build, align, score, store.
type Runner struct {
	opts    Options
	store   ResultStore
	aligner Aligner
	vis     Visualizer
	sink    metrics.MetricsSink
	bus     *eventbus.TypedBus[events.Progress]
	log     logger.Logger
	now     func() time.Time
}

// NewRunner returns a runner writing to store.
func NewRunner(store ResultStore, opts Options, o ...Option) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MaxExpansions <= 0 {
		opts.MaxExpansions = alignment.DefaultMaxExpansions
	}
	r := &Runner{
		opts:  opts,
		store: store,
		sink:  metrics.NopSink{},
		log:   nopLogger{},
		now:   time.Now,
	}
	for _, fn := range o {
		fn(r)
	}
	if r.aligner == nil {
		r.aligner = alignment.NewEngine(alignment.Options{MaxExpansions: opts.MaxExpansions})
	}
	return r
}

// Summary is the outcome of one Run.
type Summary struct {
	RunID    string
	Case     string
	Counts   map[model.Status]int
	Results  []model.FitnessResult
	Duration time.Duration
}

// Metrics converts the summary for metrics sinks.
func (s *Summary) Metrics(dropped int, at time.Time) metrics.RunSummary {
	return metrics.RunSummary{
		RunID:    s.RunID,
		Case:     s.Case,
		Counts:   s.Counts,
		Dropped:  dropped,
		Duration: s.Duration,
		Time:     at,
	}
}

// Run scores every group of src. Groups are independent: a failing group is
// recorded with its status and never stops the others. Only source listing
// and store failures abort the run. Cancelling ctx stops scheduling new
// groups; groups already being scored complete and are stored.
func (r *Runner) Run(ctx context.Context, src Source) (*Summary, error) {
	start := r.now()
	keys, err := src.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	sum := &Summary{
		RunID:  r.opts.RunID,
		Case:   r.opts.Case,
		Counts: make(map[model.Status]int, len(model.Statuses)),
	}
	r.publish(events.RunStarted{RunID: r.opts.RunID, Case: r.opts.Case, Groups: len(keys)})
	r.log.Infof("scoring %d groups with %d workers", len(keys), r.opts.Workers)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for _, key := range keys {
		if gctx.Err() != nil {
			break
		}
		key := key
		g.Go(func() error {
			res := r.process(gctx, src, key)
			if err := r.store.Put(context.WithoutCancel(gctx), res); err != nil {
				return fmt.Errorf("store %s: %w", key, err)
			}
			if err := r.sink.RecordGroupResult(res); err != nil {
				r.log.Warnf("metrics for %s: %v", key, err)
			}
			mu.Lock()
			sum.Results = append(sum.Results, res)
			sum.Counts[res.Status]++
			done := len(sum.Results)
			mu.Unlock()
			r.publish(events.GroupDone{
				Case:    r.opts.Case,
				Key:     key,
				Status:  res.Status,
				Done:    done,
				Total:   len(keys),
				Elapsed: r.now().Sub(start),
			})
			return nil
		})
	}
	err = g.Wait()
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("run interrupted after %d of %d groups: %w", len(sum.Results), len(keys), ctx.Err())
	}
	sort.Slice(sum.Results, func(i, j int) bool { return sum.Results[i].Key.Less(sum.Results[j].Key) })
	sum.Duration = r.now().Sub(start)

	if rr, ok := r.sink.(metrics.RunRecorder); ok {
		dropped := 0
		if d, ok := src.(interface{ Dropped() int }); ok {
			dropped = d.Dropped()
		}
		if rerr := rr.RecordRun(sum.Metrics(dropped, r.now())); rerr != nil {
			r.log.Warnf("run metrics: %v", rerr)
		}
	}
	r.publish(events.RunFinished{RunID: sum.RunID, Case: sum.Case, Counts: sum.Counts, Duration: sum.Duration, Err: err})
	return sum, err
}

func (r *Runner) process(ctx context.Context, src Source, key model.GroupKey) model.FitnessResult {
	grp, err := src.Group(ctx, key)
	if err != nil {
		r.log.Errorf("load group %s: %v", key, err)
		return model.FitnessResult{
			Key:    key,
			Case:   r.opts.Case,
			RunID:  r.opts.RunID,
			Status: model.StatusFailed,
			Error:  err.Error(),
		}
	}
	return r.ScoreGroup(ctx, grp)
}

// ScoreGroup runs the pipeline on a single group. It never panics and never
// returns a default fitness for a failed computation.
func (r *Runner) ScoreGroup(ctx context.Context, grp model.Group) (res model.FitnessResult) {
	start := r.now()
	res = model.FitnessResult{
		Key:      grp.Key,
		Case:     r.opts.Case,
		RunID:    r.opts.RunID,
		TraceLen: len(grp.Observed),
		PlanLen:  len(grp.Planned),
	}
	log := r.log.With("group", grp.Key.String())
	defer func() {
		if v := recover(); v != nil {
			err := monitoring.CapturePanic(v, map[string]string{"group": grp.Key.String(), "case": r.opts.Case})
			log.Errorf("recovered: %v", err)
			res.Status = model.StatusFailed
			res.Fitness = nil
			res.Error = err.Error()
		}
		res.DurationMS = r.now().Sub(start).Milliseconds()
	}()

	net, ok := petrinet.Build(grp.Key.String(), grp.Planned, petrinet.Options{ContiguousDays: r.opts.ContiguousDays})
	if !ok {
		log.Debugf("skipped: %v", ErrEmptyGroup)
		res.Status = model.StatusSkippedEmpty
		res.Error = ErrEmptyGroup.Error()
		return res
	}
	if err := net.Validate(); err != nil {
		return failed(res, log, err)
	}
	if r.vis != nil {
		r.render(ctx, log, grp.Key, net)
	}

	al, err := r.aligner.Align(net, grp.Observed)
	switch {
	case errors.Is(err, alignment.ErrTimeout):
		log.Warnf("alignment gave up: %v", err)
		res.Status = model.StatusTimedOut
		var be *alignment.BudgetError
		if errors.As(err, &be) {
			res.Expanded = be.Expanded
		}
		res.Error = err.Error()
		return res
	case err != nil:
		return failed(res, log, err)
	}
	c := al.Counts()
	res.SyncMoves = c.Sync
	res.LogMoves = c.Log
	res.ModelMoves = c.Model
	res.Cost = al.Cost
	res.Expanded = al.Expanded

	f, err := fitness.Score(c, len(grp.Observed), len(grp.Planned))
	switch {
	case errors.Is(err, fitness.ErrDegenerate):
		res.Status = model.StatusUnscorable
		res.Fitness = f
		res.Error = err.Error()
		return res
	case err != nil:
		return failed(res, log, err)
	}
	res.Status = model.StatusScored
	res.Fitness = f
	log.Debugw("scored", map[string]any{"fitness": f.Value, "cost": al.Cost, "expanded": al.Expanded})
	return res
}

// render hands net to the visualizer. Errors and panics are logged and
// never change the outcome of the group.
func (r *Runner) render(ctx context.Context, log logger.Logger, key model.GroupKey, net *petrinet.Net) {
	defer func() {
		if v := recover(); v != nil {
			log.Warnf("render net: recovered: %v", v)
		}
	}()
	artifact, err := r.vis.Render(ctx, key, net)
	if err != nil {
		log.Warnf("render net: %v", err)
		return
	}
	log.Debugf("net rendered to %s", artifact)
}

func failed(res model.FitnessResult, log logger.Logger, err error) model.FitnessResult {
	log.Errorf("failed: %v", err)
	monitoring.CaptureException(err, map[string]string{"group": res.Key.String(), "case": res.Case})
	res.Status = model.StatusFailed
	res.Fitness = nil
	res.Error = err.Error()
	return res
}

func (r *Runner) publish(ev events.Progress) {
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)            {}
func (nopLogger) Debugw(string, map[string]any)    {}
func (nopLogger) Infof(string, ...any)             {}
func (nopLogger) Warnf(string, ...any)             {}
func (nopLogger) Errorf(string, ...any)            {}
func (n nopLogger) With(string, any) logger.Logger { return n }
