// Package extract partitions ingested records into the planned and observed
// sides of every group.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kilianp07/conformance/core/logger"
	"github.com/kilianp07/conformance/core/model"
)

// ErrUnknownGroup is returned by Group for keys absent from the records.
var ErrUnknownGroup = errors.New("unknown group")

type bucket struct {
	planned  []model.Record
	observed []model.Record
}

// Extractor serves groups from an in-memory record set. It is read-only after
// construction and safe for concurrent use.
type Extractor struct {
	groups  map[model.GroupKey]*bucket
	keys    []model.GroupKey
	dropped int
	skipped int
}

// New indexes records by group. Invalid records are dropped and counted,
// records rejected by the filter are counted as skipped. The key set is the
// set of groups with at least one record passing the filter, on either side.
func New(records []model.Record, f Filter, log logger.Logger) *Extractor {
	e := &Extractor{groups: make(map[model.GroupKey]*bucket)}
	for i, r := range records {
		if err := r.Validate(); err != nil {
			e.dropped++
			if log != nil {
				log.Debugf("record %d dropped: %v", i, err)
			}
			continue
		}
		if !f.Match(r) {
			e.skipped++
			continue
		}
		b, ok := e.groups[r.Key]
		if !ok {
			b = &bucket{}
			e.groups[r.Key] = b
			e.keys = append(e.keys, r.Key)
		}
		if r.Slice == model.SlicePlanned {
			b.planned = append(b.planned, r)
		} else {
			b.observed = append(b.observed, r)
		}
	}
	sort.Slice(e.keys, func(i, j int) bool { return e.keys[i].Less(e.keys[j]) })
	for _, b := range e.groups {
		sortByDate(b.planned)
		sortByDate(b.observed)
	}
	if log != nil && e.dropped > 0 {
		log.Warnf("%d malformed records dropped", e.dropped)
	}
	return e
}

// Keys returns the group keys ordered by year, week and department.
func (e *Extractor) Keys(context.Context) ([]model.GroupKey, error) {
	out := make([]model.GroupKey, len(e.keys))
	copy(out, e.keys)
	return out, nil
}

// Group returns the planned operations and observed trace of key.
func (e *Extractor) Group(_ context.Context, key model.GroupKey) (model.Group, error) {
	b, ok := e.groups[key]
	if !ok {
		return model.Group{}, fmt.Errorf("%w: %s", ErrUnknownGroup, key)
	}
	g := model.Group{
		Key:      key,
		Planned:  make([]model.PlannedOperation, len(b.planned)),
		Observed: make(model.Trace, len(b.observed)),
	}
	for i, r := range b.planned {
		g.Planned[i] = model.PlannedOperation{Day: model.DayNumber(r.Date), Activity: r.Activity}
	}
	for i, r := range b.observed {
		g.Observed[i] = model.ObservedEvent{Position: i, Activity: r.Activity}
	}
	return g, nil
}

// Dropped returns the number of malformed records.
func (e *Extractor) Dropped() int { return e.dropped }

// Skipped returns the number of records rejected by the filter.
func (e *Extractor) Skipped() int { return e.skipped }

// sortByDate orders records by calendar day. Records of the same day keep
// their dataset order.
func sortByDate(rs []model.Record) {
	sort.SliceStable(rs, func(i, j int) bool {
		return model.DayNumber(rs[i].Date) < model.DayNumber(rs[j].Date)
	})
}
