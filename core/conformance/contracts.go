// Package conformance scores every group of a data source against its
// planned schedule and hands the results to a store.
package conformance

import (
	"context"
	"errors"

	"github.com/kilianp07/conformance/core/alignment"
	"github.com/kilianp07/conformance/core/model"
	"github.com/kilianp07/conformance/core/petrinet"
)

// ErrEmptyGroup marks a group without planned operations. Such groups are
// skipped, never scored.
var ErrEmptyGroup = errors.New("group has no planned operations")

// Source yields the groups of a run.
type Source interface {
	Keys(ctx context.Context) ([]model.GroupKey, error)
	Group(ctx context.Context, key model.GroupKey) (model.Group, error)
}

// ResultStore persists group results. Implementations must be safe for
// concurrent use.
type ResultStore interface {
	Put(ctx context.Context, res model.FitnessResult) error
	Close() error
}

// Visualizer renders a net and returns the location of the artifact.
type Visualizer interface {
	Render(ctx context.Context, key model.GroupKey, net *petrinet.Net) (string, error)
}

// Aligner computes an optimal alignment. *alignment.Engine implements it.
type Aligner interface {
	Align(net *petrinet.Net, trace model.Trace) (*alignment.Alignment, error)
}
