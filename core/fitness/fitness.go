// Package fitness turns alignment move counts into a conformance score.
package fitness

import (
	"errors"
	"fmt"

	"github.com/kilianp07/conformance/core/alignment"
	"github.com/kilianp07/conformance/core/model"
)

// ErrDegenerate is returned when both the trace and the plan are empty, so
// there is nothing to compare.
var ErrDegenerate = errors.New("degenerate group: empty trace and empty plan")

// Score computes 1 - (log moves + visible model moves) / (trace length + plan
// length). Silent moves never count.
func Score(c alignment.Counts, traceLen, planLen int) (*model.Fitness, error) {
	worst := Worst(traceLen, planLen)
	if worst == 0 {
		return model.Unscorable(), ErrDegenerate
	}
	cost := c.Cost()
	if cost < 0 || cost > worst {
		return nil, fmt.Errorf("move cost %d outside [0,%d]", cost, worst)
	}
	return model.Scored(1 - float64(cost)/float64(worst)), nil
}

// Worst returns the cost of aligning a trace against a plan with no shared
// moves at all.
func Worst(traceLen, planLen int) int { return traceLen + planLen }
