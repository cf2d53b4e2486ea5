package petrinet

import (
	"fmt"
	"sort"

	"github.com/kilianp07/conformance/core/model"
)

const dateLayout = "2006-01-02"

// Options tunes net construction.
type Options struct {
	// ContiguousDays adds a pass-through layer for every calendar day without
	// operations between the first and the last planned day.
	ContiguousDays bool
}

// Build turns the planned operations of a group into a day-layered workflow
// net. It returns false when there is nothing to model.
//
// Each operation gets an input place, a labeled transition and an output
// place. The operations of a day are concurrent; a silent barrier per day
// collects their output places and feeds the input places of the next day.
// The last barrier marks the sink, which is the final marking.
func Build(name string, ops []model.PlannedOperation, opts Options) (*Net, bool) {
	if len(ops) == 0 {
		return nil, false
	}
	byDay := make(map[int][]model.PlannedOperation)
	for _, op := range ops {
		byDay[op.Day] = append(byDay[op.Day], op)
	}
	days := make([]int, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Ints(days)
	if opts.ContiguousDays {
		first, last := days[0], days[len(days)-1]
		days = days[:0]
		for d := first; d <= last; d++ {
			days = append(days, d)
		}
	}

	net := NewNet(name)
	var sources []int
	prevBarrier := -1
	for i, day := range days {
		date := model.DayDate(day).Format(dateLayout)
		barrier := net.AddTransition(fmt.Sprintf("day-%d", i), "", true, i)
		dayOps := byDay[day]
		if len(dayOps) == 0 {
			// A day without operations still advances the layer.
			idle := net.AddPlace(fmt.Sprintf("%s-idle", date), i)
			net.AddOutputArc(prevBarrier, idle)
			net.AddInputArc(idle, barrier)
			prevBarrier = barrier
			continue
		}
		for j, op := range dayOps {
			in := net.AddPlace(fmt.Sprintf("%s-%s-%d-1", date, op.Activity, j), i)
			out := net.AddPlace(fmt.Sprintf("%s-%s-%d-2", date, op.Activity, j), i)
			t := net.AddTransition(fmt.Sprintf("%s-%s-%d", date, op.Activity, j), op.Activity, false, i)
			if prevBarrier < 0 {
				sources = append(sources, in)
			} else {
				net.AddOutputArc(prevBarrier, in)
			}
			net.AddInputArc(in, t)
			net.AddOutputArc(t, out)
			net.AddInputArc(out, barrier)
		}
		prevBarrier = barrier
	}
	sink := net.AddPlace("sink", len(days))
	net.AddOutputArc(prevBarrier, sink)

	net.Initial = net.NewMarking()
	for _, p := range sources {
		net.Initial[p] = 1
	}
	net.Final = net.NewMarking()
	net.Final[sink] = 1
	return net, true
}
