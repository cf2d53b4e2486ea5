package alignment

import (
	"github.com/kilianp07/conformance/core/model"
	"github.com/kilianp07/conformance/core/petrinet"
)

// heuristic estimates the remaining alignment cost of a search state.
//
// On single-shot nets every transition downstream of a token still has to
// fire exactly once, so for each label the unmatched surplus on either side
// must be paid with log or model moves: h = Σ |trace[l] - pending[l]|. Each
// move changes h by at most its cost, which keeps the estimate consistent.
// Other nets fall back to h = 0.
type heuristic struct {
	net    *petrinet.Net
	exact  bool
	labels int
	// suffix[i][l] counts label l in trace[i:].
	suffix [][]int32
	// tlabel maps transitions to label ids, -1 for silent ones.
	tlabel  []int
	pending map[string][]int32

	seenP []bool
	seenT []bool
	queue []int
}

func newHeuristic(net *petrinet.Net, trace model.Trace) *heuristic {
	h := &heuristic{net: net, exact: net.SingleShot()}
	if !h.exact {
		return h
	}
	ids := map[string]int{}
	id := func(l string) int {
		if v, ok := ids[l]; ok {
			return v
		}
		ids[l] = len(ids)
		return ids[l]
	}
	h.tlabel = make([]int, len(net.Transitions))
	for i, t := range net.Transitions {
		if t.Silent {
			h.tlabel[i] = -1
			continue
		}
		h.tlabel[i] = id(t.Label)
	}
	events := make([]int, len(trace))
	for i, ev := range trace {
		events[i] = id(ev.Activity)
	}
	h.labels = len(ids)
	h.suffix = make([][]int32, len(trace)+1)
	h.suffix[len(trace)] = make([]int32, h.labels)
	for i := len(trace) - 1; i >= 0; i-- {
		row := make([]int32, h.labels)
		copy(row, h.suffix[i+1])
		row[events[i]]++
		h.suffix[i] = row
	}
	h.pending = make(map[string][]int32)
	h.seenP = make([]bool, len(net.Places))
	h.seenT = make([]bool, len(net.Transitions))
	return h
}

func (h *heuristic) estimate(m petrinet.Marking, mkey string, idx int) int {
	if !h.exact {
		return 0
	}
	pend, ok := h.pending[mkey]
	if !ok {
		pend = h.pendingLabels(m)
		h.pending[mkey] = pend
	}
	rest := h.suffix[idx]
	est := 0
	for l := 0; l < h.labels; l++ {
		d := int(rest[l] - pend[l])
		if d < 0 {
			d = -d
		}
		est += d
	}
	return est
}

// pendingLabels counts the visible transitions reachable from marked places.
func (h *heuristic) pendingLabels(m petrinet.Marking) []int32 {
	out := make([]int32, h.labels)
	for i := range h.seenP {
		h.seenP[i] = false
	}
	for i := range h.seenT {
		h.seenT[i] = false
	}
	h.queue = h.queue[:0]
	for p, c := range m {
		if c > 0 {
			h.seenP[p] = true
			h.queue = append(h.queue, p)
		}
	}
	for len(h.queue) > 0 {
		p := h.queue[len(h.queue)-1]
		h.queue = h.queue[:len(h.queue)-1]
		for _, t := range h.net.Consumers(p) {
			if h.seenT[t] {
				continue
			}
			h.seenT[t] = true
			if l := h.tlabel[t]; l >= 0 {
				out[l]++
			}
			for _, q := range h.net.Transitions[t].Out {
				if !h.seenP[q] {
					h.seenP[q] = true
					h.queue = append(h.queue, q)
				}
			}
		}
	}
	return out
}
