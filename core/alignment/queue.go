package alignment

import "github.com/kilianp07/conformance/core/petrinet"

// node is a state of the synchronous product: a marking and a trace index.
type node struct {
	marking petrinet.Marking
	mkey    string
	key     string
	idx     int
	g       int
	h       int
	seq     int
	parent  *node
	move    Move
	pos     int
}

func (n *node) f() int { return n.g + n.h }

// openSet is a min-heap on f. Among equal estimates the most recently
// generated state wins, which makes the search dive instead of sweeping
// every state of the same cost.
type openSet []*node

func (s openSet) Len() int { return len(s) }

func (s openSet) Less(i, j int) bool {
	a, b := s[i], s[j]
	if a.f() != b.f() {
		return a.f() < b.f()
	}
	return a.seq > b.seq
}

func (s openSet) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
	s[i].pos = i
	s[j].pos = j
}

func (s *openSet) Push(x any) {
	n := x.(*node)
	n.pos = len(*s)
	*s = append(*s, n)
}

func (s *openSet) Pop() any {
	old := *s
	n := old[len(old)-1]
	old[len(old)-1] = nil
	n.pos = -1
	*s = old[:len(old)-1]
	return n
}
