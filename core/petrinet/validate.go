package petrinet

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ErrInvalidNet is returned by Validate for structurally broken nets.
var ErrInvalidNet = errors.New("invalid net")

// Validate checks the arena indices, the markings and that the flow relation
// is acyclic.
func (n *Net) Validate() error {
	np := len(n.Places)
	if len(n.Initial) != np || len(n.Final) != np {
		return fmt.Errorf("%w: marking size mismatch", ErrInvalidNet)
	}
	if n.Initial.Tokens() == 0 {
		return fmt.Errorf("%w: empty initial marking", ErrInvalidNet)
	}
	if n.Final.Tokens() == 0 {
		return fmt.Errorf("%w: empty final marking", ErrInvalidNet)
	}
	for i, t := range n.Transitions {
		if !t.Silent && t.Label == "" {
			return fmt.Errorf("%w: visible transition %s has no label", ErrInvalidNet, t.Name)
		}
		if err := checkArcs(np, t.In); err != nil {
			return fmt.Errorf("%w: transition %d inputs: %v", ErrInvalidNet, i, err)
		}
		if err := checkArcs(np, t.Out); err != nil {
			return fmt.Errorf("%w: transition %d outputs: %v", ErrInvalidNet, i, err)
		}
	}
	if !n.Acyclic() {
		return fmt.Errorf("%w: flow relation has a cycle", ErrInvalidNet)
	}
	return nil
}

// Acyclic reports whether the place/transition graph has no directed cycle.
func (n *Net) Acyclic() bool {
	g := simple.NewDirectedGraph()
	np := int64(len(n.Places))
	for p := range n.Places {
		g.AddNode(simple.Node(int64(p)))
	}
	for t := range n.Transitions {
		g.AddNode(simple.Node(np + int64(t)))
	}
	for t, tr := range n.Transitions {
		tid := simple.Node(np + int64(t))
		for _, p := range tr.In {
			g.SetEdge(g.NewEdge(simple.Node(int64(p)), tid))
		}
		for _, p := range tr.Out {
			g.SetEdge(g.NewEdge(tid, simple.Node(int64(p))))
		}
	}
	_, err := topo.Sort(g)
	return err == nil
}

// SingleShot reports whether every transition fires at most once in any run
// and every transition downstream of a marked place has to fire before the
// final marking is reached. Nets produced by Build always qualify.
func (n *Net) SingleShot() bool {
	if !n.ConflictFree() || !n.FinalOnSinks() {
		return false
	}
	for p := range n.Places {
		prod := len(n.producers[p])
		if prod > 1 || n.Initial[p] > 1 || (prod == 1 && n.Initial[p] > 0) {
			return false
		}
	}
	return n.Acyclic()
}

func checkArcs(np int, places []int) error {
	seen := make(map[int]bool, len(places))
	for _, p := range places {
		if p < 0 || p >= np {
			return fmt.Errorf("place %d out of range", p)
		}
		if seen[p] {
			return fmt.Errorf("duplicate arc to place %d", p)
		}
		seen[p] = true
	}
	return nil
}
