// Package petrinet models planned schedules as workflow nets. Places and
// transitions live in index-addressed arenas and arcs are adjacency lists of
// indices, so a net has no internal pointers and compares structurally.
package petrinet

import "fmt"

// Place is a token holder. Its index in Net.Places is its identity.
type Place struct {
	Name string
	// Day is the layer index the place belongs to; the sink uses the last
	// layer plus one.
	Day int
}

// Transition moves tokens from its input places to its output places.
type Transition struct {
	Name  string
	Label string
	// Silent transitions (day barriers) have no activity label and firing
	// them without a matching event costs nothing.
	Silent bool
	Day    int
	In     []int
	Out    []int
}

// Net is a place/transition net with an initial and a final marking.
type Net struct {
	Name        string
	Places      []Place
	Transitions []Transition
	Initial     Marking
	Final       Marking

	consumers [][]int
	producers [][]int
}

// NewNet returns an empty net.
func NewNet(name string) *Net {
	return &Net{Name: name}
}

// AddPlace appends a place and returns its index.
func (n *Net) AddPlace(name string, day int) int {
	n.Places = append(n.Places, Place{Name: name, Day: day})
	n.consumers = append(n.consumers, nil)
	n.producers = append(n.producers, nil)
	return len(n.Places) - 1
}

// AddTransition appends a transition and returns its index.
func (n *Net) AddTransition(name, label string, silent bool, day int) int {
	n.Transitions = append(n.Transitions, Transition{Name: name, Label: label, Silent: silent, Day: day})
	return len(n.Transitions) - 1
}

// AddInputArc connects place p to transition t.
func (n *Net) AddInputArc(p, t int) {
	n.Transitions[t].In = append(n.Transitions[t].In, p)
	n.consumers[p] = append(n.consumers[p], t)
}

// AddOutputArc connects transition t to place p.
func (n *Net) AddOutputArc(t, p int) {
	n.Transitions[t].Out = append(n.Transitions[t].Out, p)
	n.producers[p] = append(n.producers[p], t)
}

// Consumers returns the transitions consuming from place p.
func (n *Net) Consumers(p int) []int { return n.consumers[p] }

// Producers returns the transitions producing into place p.
func (n *Net) Producers(p int) []int { return n.producers[p] }

// ArcCount returns the number of arcs in the net.
func (n *Net) ArcCount() int {
	c := 0
	for _, t := range n.Transitions {
		c += len(t.In) + len(t.Out)
	}
	return c
}

// VisibleCount returns the number of labeled (non-silent) transitions.
func (n *Net) VisibleCount() int {
	c := 0
	for _, t := range n.Transitions {
		if !t.Silent {
			c++
		}
	}
	return c
}

// Barriers returns the silent transitions in layer order.
func (n *Net) Barriers() []int {
	var out []int
	for i, t := range n.Transitions {
		if t.Silent {
			out = append(out, i)
		}
	}
	return out
}

// NewMarking returns an empty marking sized for the net.
func (n *Net) NewMarking() Marking {
	return make(Marking, len(n.Places))
}

// Enabled reports whether transition t can fire in m.
func (n *Net) Enabled(t int, m Marking) bool {
	for _, p := range n.Transitions[t].In {
		if m[p] == 0 {
			return false
		}
	}
	return true
}

// EnabledTransitions appends the transitions enabled in m to dst in index order.
func (n *Net) EnabledTransitions(m Marking, dst []int) []int {
	for t := range n.Transitions {
		if n.Enabled(t, m) {
			dst = append(dst, t)
		}
	}
	return dst
}

// Fire returns the marking reached by firing t in m. m is left untouched.
func (n *Net) Fire(t int, m Marking) (Marking, error) {
	if !n.Enabled(t, m) {
		return nil, fmt.Errorf("transition %s not enabled", n.Transitions[t].Name)
	}
	next := m.Clone()
	for _, p := range n.Transitions[t].In {
		next[p]--
	}
	for _, p := range n.Transitions[t].Out {
		if next[p] == maxTokens {
			return nil, fmt.Errorf("place %s exceeds %d tokens", n.Places[p].Name, maxTokens)
		}
		next[p]++
	}
	return next, nil
}

// ConflictFree reports whether no place is shared by two consuming transitions.
func (n *Net) ConflictFree() bool {
	for _, c := range n.consumers {
		if len(c) > 1 {
			return false
		}
	}
	return true
}

// FinalOnSinks reports whether the final marking only marks places without
// consumers, so a run can only end once every token reached a sink.
func (n *Net) FinalOnSinks() bool {
	for p, c := range n.Final {
		if c > 0 && len(n.consumers[p]) > 0 {
			return false
		}
	}
	return true
}

func (n *Net) String() string {
	return fmt.Sprintf("net %s: %d places, %d transitions, %d arcs", n.Name, len(n.Places), len(n.Transitions), n.ArcCount())
}
