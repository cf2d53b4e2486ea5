package alignment

import "fmt"

// MoveKind classifies a step of an alignment.
type MoveKind int

const (
	// Synchronous fires a transition and consumes the matching event.
	Synchronous MoveKind = iota
	// ModelOnly fires a transition without a matching event.
	ModelOnly
	// LogOnly consumes an event the model cannot explain.
	LogOnly
)

func (k MoveKind) String() string {
	switch k {
	case Synchronous:
		return "sync"
	case ModelOnly:
		return "model"
	case LogOnly:
		return "log"
	default:
		return fmt.Sprintf("MoveKind(%d)", int(k))
	}
}

// Move is one step of an alignment.
type Move struct {
	Kind  MoveKind
	Label string
	// Transition is the fired transition index, -1 for LogOnly moves.
	Transition int
	// Event is the consumed trace position, -1 for ModelOnly moves.
	Event  int
	Silent bool
	Cost   int
}

func (m Move) String() string {
	switch m.Kind {
	case LogOnly:
		return fmt.Sprintf("(%s,>>)", m.Label)
	case ModelOnly:
		if m.Silent {
			return "(>>,τ)"
		}
		return fmt.Sprintf("(>>,%s)", m.Label)
	default:
		return fmt.Sprintf("(%s,%s)", m.Label, m.Label)
	}
}

// Counts tallies the moves of an alignment. Silent moves are counted apart
// and never contribute to Model.
type Counts struct {
	Sync   int
	Log    int
	Model  int
	Silent int
}

// Cost returns the number of non-synchronous, non-silent moves.
func (c Counts) Cost() int { return c.Log + c.Model }

// Alignment is a cost-minimal replay of a trace on a net.
type Alignment struct {
	Moves    []Move
	Cost     int
	Expanded int
}

// Counts tallies the moves by kind.
func (a *Alignment) Counts() Counts {
	var c Counts
	for _, m := range a.Moves {
		switch {
		case m.Kind == Synchronous:
			c.Sync++
		case m.Kind == LogOnly:
			c.Log++
		case m.Silent:
			c.Silent++
		default:
			c.Model++
		}
	}
	return c
}

// LogProjection returns the consumed event positions in order.
func (a *Alignment) LogProjection() []int {
	var out []int
	for _, m := range a.Moves {
		if m.Kind != ModelOnly {
			out = append(out, m.Event)
		}
	}
	return out
}

// ModelProjection returns the fired transitions in order.
func (a *Alignment) ModelProjection() []int {
	var out []int
	for _, m := range a.Moves {
		if m.Kind != LogOnly {
			out = append(out, m.Transition)
		}
	}
	return out
}
