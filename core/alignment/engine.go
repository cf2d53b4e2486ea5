// Package alignment computes optimal alignments between an observed trace and
// a workflow net with an A* search over their synchronous product.
package alignment

import (
	"container/heap"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kilianp07/conformance/core/model"
	"github.com/kilianp07/conformance/core/petrinet"
)

// DefaultMaxExpansions bounds the search when Options leaves it unset.
const DefaultMaxExpansions = 500000

var (
	// ErrTimeout is returned when the expansion budget is exhausted.
	ErrTimeout = errors.New("alignment expansion budget exceeded")
	// ErrUnreachable is returned when the final marking cannot be reached.
	ErrUnreachable = errors.New("final marking unreachable")
)

// BudgetError reports an exhausted expansion budget. It matches ErrTimeout.
type BudgetError struct {
	// Expanded is the number of states taken from the open set.
	Expanded int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("%v after %d states", ErrTimeout, e.Expanded)
}

func (e *BudgetError) Unwrap() error { return ErrTimeout }

// Options configures an Engine.
type Options struct {
	// MaxExpansions caps the number of states taken from the open set.
	MaxExpansions int
}

// Engine computes alignments. It holds no per-search state and is safe for
// concurrent use.
type Engine struct {
	maxExpansions int
}

// NewEngine returns an engine using opts.
func NewEngine(opts Options) *Engine {
	limit := opts.MaxExpansions
	if limit <= 0 {
		limit = DefaultMaxExpansions
	}
	return &Engine{maxExpansions: limit}
}

// Align returns a minimum-cost alignment of trace on net. The returned
// alignment consumes the whole trace and drives the net from its initial
// to its final marking.
func (e *Engine) Align(net *petrinet.Net, trace model.Trace) (*Alignment, error) {
	s := &search{
		net:    net,
		trace:  trace,
		h:      newHeuristic(net, trace),
		best:   make(map[string]*node),
		closed: make(map[string]struct{}),
	}
	return s.run(e.maxExpansions)
}

type search struct {
	net      *petrinet.Net
	trace    model.Trace
	h        *heuristic
	open     openSet
	best     map[string]*node
	closed   map[string]struct{}
	seq      int
	enabled  []int
	expanded int
}

func (s *search) run(budget int) (*Alignment, error) {
	finalKey := s.net.Final.Key()
	s.push(nil, s.net.Initial, 0, 0, Move{})
	for s.open.Len() > 0 {
		cur := heap.Pop(&s.open).(*node)
		delete(s.best, cur.key)
		s.closed[cur.key] = struct{}{}
		if cur.idx == len(s.trace) && cur.mkey == finalKey {
			return s.reconstruct(cur), nil
		}
		s.expanded++
		if s.expanded > budget {
			return nil, &BudgetError{Expanded: budget}
		}
		s.expand(cur)
	}
	return nil, ErrUnreachable
}

// expand pushes the successors of cur. The open set pops the most recently
// pushed state among equal estimates, so successors are pushed log, model,
// sync to prefer synchronous moves, then model moves, then log moves.
func (s *search) expand(cur *node) {
	s.enabled = s.net.EnabledTransitions(cur.marking, s.enabled[:0])
	hasEvent := cur.idx < len(s.trace)

	if hasEvent {
		ev := s.trace[cur.idx]
		s.push(cur, cur.marking, cur.idx+1, cur.g+1, Move{Kind: LogOnly, Label: ev.Activity, Transition: -1, Event: ev.Position, Cost: 1})
	}
	for i := len(s.enabled) - 1; i >= 0; i-- {
		t := s.enabled[i]
		tr := s.net.Transitions[t]
		mv := Move{Kind: ModelOnly, Label: tr.Label, Transition: t, Event: -1, Silent: tr.Silent}
		if !tr.Silent {
			mv.Cost = 1
		}
		s.fire(cur, t, cur.idx, mv)
	}
	if hasEvent {
		ev := s.trace[cur.idx]
		for i := len(s.enabled) - 1; i >= 0; i-- {
			t := s.enabled[i]
			tr := s.net.Transitions[t]
			if tr.Silent || tr.Label != ev.Activity {
				continue
			}
			s.fire(cur, t, cur.idx+1, Move{Kind: Synchronous, Label: tr.Label, Transition: t, Event: ev.Position})
		}
	}
}

func (s *search) fire(cur *node, t, idx int, mv Move) {
	next, err := s.net.Fire(t, cur.marking)
	if err != nil {
		return
	}
	s.push(cur, next, idx, cur.g+mv.Cost, mv)
}

func (s *search) push(parent *node, m petrinet.Marking, idx, g int, mv Move) {
	mkey := m.Key()
	key := stateKey(mkey, idx)
	if _, done := s.closed[key]; done {
		return
	}
	if n, ok := s.best[key]; ok {
		if g >= n.g {
			return
		}
		n.g = g
		n.parent = parent
		n.move = mv
		heap.Fix(&s.open, n.pos)
		return
	}
	n := &node{
		marking: m,
		mkey:    mkey,
		key:     key,
		idx:     idx,
		g:       g,
		h:       s.h.estimate(m, mkey, idx),
		seq:     s.seq,
		parent:  parent,
		move:    mv,
	}
	s.seq++
	s.best[key] = n
	heap.Push(&s.open, n)
}

func (s *search) reconstruct(goal *node) *Alignment {
	var moves []Move
	for n := goal; n.parent != nil; n = n.parent {
		moves = append(moves, n.move)
	}
	for i, j := 0, len(moves)-1; i < j; i, j = i+1, j-1 {
		moves[i], moves[j] = moves[j], moves[i]
	}
	return &Alignment{Moves: moves, Cost: goal.g, Expanded: s.expanded}
}

func stateKey(mkey string, idx int) string {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], uint64(idx))
	return mkey + string(b[:n])
}
