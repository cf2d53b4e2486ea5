package petrinet

import (
	"fmt"
	"strings"
)

const maxTokens = 1<<16 - 1

// Marking is a multiset of tokens, indexed by place.
type Marking []uint16

// Clone returns an independent copy of m.
func (m Marking) Clone() Marking {
	out := make(Marking, len(m))
	copy(out, m)
	return out
}

// Key returns a compact comparable encoding of m, usable as a map key.
func (m Marking) Key() string {
	b := make([]byte, 2*len(m))
	for i, c := range m {
		b[2*i] = byte(c >> 8)
		b[2*i+1] = byte(c)
	}
	return string(b)
}

// Equal reports whether both markings hold the same tokens.
func (m Marking) Equal(o Marking) bool {
	if len(m) != len(o) {
		return false
	}
	for i := range m {
		if m[i] != o[i] {
			return false
		}
	}
	return true
}

// Tokens returns the total number of tokens.
func (m Marking) Tokens() int {
	c := 0
	for _, v := range m {
		c += int(v)
	}
	return c
}

// Format renders the marking using place names, e.g. "[sink:1]".
func (m Marking) Format(n *Net) string {
	var parts []string
	for p, c := range m {
		if c > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", n.Places[p].Name, c))
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
