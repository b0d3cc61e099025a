// Package subre implements the decorated subexpression tree spec.md §3
// describes: a binary-plus-sibling tree recording concatenation,
// alternation, capture, backreference, and match-length preference,
// consumed by the dissector to direct sub-match dissection.
package subre

import "github.com/coregx/uregex/nfa"

// Op tags the three subre node shapes (spec.md §9's "tagged union" note).
type Op byte

const (
	// OpAlt chains alternation branches through Next.
	OpAlt Op = '|'
	// OpConcat means concatenation, with Left and Right as the two halves.
	OpConcat Op = ','
	// OpBackref is a backreference leaf.
	OpBackref Op = 'b'
)

// Prefer records a subexpression's match-length preference.
type Prefer int

const (
	NoneYet Prefer = iota
	Longer
	Shorter
)

// Infinity mirrors nfa.Infinity for backreference repetition bounds.
const Infinity = nfa.Infinity

// Subre is one node of the subexpression tree.
type Subre struct {
	Op Op
	No int // numbering field, used for tree-walk ordering / debugging

	Next        *Subre // sibling chain for alternation branches
	Left, Right *Subre // concatenation children

	Begin, End nfa.StateID // NFA states bracketing this subexpression (NoState if absorbed)
	Prefer     Prefer

	// Subno is 0 if this node captures nothing, positive for a capture
	// group number, negative for a backreference to group -Subno.
	Subno int

	// Min/Max are repetition bounds: for OpBackref nodes the number of
	// times the referenced text must repeat; for other nodes the
	// quantifier applied to the subexpression (1,1 when unquantified),
	// which tells the dissector whether per-iteration substructure can be
	// pinned to a single span.
	Min, Max int

	CNFA *nfa.CNFA // compacted automaton for this subtree, if not absorbed

	Tree *Subre // further structure for nodes the optimizer didn't absorb
}

// NewConcat creates a concatenation node.
func NewConcat(left, right *Subre, begin, end nfa.StateID) *Subre {
	return &Subre{Op: OpConcat, Left: left, Right: right, Begin: begin, End: end, Prefer: NoneYet, Min: 1, Max: 1}
}

// NewLeaf creates a leaf: a stretch of pattern with no captures,
// backreferences, or preference conflicts inside, dissected purely by
// matching its snapshot automaton against a candidate span.
func NewLeaf(begin, end nfa.StateID) *Subre {
	return &Subre{Op: OpConcat, Begin: begin, End: end, Prefer: NoneYet, Min: 1, Max: 1}
}

// NewAlt creates the head of an alternation chain; further branches are
// chained on by setting Next.
func NewAlt(begin, end nfa.StateID) *Subre {
	return &Subre{Op: OpAlt, Begin: begin, End: end, Prefer: NoneYet, Min: 1, Max: 1}
}

// NewBackref creates a backreference leaf for group groupNo, with the
// quantifier-derived repetition bounds [min, max].
func NewBackref(groupNo, min, max int, begin, end nfa.StateID) *Subre {
	return &Subre{Op: OpBackref, Subno: -groupNo, Min: min, Max: max, Begin: begin, End: end, Prefer: NoneYet}
}

// ResolvePrefer implements spec.md §4.2's preference propagation: NoneYet
// propagates upward, the first concrete Longer/Shorter wins, and a branch
// disagreeing with its parent forces Capture (the node survives into the
// tree rather than being absorbed). ResolvePrefer returns the effective
// preference for s and reports whether s must be kept (forced capture).
func ResolvePrefer(parent Prefer, child Prefer) (effective Prefer, forceCapture bool) {
	if child == NoneYet {
		return parent, false
	}
	if parent == NoneYet {
		return child, false
	}
	if parent != child {
		return parent, true
	}
	return parent, false
}

// Walk visits s, then everything reachable through Left, then Right, then
// Next, calling f on each.
func (s *Subre) Walk(f func(*Subre)) {
	if s == nil {
		return
	}
	f(s)
	s.Left.Walk(f)
	s.Right.Walk(f)
	s.Next.Walk(f)
}

// HasCaptures reports whether s or anything under it captures or
// backreferences — i.e. whether the dissector must descend into this
// subtree rather than matching it as one opaque stretch.
func (s *Subre) HasCaptures() bool {
	found := false
	s.Walk(func(n *Subre) {
		if n.Subno != 0 {
			found = true
		}
	})
	return found
}

// Count returns the number of nodes in the tree rooted at s (ntree in
// spec.md §4.5). The dissector keeps no per-node retry memory, so nothing
// is sized by it.
func (s *Subre) Count() int {
	n := 0
	s.Walk(func(*Subre) { n++ })
	return n
}

// Number assigns sequential No values to every node in Walk order. The
// dissector does not read No.
func (s *Subre) Number() {
	next := 0
	s.Walk(func(n *Subre) {
		n.No = next
		next++
	})
}
