package nfa

import (
	"github.com/coregx/uregex/internal/conv"
	"github.com/coregx/uregex/internal/sparse"
)

// Optimize runs the optimization pipeline described in spec.md §4.3, in
// order: initial reachability cleanup, fixed-point empty-arc elimination,
// anchor-to-pseudocolor conversion (if SpecialColors hasn't run already),
// constraint pullback/pushforward, and a final reachability sweep. It does
// not compact to a CNFA; call Compact separately once optimization is done
// (the subre tree may want to compact several distinct subtrees of the same
// NFA independently).
func (n *NFA) Optimize(nlAnch bool) {
	n.cleanupUnreachable()
	n.fixEmpties()
	n.SpecialColors(nlAnch)
	n.pullback()
	n.pushforward()
	n.cleanupUnreachable()
}

// reachableSet returns the set of states reachable from start by following
// out-arcs (used for markreachable), or by following in-arcs (used for
// markcanreach, when walkIns is true).
func (n *NFA) reachableSet(start StateID, walkIns bool) *sparse.SparseSet {
	seen := sparse.NewSparseSet(conv.IntToUint32(len(n.states)))
	seen.Insert(uint32(start))
	stack := []StateID{start}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit := func(idx ArcIdx) {
			a := n.Arc(idx)
			var next StateID
			if walkIns {
				next = a.From
			} else {
				next = a.To
			}
			if !seen.Contains(uint32(next)) {
				seen.Insert(uint32(next))
				stack = append(stack, next)
			}
		}
		if walkIns {
			n.InArcs(s, visit)
		} else {
			n.OutArcs(s, visit)
		}
	}
	return seen
}

// cleanupUnreachable drops every state that is not both reachable from Pre
// and able to reach Post, freeing its arcs. Per spec.md §4.3(a)/(d): this
// runs once before empty-arc elimination and once after constraint
// propagation.
func (n *NFA) cleanupUnreachable() {
	fromPre := n.reachableSet(n.Pre, false)
	toPost := n.reachableSet(n.Post, true)

	n.Walk(func(s StateID) {
		if s == n.Pre || s == n.Post {
			return
		}
		if fromPre.Contains(uint32(s)) && toPost.Contains(uint32(s)) {
			return
		}
		n.OutArcs(s, func(idx ArcIdx) { n.FreeArc(idx) })
		n.InArcs(s, func(idx ArcIdx) { n.FreeArc(idx) })
	})
}

// fixEmpties repeatedly finds an EMPTY arc and merges its endpoints,
// per spec.md §4.3(b), until the only EMPTY arcs left run directly between
// the protected pre/post sentinels (self-loops are simply dropped).
func (n *NFA) fixEmpties() {
	progress := true
	for progress {
		progress = false
		n.Walk(func(s StateID) {
			n.OutArcs(s, func(idx ArcIdx) {
				a := n.Arc(idx)
				if a.free || a.Type != Empty {
					return
				}
				if n.mergeEmpty(idx) {
					progress = true
				}
			})
		})
	}
}

// mergeEmpty merges the endpoints of one EMPTY arc, choosing whichever side
// has fewer arcs to copy, per spec.md §4.3(b). Returns false if the arc
// could not be merged this round (its endpoints are the protected pre/post
// sentinels) other than simply dropping a self-loop.
func (n *NFA) mergeEmpty(idx ArcIdx) bool {
	a := n.Arc(idx)
	from, to := a.From, a.To

	if from == to {
		n.FreeArc(idx)
		return true
	}

	// pre and post are never deleted; if merging would require deleting
	// one of them, copy arcs onto the sentinel instead of the other way.
	// An EMPTY arc with a sentinel at both ends (the empty-match path)
	// stays as-is; the DFA treats it as an unconditional zero-width step.
	fromProtected := from == n.Pre || from == n.Post
	toProtected := to == n.Pre || to == n.Post
	if fromProtected && toProtected {
		return false
	}

	mergeIntoTo := n.NOuts(from)-1 <= n.NIns(to) // fewer arcs to copy by keeping `to`
	if fromProtected {
		mergeIntoTo = false
	}
	if toProtected {
		mergeIntoTo = true
	}

	if mergeIntoTo {
		// `to` absorbs from's ins (if from.nouts becomes 0) else from's
		// ins are copied onto to directly and from might survive as a
		// dead end pruned by the next reachability sweep.
		n.FreeArc(idx)
		n.InArcs(from, func(inIdx ArcIdx) {
			ia := n.Arc(inIdx)
			n.AddArc(ia.Type, ia.From, to, ia.Co)
		})
		if from != n.Pre && from != n.Post && n.NOuts(from) == 0 {
			n.InArcs(from, func(inIdx ArcIdx) { n.FreeArc(inIdx) })
		}
	} else {
		n.FreeArc(idx)
		n.OutArcs(to, func(outIdx ArcIdx) {
			oa := n.Arc(outIdx)
			n.AddArc(oa.Type, from, oa.To, oa.Co)
		})
		if to != n.Pre && to != n.Post && n.NIns(to) == 0 {
			n.OutArcs(to, func(outIdx ArcIdx) { n.FreeArc(outIdx) })
		}
	}
	return true
}

// SpecialColors converts every '^'/'$' arc into a BEHIND/AHEAD arc on the
// BOS/BOL or EOS/EOL pseudocolors, allocating those pseudocolors on first
// use. It runs once per NFA (idempotent); the parser calls it before taking
// subexpression automaton snapshots so no raw BOL/EOL arcs survive into a
// CNFA, and Optimize calls it as a backstop.
func (n *NFA) SpecialColors(nlAnch bool) {
	if n.specialDone {
		return
	}
	n.specialDone = true

	if n.BOS[0] == 0 {
		n.BOS[0] = n.CM.Pseudocolor() // string-only beginning
		n.BOS[1] = n.CM.Pseudocolor() // beginning of line
		n.EOS[0] = n.CM.Pseudocolor()
		n.EOS[1] = n.CM.Pseudocolor()
	}

	n.Walk(func(s StateID) {
		n.OutArcs(s, func(idx ArcIdx) {
			a := n.Arc(idx)
			switch a.Type {
			case BOL:
				co := n.BOS[0]
				if a.Line && nlAnch {
					co = n.BOS[1]
				}
				n.FreeArc(idx)
				n.AddArc(Behind, a.From, a.To, co)
			case EOL:
				co := n.EOS[0]
				if a.Line && nlAnch {
					co = n.EOS[1]
				}
				n.FreeArc(idx)
				n.AddArc(Ahead, a.From, a.To, co)
			}
		})
	})
}

// combineResult classifies how a constraint interacts with a neighboring
// arc during pullback/pushforward, per spec.md §4.3(c).
type combineResult int

const (
	incompatible combineResult = iota // the neighbor can never satisfy the constraint
	satisfied                         // the neighbor already implies the constraint
	compatible                        // undecidable at compile time; leave for the DFA
)

// combinePull decides how a BEHIND constraint interacts with an arc
// arriving at its source state. Both arcs talk about the same code point
// (the one just consumed), so real colors compare directly; anything
// involving a pseudocolor, an epsilon, or a LACON stays compatible —
// per spec.md §9's redesign note, a LACON is never resolved statically,
// and a pseudocolor constraint may hold alongside a real-colored arc
// (BOL after a newline), so neither is safe to prove or refute here.
func (n *NFA) combinePull(c, a *Arc) combineResult {
	if n.CM.Desc(c.Co).IsPseudo() {
		return compatible
	}
	switch a.Type {
	case Plain, Behind:
		if a.Co == c.Co {
			return satisfied
		}
		if n.CM.Desc(a.Co).IsPseudo() {
			return compatible
		}
		return incompatible
	default:
		// Ahead constrains the code point on the other side of the gap;
		// Empty/Lacon/anchor arcs say nothing usable.
		return compatible
	}
}

// combinePush mirrors combinePull for an AHEAD constraint against an arc
// leaving its destination state: both talk about the next code point.
func (n *NFA) combinePush(c, a *Arc) combineResult {
	if n.CM.Desc(c.Co).IsPseudo() {
		return compatible
	}
	switch a.Type {
	case Plain, Ahead:
		if a.Co == c.Co {
			return satisfied
		}
		if n.CM.Desc(a.Co).IsPseudo() {
			return compatible
		}
		return incompatible
	default:
		return compatible
	}
}

// pullback pulls BEHIND constraints leftward through their source states,
// per spec.md §4.3(c), running to a fixed point. A constraint is only
// pulled when it is its source's sole out-arc (a dedicated constraint
// state); richer sharing is left in place for the DFA's closure step to
// evaluate at match time, which is always correct, just less pre-resolved.
func (n *NFA) pullback() {
	progress := true
	for progress {
		progress = false
		n.Walk(func(s StateID) {
			n.OutArcs(s, func(cidx ArcIdx) {
				c := n.Arc(cidx)
				if c.free || c.Type != Behind {
					return
				}
				if n.pullOne(cidx) {
					progress = true
				}
			})
		})
	}
}

// pushforward mirrors pullback for AHEAD constraints.
func (n *NFA) pushforward() {
	progress := true
	for progress {
		progress = false
		n.Walk(func(s StateID) {
			n.OutArcs(s, func(cidx ArcIdx) {
				c := n.Arc(cidx)
				if c.free || c.Type != Ahead {
					return
				}
				if n.pushOne(cidx) {
					progress = true
				}
			})
		})
	}
}

// pullOne applies one BEHIND constraint arc against every in-arc of its
// source state: incompatible in-arcs are deleted (no path through them can
// ever satisfy the constraint), satisfied ones are rewired straight past
// the constraint.
func (n *NFA) pullOne(cidx ArcIdx) bool {
	cv := *n.Arc(cidx) // value copy: AddArc below may regrow the arena
	src, dst := cv.From, cv.To
	if src == n.Pre || n.NOuts(src) != 1 {
		return false
	}
	changed := false

	n.InArcs(src, func(aidx ArcIdx) {
		if aidx == cidx {
			return
		}
		a := n.Arc(aidx)
		if a.From == src {
			// Self-loop: both an in- and an out-arc of src; freeing it
			// here would race the caller's out-chain cursor.
			return
		}
		switch n.combinePull(&cv, a) {
		case incompatible:
			n.FreeArc(aidx)
			changed = true
		case satisfied:
			n.AddArc(a.Type, a.From, dst, a.Co)
			n.FreeArc(aidx)
			changed = true
		case compatible:
			// Left for the DFA's closure to test against the actual
			// previous code point.
		}
	})
	if n.NIns(src) == 0 {
		n.FreeArc(cidx)
		changed = true
	}
	return changed
}

// pushOne mirrors pullOne for an AHEAD constraint, working on its
// destination's out-arcs.
func (n *NFA) pushOne(cidx ArcIdx) bool {
	cv := *n.Arc(cidx) // value copy: AddArc below may regrow the arena
	src, dst := cv.From, cv.To
	if dst == n.Post || n.NIns(dst) != 1 {
		return false
	}
	changed := false

	n.OutArcs(dst, func(aidx ArcIdx) {
		if aidx == cidx {
			return
		}
		a := n.Arc(aidx)
		if a.To == dst {
			return
		}
		switch n.combinePush(&cv, a) {
		case incompatible:
			n.FreeArc(aidx)
			changed = true
		case satisfied:
			n.AddArc(a.Type, src, a.To, a.Co)
			n.FreeArc(aidx)
			changed = true
		case compatible:
		}
	})
	if n.NOuts(dst) == 0 {
		n.FreeArc(cidx)
		changed = true
	}
	return changed
}

// HasEmptyMatch reports REG_UEMPTYMATCH: after empty-arc elimination there
// is a direct Pre->Post arc, meaning the pattern can match the empty string
// unconditionally.
func (n *NFA) HasEmptyMatch() bool {
	found := false
	n.OutArcs(n.Pre, func(idx ArcIdx) {
		if n.Arc(idx).To == n.Post {
			found = true
		}
	})
	return found
}

// Analyze runs post-optimization analysis, returning the UEMPTYMATCH bit.
func (n *NFA) Analyze() bool {
	return n.HasEmptyMatch()
}
