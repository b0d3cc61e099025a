package nfa

import (
	"sort"

	"github.com/coregx/uregex/colormap"
)

// CArc is one compacted outgoing transition: color co leads to state To.
// Plain arcs are ordinary byte/rune-consuming transitions; Ahead/Behind/
// Lacon arcs are zero-width and are resolved by the DFA's closure step
// rather than by consuming input (spec.md §4.4 generalizes this from LACON
// alone, see DESIGN.md's pullback/pushforward note for why unresolved
// Ahead/Behind arcs can still be present after optimization).
type CArc struct {
	Co   colormap.Color
	To   StateID
	Type ArcType
}

// CNFA is the immutable, flat representation produced at the end of
// optimization (spec.md §3). Each state's arcs are a color-sorted slice
// into a single flat array, bounded by stateStart offsets; the slice has
// no COLORLESS terminator entry.
type CNFA struct {
	NStates int
	NColors int
	Pre     StateID
	Post    StateID

	BOS, EOS [2]colormap.Color

	// stateStart[i] is the offset into Arcs where state i's arcs begin;
	// stateStart[i+1] (or len(Arcs)) is the exclusive end.
	stateStart []int32
	Arcs       []CArc

	HasLacons bool
	LeftAnch  bool

	Lacons []LaconDef
}

// ArcsOf returns the color-sorted out-arc slice for state s.
func (c *CNFA) ArcsOf(s StateID) []CArc {
	start := c.stateStart[s]
	end := int32(len(c.Arcs))
	if int(s)+1 < len(c.stateStart) {
		end = c.stateStart[s+1]
	}
	return c.Arcs[start:end]
}

// Compact flattens the optimized NFA into an immutable CNFA. States are
// renumbered in allocation-order (so Pre/Post/Init/Final keep meaningful,
// stable small numbers); each state's out-arcs are sorted by (color, to)
// per spec.md §8 invariant #4. The reference's carcsort is an O(n^2)
// insertion sort; this uses sort.Slice instead, since per-state arc lists
// are short (bounded by the live color count) and only the resulting
// order matters.
func (n *NFA) Compact() *CNFA {
	remap := map[StateID]StateID{}
	var order []StateID
	n.Walk(func(s StateID) {
		remap[s] = StateID(len(order))
		order = append(order, s)
	})

	c := &CNFA{
		NStates:   len(order),
		NColors:   n.CM.NumColors(),
		Pre:       remap[n.Pre],
		Post:      remap[n.Post],
		BOS:       n.BOS,
		EOS:       n.EOS,
		HasLacons: n.HasLacons,
		Lacons:    n.Lacons,
	}
	c.stateStart = make([]int32, len(order))

	for _, s := range order {
		start := int32(len(c.Arcs))
		c.stateStart[remap[s]] = start
		var arcs []CArc
		n.OutArcs(s, func(idx ArcIdx) {
			a := n.Arc(idx)
			co := a.Co
			if a.Type == Lacon {
				co = LaconColor(c.NColors, int(a.Co))
			}
			arcs = append(arcs, CArc{Co: co, To: remap[a.To], Type: a.Type})
		})
		sort.Slice(arcs, func(i, j int) bool {
			if arcs[i].Co != arcs[j].Co {
				return arcs[i].Co < arcs[j].Co
			}
			return arcs[i].To < arcs[j].To
		})
		c.Arcs = append(c.Arcs, arcs...)
	}

	c.LeftAnch = n.computeLeftAnch(remap)
	return c
}

// CompactFragment flattens just the sub-NFA bracketed by (lp, rp) — as it
// stands at the moment of the call, before any optimization pass runs on
// the rest of the pattern — into its own small CNFA with lp as Pre and rp
// as Post. This is how a capturing subre node gets the independently
// matchable automaton spec.md's subre.CNFA field describes, letting the
// dissector re-run a group's content against a candidate substring without
// waiting for (or being disturbed by) the whole-pattern optimize pass.
// Unlike Compact, arcs leaving the fragment are dropped rather than
// followed, and EMPTY arcs are left as-is for the DFA layer to treat as
// unconditional zero-width transitions (fixEmpties never runs on a
// fragment snapshot).
func (n *NFA) CompactFragment(lp, rp StateID) *CNFA {
	visited := n.localFragment(lp, rp)
	order := make([]StateID, 0, len(visited))
	remap := map[StateID]StateID{}

	remap[lp] = StateID(len(order))
	order = append(order, lp)
	if rp != lp {
		remap[rp] = StateID(len(order))
		order = append(order, rp)
	}
	for s := range visited {
		if s == lp || s == rp {
			continue
		}
		remap[s] = StateID(len(order))
		order = append(order, s)
	}

	c := &CNFA{
		NStates:   len(order),
		NColors:   n.CM.NumColors(),
		Pre:       remap[lp],
		Post:      remap[rp],
		BOS:       n.BOS,
		EOS:       n.EOS,
		HasLacons: n.HasLacons,
		Lacons:    n.Lacons,
	}
	c.stateStart = make([]int32, len(order))

	for _, s := range order {
		start := int32(len(c.Arcs))
		c.stateStart[remap[s]] = start
		var arcs []CArc
		n.OutArcs(s, func(idx ArcIdx) {
			a := n.Arc(idx)
			if !visited[a.To] {
				return
			}
			co := a.Co
			if a.Type == Lacon {
				co = LaconColor(c.NColors, int(a.Co))
			}
			arcs = append(arcs, CArc{Co: co, To: remap[a.To], Type: a.Type})
		})
		sort.Slice(arcs, func(i, j int) bool {
			if arcs[i].Co != arcs[j].Co {
				return arcs[i].Co < arcs[j].Co
			}
			return arcs[i].To < arcs[j].To
		})
		c.Arcs = append(c.Arcs, arcs...)
	}
	return c
}

// computeLeftAnch reports whether every out-arc of Pre carries only a
// BOS/BOL color, meaning the pattern cannot match except at string start
// (spec.md §4.3(f)).
func (n *NFA) computeLeftAnch(_ map[StateID]StateID) bool {
	anch := true
	count := 0
	n.OutArcs(n.Pre, func(idx ArcIdx) {
		count++
		a := n.Arc(idx)
		if a.Co != n.BOS[0] && a.Co != n.BOS[1] {
			anch = false
		}
	})
	return anch && count > 0
}
