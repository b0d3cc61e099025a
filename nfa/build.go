package nfa

import "github.com/coregx/uregex/colormap"

// NewFragment allocates a fresh (lp, rp) state pair, per spec.md §4.2: every
// atom's NFA fragment is bracketed by a fresh pair and the fragment strung
// between them. Empty-arc elimination (merging these away when possible) is
// deferred to optimization.
func (n *NFA) NewFragment() (lp, rp StateID) {
	return n.NewState(), n.NewState()
}

// EmptyArc adds a single EMPTY arc from lp to rp: the fragment for an atom
// with no content (e.g. a {0,0} repeat, or an empty alternation branch).
func (n *NFA) EmptyArc(lp, rp StateID) ArcIdx {
	return n.AddArc(Empty, lp, rp, colormap.NoColor)
}

// PlainArc adds a single-character-consuming arc of color co.
func (n *NFA) PlainArc(lp, rp StateID, co colormap.Color) ArcIdx {
	return n.AddArc(Plain, lp, rp, co)
}

// Concat splices fragment b after fragment a by merging a's right end into
// b's left end via an EMPTY arc, mirroring the reference's `moveins`: the
// next atom's fragment simply inherits the previous atom's rp as its lp.
// fixempties will fold this EMPTY arc away during optimization.
func (n *NFA) Concat(aRp, bLp StateID) {
	n.EmptyArc(aRp, bLp)
}

// Alternate ε-connects parent's init/final to each of the two branch
// endpoint pairs, per spec.md §4.2: "`|` creates a new (left, right) pair
// and ε-connects the parent init and final to each branch's endpoints."
func (n *NFA) Alternate(parentInit, parentFinal, branchLp, branchRp StateID) {
	n.EmptyArc(parentInit, branchLp)
	n.EmptyArc(branchRp, parentFinal)
}

// Rainbow adds an arc of typ for every non-pseudo, non-subcolor color
// (except those in the `except` set) out of state `of` to state `to`. This
// is how `.` is expanded: one PLAIN arc per live color.
func (n *NFA) Rainbow(typ ArcType, of, to StateID, except map[colormap.Color]bool) {
	n.CM.EachRealColor(func(co colormap.Color, d *colormap.ColorDesc) {
		if d.IsSubcolor() {
			return
		}
		if except != nil && except[co] {
			return
		}
		n.AddArc(typ, of, to, co)
	})
}

// ColorComplement adds an arc of typ, to `to`, for every color not already
// the color of a PLAIN out-arc of state `of` — used for `[^...]`.
func (n *NFA) ColorComplement(typ ArcType, of, to StateID) {
	n.ComplementArcs(typ, of, of, to)
}

// ComplementArcs is ColorComplement with the exclusion set taken from a
// separate exemplar state: an arc of typ runs from->to for every color not
// on a PLAIN out-arc of exemplar. Word boundaries use this with the
// WordExemplar state, whose PLAIN arcs enumerate the word-character colors.
func (n *NFA) ComplementArcs(typ ArcType, exemplar, from, to StateID) {
	have := map[colormap.Color]bool{}
	n.OutArcs(exemplar, func(idx ArcIdx) {
		a := n.Arc(idx)
		if a.Type == Plain {
			have[a.Co] = true
		}
	})
	n.Rainbow(typ, from, to, have)
}

// Dot builds the "." fragment between lp and rp: a rainbow over every
// color except newline's, when excludeNewline is set (REG_NLSTOP).
func (n *NFA) Dot(lp, rp StateID, excludeNewline bool, newlineColor colormap.Color) {
	var except map[colormap.Color]bool
	if excludeNewline {
		except = map[colormap.Color]bool{newlineColor: true}
	}
	n.Rainbow(Plain, lp, rp, except)
}

// wordRanges are the ASCII ranges \w covers: [0-9A-Za-z_].
var wordRanges = [][2]rune{
	{'0', '9'}, {'A', 'Z'}, {'a', 'z'}, {'_', '_'},
}

// WordChrs returns the set of colors considered "word characters"
// ([0-9A-Za-z_]), building the word sub-NFA on first use. Building it calls
// Subcolor on every word character, splitting each one away from whatever
// color it currently shares, and strings one PLAIN arc per word color
// across a disconnected two-state pair (spec.md §4.2's lazily built word
// sub-NFA). The left state doubles as the exemplar ComplementArcs uses to
// enumerate "not a word char"; the pair itself is unreachable and swept by
// the next cleanup pass. Later calls re-read the set from the exemplar's
// arcs, which okcolors keeps in step with any later subcolor splits.
func (n *NFA) WordChrs() map[colormap.Color]bool {
	if n.wordColors != nil {
		set := map[colormap.Color]bool{}
		n.OutArcs(n.wordExemplar, func(idx ArcIdx) { set[n.Arc(idx).Co] = true })
		n.wordColors = set
		return set
	}
	set := map[colormap.Color]bool{}
	a, b := n.NewFragment()
	for _, r := range wordRanges {
		for c := r[0]; c <= r[1]; c++ {
			co := n.CM.Subcolor(c)
			if !set[co] {
				set[co] = true
				n.PlainArc(a, b, co)
			}
		}
	}
	n.wordColors = set
	n.wordExemplar = a
	return set
}

// WordExemplar returns the left state of the word sub-NFA built by
// WordChrs, for use as ComplementArcs' exclusion exemplar. WordChrs must
// have been called first.
func (n *NFA) WordExemplar() StateID { return n.wordExemplar }
