// Package colormap implements the equivalence-class compression that maps
// Unicode code points down to a small dense alphabet of "colors."
//
// A color is an equivalence class of code points that the pattern compiled
// so far cannot distinguish. Colors are allocated and split incrementally as
// the parser discovers new distinctions (a bracket expression naming a
// sub-range, a case-fold pairing, a word-character test). The map itself is
// a multi-level trie over a code point's byte chunks, with a shared "fill"
// block standing in for any subtree that has never been split away from the
// background color. This keeps a pattern like `[a-z]` from materializing any
// storage for the rest of the Unicode range.
package colormap

import "fmt"

// Color identifies an equivalence class of code points. Colors are dense:
// at any point during compilation the in-use colors occupy a contiguous
// prefix of the non-negative integers, plus a handful of "pseudocolors"
// that represent anchors rather than real characters.
type Color int32

const (
	// NoColor is the impossible-color sentinel (COLORLESS in the source
	// material): it never identifies a real code point and is used to
	// terminate arc lists and to signal "no arc of this color exists."
	NoColor Color = -1

	// White is the initial universal color: every code point starts out
	// mapped to it.
	White Color = 0

	// noSub marks a colorDesc with no open subcolor.
	noSub Color = -1
)

// byttab mirrors BYTTAB from the reference: each trie level fans
// out on one byte (256-way) of the code point.
const byttab = 256

// DefaultWidth is the code point chunk count used when none is given to
// New: 3 bytes covers the full 21-bit Unicode scalar range.
const DefaultWidth = 3

// descFlag bits for ColorDesc.Flags.
type descFlag uint8

const (
	// FlagPseudo marks a color as a pseudocolor: an anchor color (BOS,
	// EOS, BOL, EOL) that corresponds to no real character and must never
	// appear in rainbow enumerations or getcolor results for a genuine
	// code point.
	FlagPseudo descFlag = 1 << iota

	// FlagSubcolor marks a color as a live, not-yet-finalized subcolor:
	// one created mid-bracket-expression by Subcolor, excluded from
	// rainbow/colorcomplement until OkColors finalizes it.
	FlagSubcolor
)

// ColorDesc is the per-color descriptor described in spec.md §3. The arc
// chain for a color is owned by each NFA sharing the map (an arc index is
// only meaningful within its own arena), so the descriptor tracks membership
// counts and the open subcolor, and OkColors reaches arcs through the
// ArcRelabeler callbacks instead of holding chain heads here.
type ColorDesc struct {
	NChrs int64 // how many code points currently map to this color
	Sub   Color // open subcolor being accumulated, or noSub
	Flags descFlag
}

// IsPseudo reports whether cd is a pseudocolor (anchor, not a character class).
func (cd *ColorDesc) IsPseudo() bool { return cd.Flags&FlagPseudo != 0 }

// IsSubcolor reports whether cd is a live, not-yet-finalized subcolor.
func (cd *ColorDesc) IsSubcolor() bool { return cd.Flags&FlagSubcolor != 0 }

// hasSub reports whether cd currently has an open subcolor.
func (cd *ColorDesc) hasSub() bool { return cd.Sub != noSub }

// node is one level of the trie. A leaf node holds colors directly; a
// non-leaf node holds pointers to the next level. Both shapes are
// represented by the same struct so a "fill" node (see below) can be shared
// between the pointer and leaf roles as the map is built top-down.
type node struct {
	leaf     bool
	children [byttab]*node
	colors   [byttab]Color
}

// Colormap is a multi-level trie from code point to Color, plus the vector
// of color descriptors. It owns every allocation made while parsing a single
// pattern; once compilation finishes the map and its descriptors are frozen
// into the compiled pattern's read-only state.
type Colormap struct {
	width int // number of trie levels (code point byte-chunks)

	root *node
	fill []*node // fill[level]: shared "background color" subtree for that level

	descs   []ColorDesc
	nextNew Color // next never-yet-allocated color id
}

// New creates an empty Colormap with every code point initially mapped to
// White. width is the number of 8-bit chunks used to index the trie (2 for
// BMP-only engines, DefaultWidth=3 for full Unicode); universeSize is the
// total number of code points the map covers (e.g. 0x110000 for Unicode),
// recorded as White's initial NChrs so the §8 invariant #1/universe sum
// holds from the start.
func New(width int, universeSize int64) *Colormap {
	if width <= 0 {
		width = DefaultWidth
	}
	cm := &Colormap{
		width:   width,
		fill:    make([]*node, width),
		descs:   make([]ColorDesc, 1, 10), // geometric regrowth, starts inline-sized
		nextNew: 1,
	}
	// Deepest (leaf, level width-1) fill block: every entry is White.
	leafFill := &node{leaf: true}
	for i := range leafFill.colors {
		leafFill.colors[i] = White
	}
	cm.fill[width-1] = leafFill
	for lvl := width - 2; lvl >= 0; lvl-- {
		n := &node{}
		for i := range n.children {
			n.children[i] = cm.fill[lvl+1]
		}
		cm.fill[lvl] = n
	}
	cm.root = cm.fill[0]
	cm.descs[White] = ColorDesc{NChrs: universeSize, Sub: noSub}
	return cm
}

// Width reports the number of byte chunks the map indexes on.
func (cm *Colormap) Width() int { return cm.width }

// NumColors reports one past the highest color id ever allocated (maxcolor+1
// in the reference's terms).
func (cm *Colormap) NumColors() int { return int(cm.nextNew) }

// Desc returns the descriptor for co. Panics (ASSERT in the reference) if co
// is out of range; callers never hand back an out-of-range color.
func (cm *Colormap) Desc(co Color) *ColorDesc {
	if co < 0 || int(co) >= len(cm.descs) {
		panic(fmt.Sprintf("colormap: color %d out of range", co))
	}
	return &cm.descs[co]
}

func (cm *Colormap) chunk(c rune, lvl int) int {
	shift := uint(cm.width-1-lvl) * 8
	return int((uint32(c) >> shift) & 0xff)
}

// getcolor returns the current color of code point c. O(width) table lookups.
func (cm *Colormap) GetColor(c rune) Color {
	n := cm.root
	for lvl := 0; lvl < cm.width-1; lvl++ {
		n = n.children[cm.chunk(c, lvl)]
	}
	return n.colors[cm.chunk(c, cm.width-1)]
}

// cloneIfFill returns n, materializing a private copy first if n is one of
// the shared fill blocks for level lvl (so it is safe to mutate).
func (cm *Colormap) cloneIfFill(n *node, lvl int) *node {
	if n != cm.fill[lvl] {
		return n
	}
	cp := *n
	return &cp
}

// SetColor assigns co as the color of code point c, lazily materializing
// the trie path from root to leaf. Returns the color that c previously had
// (useful to callers adjusting NChrs bookkeeping).
func (cm *Colormap) SetColor(c rune, co Color) Color {
	path := make([]*node, cm.width)
	idx := make([]int, cm.width)

	n := cm.root
	for lvl := 0; lvl < cm.width-1; lvl++ {
		n = cm.cloneIfFill(n, lvl)
		path[lvl] = n
		i := cm.chunk(c, lvl)
		idx[lvl] = i
		n = n.children[i]
	}
	leaf := cm.cloneIfFill(n, cm.width-1)
	path[cm.width-1] = leaf
	li := cm.chunk(c, cm.width-1)
	old := leaf.colors[li]
	leaf.colors[li] = co

	// Wire the (possibly freshly cloned) nodes back into their parents,
	// leaf up, so the fill block is only replaced on the path actually
	// touched.
	leaf2 := path[cm.width-1]
	cur := leaf2
	for lvl := cm.width - 2; lvl >= 0; lvl-- {
		parent := path[lvl]
		parent.children[idx[lvl]] = cur
		cur = parent
	}
	cm.root = cur

	return old
}

// NewColor allocates a fresh non-pseudo color id, growing the descriptor
// vector geometrically (doubling) when the inline allocation is exhausted.
func (cm *Colormap) NewColor() Color {
	co := cm.nextNew
	cm.nextNew++
	cm.growDescs(co)
	cm.descs[co] = ColorDesc{NChrs: 0, Sub: noSub}
	return co
}

// Pseudocolor allocates a fresh color flagged PSEUDO: an anchor color with
// no corresponding real character, excluded from rainbow enumerations.
func (cm *Colormap) Pseudocolor() Color {
	co := cm.NewColor()
	cm.descs[co].Flags |= FlagPseudo
	return co
}

func (cm *Colormap) growDescs(need Color) {
	if int(need) < len(cm.descs) {
		return
	}
	newCap := len(cm.descs) * 2
	if newCap <= int(need) {
		newCap = int(need) + 1
	}
	grown := make([]ColorDesc, newCap)
	copy(grown, cm.descs)
	for i := len(cm.descs); i < newCap; i++ {
		grown[i] = ColorDesc{Sub: noSub}
	}
	cm.descs = grown
}

// Subcolor is the key bracket-expression-parsing operation: if c currently
// shares its color with other code points, split c off into a new
// "subcolor" of that parent so later references to the rest of the parent's
// code points are unaffected. If the parent color already has an open
// subcolor (Sub != noSub), that subcolor is reused rather than creating a
// second split — this is what lets `[a-m1-9]` share one subcolor for `1-9`
// even though it's mentioned via two separate range tokens.
func (cm *Colormap) Subcolor(c rune) Color {
	parent := cm.GetColor(c)
	pd := cm.Desc(parent)

	if pd.hasSub() {
		sub := pd.Sub
		if cm.GetColor(c) != sub {
			cm.moveChr(c, parent, sub)
		}
		return sub
	}

	if pd.NChrs <= 1 {
		// c is already alone in its color (or the color is otherwise
		// uninhabited apart from c): no split needed, this color *is*
		// the subcolor.
		pd.Sub = parent
		return parent
	}

	sub := cm.NewColor()
	cm.Desc(parent).Sub = sub
	cm.Desc(sub).Flags |= FlagSubcolor
	cm.moveChr(c, parent, sub)
	return sub
}

func (cm *Colormap) moveChr(c rune, from, to Color) {
	cm.SetColor(c, to)
	cm.Desc(from).NChrs--
	cm.Desc(to).NChrs++
}

// ArcRelabeler lets an NFA finish a subcolor split without the colormap
// package needing to know the shape of an NFA arc. okcolors walks the arc
// chain of a color being finalized through these callbacks; the NFA supplies
// the actual chain traversal and mutation over its own arena.
type ArcRelabeler interface {
	// ChainHead returns the first arc index on the relabeler's chain for
	// co, or -1 if the relabeler has no arcs of that color.
	ChainHead(co Color) int32
	// NextArc returns the chain-next index after arcIdx in the color chain,
	// or -1 at the end of the chain.
	NextArc(arcIdx int32) int32
	// RelabelArc moves arcIdx from its current color onto newColor.
	RelabelArc(arcIdx int32, newColor Color)
	// DuplicateArc creates a parallel arc with the same endpoints as arcIdx
	// but colored newColor.
	DuplicateArc(arcIdx int32, newColor Color)
}

// OkColors finalizes subcolor decisions for every color with an open Sub,
// per spec.md §4.1: a parent color that became empty (NChrs == 0) has its
// whole arc chain relabeled onto the subcolor; a parent that still has
// members gets its arc chain duplicated onto the subcolor (since both colors
// may now be the target of distinct future operations). Every NFA sharing
// the map (the pattern's own plus any lookahead-constraint sub-NFA) passes
// its relabeler so no arc chain is missed. After this pass, every Sub field
// is reset to noSub.
func (cm *Colormap) OkColors(rels ...ArcRelabeler) {
	// White is the commonest parent of an open subcolor; start at 0.
	for co := White; int(co) < len(cm.descs); co++ {
		pd := cm.Desc(co)
		if !pd.hasSub() {
			continue
		}
		sub := pd.Sub
		pd.Sub = noSub
		if sub == co {
			// The color was its own subcolor (it had a single occupant
			// when the bracket mentioned it): nothing to split.
			continue
		}
		if pd.NChrs == 0 {
			for _, rel := range rels {
				arc := rel.ChainHead(co)
				for arc != -1 {
					next := rel.NextArc(arc)
					rel.RelabelArc(arc, sub)
					arc = next
				}
			}
		} else {
			for _, rel := range rels {
				arc := rel.ChainHead(co)
				for arc != -1 {
					rel.DuplicateArc(arc, sub)
					arc = rel.NextArc(arc)
				}
			}
		}
		cm.Desc(sub).Flags &^= FlagSubcolor
	}
}

// EachRealColor calls f for every allocated, non-pseudo color, including
// White (color 0): White is a real equivalence class (the background
// "everything not yet split off" class), not a pseudocolor, and a rainbow
// enumeration that skipped it would silently fail to match any code point
// that hadn't been individually referenced by the pattern. Order is
// ascending by color id.
func (cm *Colormap) EachRealColor(f func(Color, *ColorDesc)) {
	for co := White; int(co) < len(cm.descs); co++ {
		d := &cm.descs[co]
		if d.IsPseudo() {
			continue
		}
		f(co, d)
	}
}

// Universe returns the sum of NChrs across all non-pseudo colors, which
// must equal the size of the code-point universe (spec.md §3 invariant).
func (cm *Colormap) Universe() int64 {
	var total int64
	for co := White; int(co) < len(cm.descs); co++ {
		if !cm.descs[co].IsPseudo() {
			total += cm.descs[co].NChrs
		}
	}
	return total
}
