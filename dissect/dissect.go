// Package dissect implements the recursive capture-boundary dissection
// spec.md §4.5 describes: given the overall match span the DFA already
// found, walk the subre tree to locate each capturing group's span and
// verify every backreference's repeated text, the way the reference's
// dissect() recurses over the subexpression tree using the DFA as an
// oracle for "does this piece match this candidate span."
//
// Simplifications (recorded in DESIGN.md): concatenation split points are
// found by a linear scan ordered by the left child's length preference and
// verified against each half's own snapshot automaton, rather than the
// reference's arc-by-arc retry memory; a quantified capturing group
// reports the full repeated span, and substructure inside it that cannot
// be pinned to a single iteration leaves its nested groups unset.
package dissect

import (
	"unicode"

	"github.com/coregx/uregex/colormap"
	"github.com/coregx/uregex/dfa"
	"github.com/coregx/uregex/nfa"
	"github.com/coregx/uregex/subre"
)

// Options bounds dissection and carries the execute-flag bits the
// per-fragment DFAs need.
type Options struct {
	ICase             bool
	NLAnch            bool
	NotBOL            bool
	NotEOL            bool
	DFACacheSize      int
	MaxRecursionDepth int
}

// Dissector holds the state one dissection pass needs: the shared colormap,
// the text being dissected, the accumulating capture map, and a per-pass
// cache of DFA engines keyed by fragment automaton (each subre node's
// snapshot gets probed many times across split retries).
type Dissector struct {
	cm      *colormap.Colormap
	text    []rune
	o       Options
	caps    map[int][2]int
	engines map[*nfa.CNFA]*dfa.Engine
}

// New creates a Dissector over text, sharing cm with the pattern's compiled
// automaton.
func New(cm *colormap.Colormap, text []rune, o Options) *Dissector {
	if o.DFACacheSize <= 0 {
		o.DFACacheSize = 32
	}
	if o.MaxRecursionDepth <= 0 {
		o.MaxRecursionDepth = 100
	}
	return &Dissector{cm: cm, text: text, o: o, engines: map[*nfa.CNFA]*dfa.Engine{}}
}

// Dissect finds every capturing group's [lo,hi) span within the already-
// known overall match [lo,hi), returning a map from group number to span.
// Group 0 is not included (callers already have the overall span).
func (d *Dissector) Dissect(tree *subre.Subre, lo, hi int) (map[int][2]int, bool) {
	d.caps = map[int][2]int{}
	if d.assign(tree, lo, hi, 0) {
		return d.caps, true
	}
	return nil, false
}

func (d *Dissector) engineFor(cn *nfa.CNFA) *dfa.Engine {
	if e, ok := d.engines[cn]; ok {
		return e
	}
	e, err := dfa.New(cn, d.cm, dfa.Options{
		CacheSize: d.o.DFACacheSize,
		NLAnch:    d.o.NLAnch,
		NotBOL:    d.o.NotBOL,
		NotEOL:    d.o.NotEOL,
	})
	if err != nil {
		return nil
	}
	d.engines[cn] = e
	return e
}

// matches asks a fragment automaton whether it spans text[lo:hi] exactly.
// A node with no snapshot (absorbed by its parent) constrains nothing.
func (d *Dissector) matches(cn *nfa.CNFA, lo, hi int) bool {
	if cn == nil {
		return true
	}
	e := d.engineFor(cn)
	return e != nil && e.MatchesAt(d.text, lo, hi)
}

// matchesNode reports whether node's subtree could span [lo,hi): for an
// alternation chain (whose every node carries only its own branch's
// automaton) any branch will do; for everything else the node's snapshot
// answers directly.
func (d *Dissector) matchesNode(node *subre.Subre, lo, hi int) bool {
	if node == nil {
		return true
	}
	if node.Op == subre.OpAlt {
		for b := node; b != nil; b = b.Next {
			if d.matches(b.CNFA, lo, hi) {
				return true
			}
		}
		return false
	}
	return d.matches(node.CNFA, lo, hi)
}

func (d *Dissector) snapshot() map[int][2]int {
	cp := make(map[int][2]int, len(d.caps))
	for k, v := range d.caps {
		cp[k] = v
	}
	return cp
}

// assign tries to make node account for exactly [lo, hi), recording
// capture spans as it succeeds and restoring d.caps on failure so a caller
// can try another split or branch.
func (d *Dissector) assign(node *subre.Subre, lo, hi int, depth int) bool {
	if node == nil {
		return true
	}
	if depth > d.o.MaxRecursionDepth {
		return false
	}

	switch node.Op {
	case subre.OpBackref:
		return d.assignBackref(node, lo, hi)
	case subre.OpAlt:
		return d.assignAlt(node, lo, hi, depth)
	case subre.OpConcat:
		return d.assignConcat(node, lo, hi, depth)
	default:
		return false
	}
}

// assignAlt tries each branch in pattern order, first checking the
// branch's own automaton against the span so a branch that cannot match
// is skipped without touching its substructure (the reference's
// UNTRIED/TRIED bookkeeping, expressed as a pre-probe).
func (d *Dissector) assignAlt(node *subre.Subre, lo, hi int, depth int) bool {
	for b := node; b != nil; b = b.Next {
		if !d.matches(b.CNFA, lo, hi) {
			continue
		}
		if b.Left == nil {
			return true
		}
		snap := d.snapshot()
		if d.assign(b.Left, lo, hi, depth+1) {
			return true
		}
		d.caps = snap
	}
	return false
}

func (d *Dissector) assignConcat(node *subre.Subre, lo, hi int, depth int) bool {
	if node.Subno > 0 {
		prev, hadPrev := d.caps[node.Subno]
		d.caps[node.Subno] = [2]int{lo, hi}
		if d.assign(node.Right, lo, hi, depth+1) {
			return true
		}
		if node.Max > 1 {
			// A quantified group's substructure applies per iteration, not
			// to the repeated span as a whole; keep the group's own span
			// and leave its nested groups unset.
			return true
		}
		if hadPrev {
			d.caps[node.Subno] = prev
		} else {
			delete(d.caps, node.Subno)
		}
		return false
	}

	if node.Left == nil {
		return d.assign(node.Right, lo, hi, depth+1)
	}
	if node.Right == nil {
		return d.assign(node.Left, lo, hi, depth+1)
	}

	// Pick the split point the way spec.md §4.5 directs: longest-first for
	// a LONGER-preferring left child, shortest-first for SHORTER, backing
	// off one position per retry.
	shorterFirst := node.Left.Prefer == subre.Shorter
	for i := 0; i <= hi-lo; i++ {
		split := hi - i
		if shorterFirst {
			split = lo + i
		}
		if !d.matchesNode(node.Left, lo, split) {
			continue
		}
		if !d.matchesNode(node.Right, split, hi) {
			continue
		}
		snap := d.snapshot()
		if d.assign(node.Left, lo, split, depth+1) && d.assign(node.Right, split, hi, depth+1) {
			return true
		}
		d.caps = snap
	}
	return false
}

func (d *Dissector) assignBackref(node *subre.Subre, lo, hi int) bool {
	groupNo := -node.Subno
	span, ok := d.caps[groupNo]
	if !ok {
		// The referenced group never captured: this alternative fails
		// unless the backref itself may match emptily (spec.md §8 #13).
		return node.Min == 0 && lo == hi
	}
	return d.verifyBackref(span, lo, hi, node.Min, node.Max)
}

// verifyBackref reports whether text[lo:hi] is between min and max literal
// repetitions of the text captured at span, comparing code points (folded
// under REG_ICASE).
func (d *Dissector) verifyBackref(span [2]int, lo, hi, min, max int) bool {
	captured := d.text[span[0]:span[1]]
	clen := len(captured)
	if clen == 0 {
		return lo == hi
	}
	length := hi - lo
	if length%clen != 0 {
		return false
	}
	reps := length / clen
	if reps < min {
		return false
	}
	if max != subre.Infinity && reps > max {
		return false
	}
	for i := 0; i < reps; i++ {
		base := lo + i*clen
		for j := 0; j < clen; j++ {
			if !d.chrEq(d.text[base+j], captured[j]) {
				return false
			}
		}
	}
	return true
}

func (d *Dissector) chrEq(a, b rune) bool {
	if a == b {
		return true
	}
	return d.o.ICase && foldRune(a) == foldRune(b)
}

// foldRune lower-cases a code point with the Unicode case tables, the same
// uniform fold the compiler applies at color-assignment time.
func foldRune(r rune) rune {
	return unicode.ToLower(r)
}
