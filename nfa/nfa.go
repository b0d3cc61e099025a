// Package nfa builds and optimizes the nondeterministic automaton that sits
// between the parser and the matching engines: a state/arc arena during
// construction, rewritten in place by the optimization passes in optimize.go,
// and finally flattened into an immutable CNFA by compact.go.
package nfa

import "github.com/coregx/uregex/colormap"

// StateID identifies an NFA state by its index into the arena.
type StateID int32

// NoState is the sentinel for "no state" (an absent endpoint).
const NoState StateID = -1

// ArcIdx identifies an arc by its index into the arena's flat arc slice.
type ArcIdx int32

// NoArc is the sentinel for "end of chain" / "no arc".
const NoArc ArcIdx = -1

// ArcType classifies what an arc consumes or constrains.
type ArcType uint8

const (
	// Plain consumes one code point whose color matches Arc.Co.
	Plain ArcType = iota
	// Ahead is a zero-width constraint: the next code point must have
	// color Arc.Co.
	Ahead
	// Behind is a zero-width constraint: the previous code point must
	// have color Arc.Co.
	Behind
	// Empty is an unrestricted epsilon transition.
	Empty
	// BOL is '^': beginning of string (Arc.Line == false) or beginning
	// of line (Arc.Line == true). Converted to Ahead/Behind on a
	// pseudocolor by the specialcolors pass during optimization.
	BOL
	// EOL is '$', symmetric to BOL.
	EOL
	// Lacon references nfa.Lacons[Arc.Co - 1]: Arc.Co holds the 1-based
	// constraint index, which Compact re-encodes as NumColors+index
	// (polarity and the constraint sub-NFA live on the LaconDef, not the
	// arc itself).
	Lacon
)

func (t ArcType) String() string {
	switch t {
	case Plain:
		return "PLAIN"
	case Ahead:
		return "AHEAD"
	case Behind:
		return "BEHIND"
	case Empty:
		return "EMPTY"
	case BOL:
		return "^"
	case EOL:
		return "$"
	case Lacon:
		return "LACON"
	default:
		return "?"
	}
}

// Arc is a directed labeled edge (from, to, type, color). Arcs live in a
// flat per-NFA arena; each arc simultaneously belongs to up to three
// intrusive doubly linked chains: From's outs chain, To's ins chain, and
// (for colored arcs) this NFA's chain for the arc's color (colorHeads).
type Arc struct {
	From, To StateID
	Type     ArcType
	Co       colormap.Color // color (NoColor for EMPTY/BOL/EOL; 1-based lacon index for LACON)
	Line     bool           // for BOL/EOL: true if line-sensitive (matches around embedded newlines too)

	outNext, outPrev ArcIdx
	inNext, inPrev   ArcIdx
	colNext, colPrev ArcIdx

	free bool
}

// Colored reports whether the arc carries a real color chain membership
// (PLAIN, AHEAD, BEHIND do; EMPTY/BOL/EOL don't, pre-conversion, and a
// LACON arc's Co slot holds a constraint index, not a color, so it never
// joins a color chain).
func (a *Arc) Colored() bool {
	switch a.Type {
	case Plain, Ahead, Behind:
		return true
	default:
		return false
	}
}

// State is an NFA node: a pair of intrusive arc chains (in, out), flags
// marking the four sentinel roles, and allocation-order chain linkage so
// the whole NFA can be walked without a separate state list.
type State struct {
	id      StateID
	isPre   bool // '>' : the unique pre-initial state
	isPost  bool // '@' : the unique post-final state
	isInit  bool // left edge of the capture region (subre.begin-ish)
	isFinal bool // right edge of the capture region

	outsHead, insHead ArcIdx
	nouts, nins       int

	allocNext StateID // traversal-order chain; NoState at the end
	freeHead  ArcIdx  // per-state free list of arcs freed from this state
}

// LaconDef records one registered lookahead constraint: its polarity and
// the CNFA compiled for its body. Positive means "must match here";
// negative means "must not match here." CNFA stays nil until FinishLacons
// runs, so constraint bodies see the pattern's final colors.
type LaconDef struct {
	Positive bool
	Sub      *NFA // private sub-NFA for the constraint body
	CNFA     *CNFA
}

// NFA is the compile-time automaton arena. A fresh NFA always starts with
// four states in allocation order: post (#0), pre (#1), init (#2), final
// (#3), matching spec.md §4.2.
type NFA struct {
	CM *colormap.Colormap

	states []State
	arcs   []Arc
	nstates int

	firstState StateID // head of allocation-order chain (= Post)
	lastState  StateID

	Pre, Post, Init, Final StateID

	Lacons []LaconDef

	// BOS/EOS pseudocolors, filled in by specialcolors during optimization.
	// Index 0 is the string-only anchor, index 1 the line anchor.
	BOS, EOS [2]colormap.Color

	HasLacons bool

	// colorHeads[co] heads this NFA's intrusive chain of arcs colored co.
	// Chains are per-NFA (an arc index only means something in its own
	// arena); OkColors visits every sharing NFA's chains via ChainHead.
	colorHeads []ArcIdx

	specialDone bool // SpecialColors has run

	wordColors   map[colormap.Color]bool // memoized by WordChrs (build.go)
	wordExemplar StateID                 // left state of the word sub-NFA
}

// New creates a fresh NFA sharing the given colormap (a lookahead
// constraint's private sub-NFA shares its parent's colormap so that colors
// stay meaningful across both).
func New(cm *colormap.Colormap) *NFA {
	n := &NFA{CM: cm, firstState: NoState, lastState: NoState}
	n.Post = n.allocState()
	n.Pre = n.allocState()
	n.Init = n.allocState()
	n.Final = n.allocState()
	n.states[n.Post].isPost = true
	n.states[n.Pre].isPre = true
	n.states[n.Init].isInit = true
	n.states[n.Final].isFinal = true
	return n
}

func (n *NFA) allocState() StateID {
	id := StateID(len(n.states))
	n.states = append(n.states, State{id: id, outsHead: NoArc, insHead: NoArc, allocNext: NoState, freeHead: NoArc})
	n.nstates++
	if n.firstState == NoState {
		n.firstState = id
	} else {
		n.states[n.lastState].allocNext = id
	}
	n.lastState = id
	return id
}

// NewState allocates a fresh ordinary state.
func (n *NFA) NewState() StateID { return n.allocState() }

// State returns the State record for id.
func (n *NFA) State(id StateID) *State { return &n.states[id] }

// NStates returns the number of live states (freed states are not
// compacted out until the reachability sweep; this counts arena slots).
func (n *NFA) NStates() int { return len(n.states) }

// MarkInit flags s as a capture-group left boundary, so the dissector can
// recognize it as the start of a numbered subexpression.
func (n *NFA) MarkInit(s StateID) { n.states[s].isInit = true }

// MarkFinal flags s as a capture-group right boundary.
func (n *NFA) MarkFinal(s StateID) { n.states[s].isFinal = true }

// IsInit reports whether s was marked by MarkInit.
func (n *NFA) IsInit(s StateID) bool { return n.states[s].isInit }

// IsFinal reports whether s was marked by MarkFinal.
func (n *NFA) IsFinal(s StateID) bool { return n.states[s].isFinal }

// Walk calls f for every state in allocation order, starting from Post.
func (n *NFA) Walk(f func(StateID)) {
	for s := n.firstState; s != NoState; s = n.states[s].allocNext {
		f(s)
	}
}

func (n *NFA) allocArc() ArcIdx {
	idx := ArcIdx(len(n.arcs))
	n.arcs = append(n.arcs, Arc{outNext: NoArc, outPrev: NoArc, inNext: NoArc, inPrev: NoArc, colNext: NoArc, colPrev: NoArc})
	return idx
}

// Arc returns the Arc record for idx.
func (n *NFA) Arc(idx ArcIdx) *Arc { return &n.arcs[idx] }

// newArcSlot returns a free arc slot, reusing from's per-state free
// list (populated by FreeArc) before growing the arena, per spec.md's
// "freed arcs go onto a per-state free list" note.
func (n *NFA) newArcSlot(from StateID) ArcIdx {
	fs := &n.states[from]
	if fs.freeHead != NoArc {
		idx := fs.freeHead
		fs.freeHead = n.arcs[idx].outNext
		a := &n.arcs[idx]
		*a = Arc{outNext: NoArc, outPrev: NoArc, inNext: NoArc, inPrev: NoArc, colNext: NoArc, colPrev: NoArc}
		return idx
	}
	return n.allocArc()
}

// AddArc creates a new arc from->to of the given type and color, linking it
// onto from's outs chain, to's ins chain, and (if colored) the color chain.
func (n *NFA) AddArc(typ ArcType, from, to StateID, co colormap.Color) ArcIdx {
	idx := n.newArcSlot(from)
	a := &n.arcs[idx]
	a.From, a.To, a.Type, a.Co = from, to, typ, co

	fs := &n.states[from]
	a.outNext = fs.outsHead
	if fs.outsHead != NoArc {
		n.arcs[fs.outsHead].outPrev = idx
	}
	fs.outsHead = idx
	fs.nouts++

	ts := &n.states[to]
	a.inNext = ts.insHead
	if ts.insHead != NoArc {
		n.arcs[ts.insHead].inPrev = idx
	}
	ts.insHead = idx
	ts.nins++

	if a.Colored() {
		head := n.chainHead(co)
		a.colNext = head
		if head != NoArc {
			n.arcs[head].colPrev = idx
		}
		n.setChainHead(co, idx)
	}

	return idx
}

func (n *NFA) chainHead(co colormap.Color) ArcIdx {
	if int(co) >= len(n.colorHeads) {
		return NoArc
	}
	return n.colorHeads[co]
}

func (n *NFA) setChainHead(co colormap.Color, idx ArcIdx) {
	for int(co) >= len(n.colorHeads) {
		n.colorHeads = append(n.colorHeads, NoArc)
	}
	n.colorHeads[co] = idx
}

// unlinkColor removes arc idx from its color chain.
func (n *NFA) unlinkColor(idx ArcIdx) {
	a := &n.arcs[idx]
	if a.colPrev == NoArc {
		n.setChainHead(a.Co, a.colNext)
	} else {
		n.arcs[a.colPrev].colNext = a.colNext
	}
	if a.colNext != NoArc {
		n.arcs[a.colNext].colPrev = a.colPrev
	}
	a.colNext, a.colPrev = NoArc, NoArc
}

// FreeArc unlinks arc idx from all three chains it belongs to and pushes it
// onto its source state's free list.
func (n *NFA) FreeArc(idx ArcIdx) {
	a := &n.arcs[idx]
	if a.free {
		return
	}

	fs := &n.states[a.From]
	n.unlink(&fs.outsHead, idx, a.outPrev, a.outNext, func(i ArcIdx) *ArcIdx { return &n.arcs[i].outNext }, func(i ArcIdx) *ArcIdx { return &n.arcs[i].outPrev })
	fs.nouts--

	ts := &n.states[a.To]
	n.unlink(&ts.insHead, idx, a.inPrev, a.inNext, func(i ArcIdx) *ArcIdx { return &n.arcs[i].inNext }, func(i ArcIdx) *ArcIdx { return &n.arcs[i].inPrev })
	ts.nins--

	if a.Colored() {
		n.unlinkColor(idx)
	}

	a.free = true
	fromState := &n.states[a.From]
	a.outNext = fromState.freeHead
	fromState.freeHead = idx
}

// unlink removes idx from a doubly linked chain given accessors for the
// next/prev fields, fixing up head when idx led the chain.
func (n *NFA) unlink(headSlot *ArcIdx, idx, prev, next ArcIdx, nextOf, prevOf func(ArcIdx) *ArcIdx) {
	if prev != NoArc {
		*nextOf(prev) = next
	} else if headSlot != nil {
		*headSlot = next
	}
	if next != NoArc {
		*prevOf(next) = prev
	}
}

// OutArcs calls f for every arc currently in s's out-chain. f must not free
// arcs out of the chain currently being visited that are ahead of the
// cursor; FreeArc on the current arc is safe.
func (n *NFA) OutArcs(s StateID, f func(ArcIdx)) {
	idx := n.states[s].outsHead
	for idx != NoArc {
		next := n.arcs[idx].outNext
		f(idx)
		idx = next
	}
}

// InArcs calls f for every arc currently in s's in-chain, with the same
// current-arc-safe-to-free guarantee as OutArcs.
func (n *NFA) InArcs(s StateID, f func(ArcIdx)) {
	idx := n.states[s].insHead
	for idx != NoArc {
		next := n.arcs[idx].inNext
		f(idx)
		idx = next
	}
}

// ColorArcs calls f for every arc currently on this NFA's chain for co.
func (n *NFA) ColorArcs(co colormap.Color, f func(ArcIdx)) {
	idx := n.chainHead(co)
	for idx != NoArc {
		next := n.arcs[idx].colNext
		f(idx)
		idx = next
	}
}

// NOuts reports how many out-arcs s currently has.
func (n *NFA) NOuts(s StateID) int { return n.states[s].nouts }

// NIns reports how many in-arcs s currently has.
func (n *NFA) NIns(s StateID) int { return n.states[s].nins }

// NewLacon registers a lookahead constraint's body and returns its 1-based
// index (0 is reserved as "not a LACON arc"). The body is optimized and
// compacted later by FinishLacons, once the whole pattern has been parsed
// and every subcolor finalized, so the constraint automaton sees the same
// colors the main automaton does.
func (n *NFA) NewLacon(positive bool, sub *NFA) int {
	n.Lacons = append(n.Lacons, LaconDef{Positive: positive, Sub: sub})
	n.HasLacons = true
	return len(n.Lacons) // 1-based
}

// FinishLacons optimizes and compacts every registered constraint body,
// sharing the parent's anchor pseudocolors so BOS/EOS semantics line up
// between the pattern and its constraints. The parent's own SpecialColors
// must have run first. Constraint bodies may themselves contain
// constraints, so this recurses.
func (n *NFA) FinishLacons(nlAnch bool) {
	for i := range n.Lacons {
		ld := &n.Lacons[i]
		if ld.CNFA != nil {
			continue
		}
		ld.Sub.BOS, ld.Sub.EOS = n.BOS, n.EOS
		ld.Sub.FinishLacons(nlAnch)
		ld.Sub.Optimize(nlAnch)
		ld.CNFA = ld.Sub.Compact()
	}
}

// ChainHead implements colormap.ArcRelabeler: the first arc on this NFA's
// chain for co, or -1 if none.
func (n *NFA) ChainHead(co colormap.Color) int32 {
	head := n.chainHead(co)
	if head == NoArc {
		return -1
	}
	return int32(head)
}

// NextArc implements colormap.ArcRelabeler: the next arc in arcIdx's color
// chain, or -1 at the end.
func (n *NFA) NextArc(arcIdx int32) int32 {
	next := n.arcs[ArcIdx(arcIdx)].colNext
	if next == NoArc {
		return -1
	}
	return int32(next)
}

// RelabelArc implements colormap.ArcRelabeler: moves arcIdx onto newColor,
// unlinking it from its old color chain and relinking it onto the new one.
func (n *NFA) RelabelArc(arcIdx int32, newColor colormap.Color) {
	idx := ArcIdx(arcIdx)
	n.unlinkColor(idx)
	a := &n.arcs[idx]
	a.Co = newColor
	head := n.chainHead(newColor)
	a.colNext = head
	if head != NoArc {
		n.arcs[head].colPrev = idx
	}
	n.setChainHead(newColor, idx)
}

// DuplicateArc implements colormap.ArcRelabeler: adds a new arc with the
// same endpoints and type as arcIdx but colored newColor.
func (n *NFA) DuplicateArc(arcIdx int32, newColor colormap.Color) {
	a := n.arcs[ArcIdx(arcIdx)]
	n.AddArc(a.Type, a.From, a.To, newColor)
}

// LaconColor encodes a 1-based lacon index as the color value an arc of
// type Lacon should carry, so the DFA can fold LACON transitions into its
// ordinary color-indexed dispatch (spec.md §3, CNFA section).
func LaconColor(numColors int, laconIndex int) colormap.Color {
	return colormap.Color(numColors + laconIndex)
}
