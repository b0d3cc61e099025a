package nfa

// DupMax is the compile-time bound on {m,n} quantifier values (spec.md §9,
// DUPMAX). Patterns asking for more than this must be rejected as BADBR by
// the parser before Repeat is ever called.
const DupMax = 255

// Infinity represents an unbounded upper quantifier bound (DUPMAX+1).
const Infinity = DupMax + 1

// repeat buckets, matching the reference's REDUCE/PAIR scheme.
const (
	bZero = 0
	bOne  = 1
	bSome = 2
	bInf  = 3
)

func reduceBound(x int) int {
	switch {
	case x == Infinity:
		return bInf
	case x > 1:
		return bSome
	default:
		return x
	}
}

func pair(x, y int) int { return x*4 + y }

// Repeat rewrites the fragment bracketed by (lp, rp) to match it between m
// and n times, using the canonical bucket-based NFA rewrites from spec.md
// §4.2 / the reference's repeat(): each of {0,1,SOME,INF} x {0,1,SOME,INF}
// has its own construction, recursing on a shrunk bound for the SOME cases
// via sub-NFA duplication.
func (n *NFA) Repeat(lp, rp StateID, m, nBound int) {
	rm := reduceBound(m)
	rn := reduceBound(nBound)

	switch pair(rm, rn) {
	case pair(bZero, bZero): // {0,0}: empty string
		n.DelSub(lp, rp)
		n.EmptyArc(lp, rp)

	case pair(bZero, bOne): // {0,1}: do as x|
		n.EmptyArc(lp, rp)

	case pair(bZero, bSome): // {0,n}: do as x{1,n}|
		n.Repeat(lp, rp, 1, nBound)
		n.EmptyArc(lp, rp)

	case pair(bZero, bInf): // {0,}: loop x around
		s := n.NewState()
		n.MoveOuts(lp, s)
		n.MoveIns(rp, s)
		n.EmptyArc(lp, s)
		n.EmptyArc(s, rp)

	case pair(bOne, bOne): // {1,1}: no action required

	case pair(bOne, bSome): // {1,n}: do as x{0,n-1}x = (x{1,n-1}|)x
		s := n.NewState()
		n.MoveOuts(lp, s)
		n.dupInto(s, rp, lp, s)
		n.Repeat(lp, s, 1, nBound-1)
		n.EmptyArc(lp, s)

	case pair(bOne, bInf): // {1,}: add loopback arc
		s := n.NewState()
		s2 := n.NewState()
		n.MoveOuts(lp, s)
		n.MoveIns(rp, s2)
		n.EmptyArc(lp, s)
		n.EmptyArc(s2, rp)
		n.EmptyArc(s2, s)

	case pair(bSome, bSome): // {m,n}: do as x{m-1,n-1}x
		s := n.NewState()
		n.MoveOuts(lp, s)
		n.dupInto(s, rp, lp, s)
		n.Repeat(lp, s, m-1, nBound-1)

	case pair(bSome, bInf): // {m,}: do as x{m-1,}x
		s := n.NewState()
		n.MoveOuts(lp, s)
		n.dupInto(s, rp, lp, s)
		n.Repeat(lp, s, m-1, nBound)

	default:
		panic("nfa: Repeat: unreachable bucket pair")
	}
}

// dupInto duplicates the fragment bracketed by (start, stop) and wires the
// copy's endpoints to (from, to) via EMPTY arcs, mirroring the reference's
// dupnfa(nfa, start, stop, from, to) without requiring the duplicate to
// share from/to directly (fixEmpties folds these away during optimization).
func (n *NFA) dupInto(start, stop, from, to StateID) {
	cs, ct := n.DupFragment(start, stop)
	n.EmptyArc(from, cs)
	n.EmptyArc(ct, to)
}
