// Package parse implements the recursive-descent grammar spec.md §4.2
// describes: it consumes lex.Lexer's token stream and builds an *nfa.NFA
// fragment and a *subre.Subre tree in lockstep, one atom at a time, the way
// the reference parser's p_re/p_bre/p_ere family does.
package parse

import (
	"fmt"
	"unicode"

	"github.com/coregx/uregex/colormap"
	"github.com/coregx/uregex/lex"
	"github.com/coregx/uregex/nfa"
	"github.com/coregx/uregex/subre"
)

// Error is a parse-time failure, carrying the same Code space the top-level
// package's CompileError uses (see errors.go).
type Error struct {
	Code string
	Msg  string
	Pos  int
}

func (e *Error) Error() string { return fmt.Sprintf("%s at offset %d: %s", e.Code, e.Pos, e.Msg) }

// Options carries the compile-flag bits the parser cares about, pre-split
// by the caller so parse never needs to import the root package.
type Options struct {
	ICase    bool // REG_ICASE: fold case at color-assignment time
	NLStop   bool // REG_NLSTOP: . and [^...] do not match newline
	NLAnch   bool // REG_NLANCH: ^/$ also match around embedded newlines
	Expanded bool // REG_EXPANDED: whitespace/comments in the pattern are ignored
	Quote    bool // REG_QUOTE: the pattern is a literal string
}

// Result is everything the compiler needs from a successful parse.
type Result struct {
	NFA     *nfa.NFA
	Tree    *subre.Subre
	NGroups int
	Info    uint32 // bits from the top-level package's Info space

	// Prefer is the whole pattern's effective match-length preference;
	// Shorter means the driver should take the first (shortest) overall
	// match rather than the longest.
	Prefer subre.Prefer

	// UsedShorter reports that some subexpression prefers shorter matches,
	// which forces the dissector onto its preference-aware split search.
	UsedShorter bool
}

// Limits bounds parser recursion and repeat counts; the caller (the
// top-level Compile path) supplies these from its Config so parse never
// needs to import the root package.
type Limits struct {
	MaxRepeatBound    int
	MaxRecursionDepth int
}

// Bit values mirrored from the root package's Info space (kept in sync by
// hand, same pattern the reference uses for its flag bits shared between
// compile.c and regex.h).
const (
	infoBackref    = 1 << 0
	infoBounds     = 1 << 1
	infoLocale     = 1 << 2
	infoEmptyMatch = 1 << 3
	infoNonPosix   = 1 << 4
	infoBSAlnum    = 1 << 5
	infoBBS        = 1 << 8
	infoBraces     = 1 << 10
	infoLookahead  = 1 << 11
)

// shared is the compile state common to the main parser and any
// lookahead-constraint sub-parser: group numbering, info bits, the error
// slot, and the list of every NFA sharing the colormap (needed so OkColors
// can reach every arc chain when a subcolor is finalized).
type shared struct {
	ngroups     int
	info        uint32
	usedShorter bool
	nfas        []*nfa.NFA
	err         *Error
}

// parser holds the per-NFA state for one (sub-)pattern.
type parser struct {
	lx     *lex.Lexer
	n      *nfa.NFA
	limits Limits
	opts   Options
	sh     *shared
}

// Parse compiles pattern under dialect d into an NFA and subre tree.
func Parse(pattern string, d lex.Dialect, o Options, limits Limits) (*Result, error) {
	cm := colormap.New(colormap.DefaultWidth, 0x110000)
	n := nfa.New(cm)

	lx := lex.New(pattern, d, o.ICase)
	lx.Expanded = o.Expanded
	lx.Quote = o.Quote

	p := &parser{
		lx:     lx,
		n:      n,
		limits: limits,
		opts:   o,
		sh:     &shared{nfas: []*nfa.NFA{n}},
	}
	p.lx.Next() // prime Token.NextType

	if p.lx.Token.NextType == lex.EOS {
		if lerr := p.lx.Err(); lerr != nil {
			return nil, &Error{Code: lerr.Code, Msg: lerr.Msg, Pos: lerr.Pos}
		}
		return nil, &Error{Code: "EMPTY", Msg: "empty pattern", Pos: 0}
	}

	lp, rp, tree := p.parseAlt(0)
	if p.sh.err != nil {
		return nil, p.sh.err
	}
	if lerr := p.lx.Err(); lerr != nil {
		return nil, &Error{Code: lerr.Code, Msg: lerr.Msg, Pos: lerr.Pos}
	}
	if p.lx.Token.NextType != lex.EOS {
		return nil, &Error{Code: "EPAREN", Msg: "unexpected trailing input", Pos: p.lx.Pos()}
	}

	n.EmptyArc(n.Pre, lp)
	n.EmptyArc(rp, n.Post)
	n.MarkInit(lp)
	n.MarkFinal(rp)
	p.okColors() // close any subcolor still open at end of pattern

	// Convert anchors to pseudocolors and compile the lookahead bodies
	// before taking subtree snapshots, so every snapshot sees final colors
	// and no raw '^'/'$' arcs.
	n.SpecialColors(o.NLAnch)
	n.FinishLacons(o.NLAnch)

	// Snapshot each subexpression's own automaton for the dissector while
	// the construction graph is still intact; whole-pattern optimization
	// merges and drops states next.
	tree.Walk(func(s *subre.Subre) {
		if s.CNFA == nil && s.Begin != nfa.NoState && s.End != nfa.NoState {
			s.CNFA = n.CompactFragment(s.Begin, s.End)
		}
	})

	n.Optimize(o.NLAnch)
	if n.NOuts(n.Pre) == 0 {
		return nil, &Error{Code: "IMPOSS", Msg: "match provably impossible", Pos: 0}
	}
	if n.Analyze() {
		p.sh.info |= infoEmptyMatch
	}

	return &Result{
		NFA:         n,
		Tree:        tree,
		NGroups:     p.sh.ngroups,
		Info:        p.sh.info,
		Prefer:      tree.Prefer,
		UsedShorter: p.sh.usedShorter,
	}, nil
}

func (p *parser) fail(code, msg string) {
	if p.sh.err == nil {
		p.sh.err = &Error{Code: code, Msg: msg, Pos: p.lx.Pos()}
	}
}

func (p *parser) checkDepth(depth int) bool {
	if depth > p.limits.MaxRecursionDepth {
		p.fail("ESPACE", "pattern nesting too deep")
		return false
	}
	return true
}

// okColors finalizes any subcolors opened since the last call, walking the
// arc chains of every NFA sharing the colormap. Called at the end of every
// piece, mirroring the reference's okcolors-per-atom discipline: without
// it, two unrelated atoms would pool their characters into one shared
// subcolor.
func (p *parser) okColors() {
	rels := make([]colormap.ArcRelabeler, len(p.sh.nfas))
	for i, m := range p.sh.nfas {
		rels[i] = m
	}
	p.n.CM.OkColors(rels...)
}

// parseAlt parses a '|'-separated chain of branches, building the subre
// OpAlt chain and wiring every branch's endpoints to a shared (lp, rp) pair
// per spec.md §4.2.
func (p *parser) parseAlt(depth int) (lp, rp nfa.StateID, tree *subre.Subre) {
	if !p.checkDepth(depth) {
		lp, rp = p.n.NewFragment()
		return lp, rp, subre.NewLeaf(lp, rp)
	}

	lp, rp = p.n.NewFragment()
	head := subre.NewAlt(lp, rp)
	cur := head

	branchLp, branchRp, branchTree := p.parseConcat(depth + 1)
	p.n.Alternate(lp, rp, branchLp, branchRp)
	head.Begin, head.End = branchLp, branchRp
	head.Left = branchTree
	head.Prefer = branchTree.Prefer

	pref := branchTree.Prefer
	for p.lx.Token.NextType == lex.PIPE && p.sh.err == nil {
		p.lx.Next()
		nextLp, nextRp, nextTree := p.parseConcat(depth + 1)
		p.n.Alternate(lp, rp, nextLp, nextRp)
		next := subre.NewAlt(nextLp, nextRp)
		next.Left = nextTree
		next.Prefer = nextTree.Prefer
		pref, _ = subre.ResolvePrefer(pref, nextTree.Prefer)
		cur.Next = next
		cur = next
	}

	if head.Next == nil {
		// Single branch: no real alternation, fold the wrapper away so the
		// tree doesn't carry a spurious OpAlt node for `ab`.
		return lp, rp, head.Left
	}
	if !head.HasCaptures() {
		// No captures or backreferences under any branch: the dissector
		// never needs to know which branch matched, so the whole
		// alternation collapses to a leaf over its bracketing pair.
		leaf := subre.NewLeaf(lp, rp)
		leaf.Prefer = pref
		return lp, rp, leaf
	}
	// Every node in the chain, the head included, keeps its own branch's
	// fragment: the dissector probes branches individually and treats the
	// chain as a whole when a parent asks "could this child span [lo,hi)".
	head.Prefer = pref
	return lp, rp, head
}

// parseConcat parses a sequence of pieces, chaining their fragments via
// Concat and their subre nodes via OpConcat, left-associatively.
func (p *parser) parseConcat(depth int) (lp, rp nfa.StateID, tree *subre.Subre) {
	if !p.checkDepth(depth) || p.atConcatEnd() {
		lp, rp = p.n.NewFragment()
		p.n.EmptyArc(lp, rp)
		return lp, rp, subre.NewLeaf(lp, rp)
	}

	lp, rp, tree = p.parsePiece(depth + 1)
	for !p.atConcatEnd() && p.sh.err == nil {
		plp, prp, ptree := p.parsePiece(depth + 1)
		p.n.Concat(rp, plp)
		wrapper := subre.NewConcat(tree, ptree, lp, prp)
		wrapper.Prefer, _ = subre.ResolvePrefer(tree.Prefer, ptree.Prefer)
		tree = wrapper
		rp = prp
	}
	if tree.Op == subre.OpConcat && tree.Subno == 0 && !tree.HasCaptures() &&
		(tree.Left != nil || tree.Right != nil) {
		// Same pullup the reference's optrt does, with its guards: no
		// capture on either side and nothing below that the dissector
		// needs, so the chain collapses to one leaf over (lp, rp).
		leaf := subre.NewLeaf(lp, rp)
		leaf.Prefer = tree.Prefer
		tree = leaf
	}
	return lp, rp, tree
}

func (p *parser) atConcatEnd() bool {
	switch p.lx.Token.NextType {
	case lex.EOS, lex.PIPE, lex.RPAREN:
		return true
	default:
		return false
	}
}

// parsePiece parses one atom plus an optional trailing quantifier, closing
// any subcolor the atom opened before returning.
func (p *parser) parsePiece(depth int) (lp, rp nfa.StateID, tree *subre.Subre) {
	lp, rp, tree = p.parseAtom(depth)
	if p.sh.err != nil {
		p.okColors()
		return
	}

	quantified := false
	greedy := true
	var m, nb int

	switch p.lx.Token.NextType {
	case lex.STAR:
		greedy = p.lx.Token.NextValue == 1
		m, nb = 0, nfa.Infinity
		quantified = true
		p.lx.Next()
	case lex.PLUS:
		greedy = p.lx.Token.NextValue == 1
		m, nb = 1, nfa.Infinity
		quantified = true
		p.lx.Next()
	case lex.QUES:
		greedy = p.lx.Token.NextValue == 1
		m, nb = 0, 1
		quantified = true
		p.lx.Next()
	case lex.LBRACE:
		var ok bool
		m, nb, greedy, ok = p.parseBound()
		if !ok {
			p.okColors()
			return
		}
		p.sh.info |= infoBounds
		quantified = true
	}

	if quantified {
		p.n.Repeat(lp, rp, m, nb)
		switch {
		case m == 0 && nb == 0:
			// {0,0} erases the atom entirely, captures included: the
			// group inside can never participate (spec.md §8 #11).
			tree = subre.NewLeaf(lp, rp)
		case tree.Op == subre.OpBackref:
			tree.Min, tree.Max = m, nb
		default:
			tree.Min, tree.Max = m, nb
			if tree.Subno == 0 && !tree.HasCaptures() {
				// A repeated capture-free subtree dissects as a plain
				// stretch; its per-iteration structure is irrelevant.
				tree = subre.NewLeaf(lp, rp)
			}
		}
		tree.Begin, tree.End = lp, rp
		if greedy {
			tree.Prefer = subre.Longer
		} else {
			tree.Prefer = subre.Shorter
			p.sh.usedShorter = true
			p.sh.info |= infoNonPosix
		}
	}

	p.okColors()
	return
}

// parseBound parses the interior of a bound whose LBRACE the lexer already
// produced, enforcing DUPMAX/MaxRepeatBound (BADBR). greedy reflects the
// ARE non-greedy '?' suffix on the closing brace.
func (p *parser) parseBound() (m, nBound int, greedy, ok bool) {
	p.lx.Next() // consume LBRACE, move into the bound
	greedy = true
	m, ok = p.parseInt()
	if !ok {
		p.fail("BADBR", "invalid repetition bound")
		return 0, 0, true, false
	}
	nBound = m
	if p.lx.Token.NextType == lex.COMMA {
		p.lx.Next()
		if p.lx.Token.NextType == lex.RBRACE {
			nBound = nfa.Infinity
		} else {
			nBound, ok = p.parseInt()
			if !ok {
				p.fail("BADBR", "invalid repetition bound")
				return 0, 0, true, false
			}
		}
	}
	if p.lx.Token.NextType != lex.RBRACE {
		p.fail("BADBR", "missing '}'")
		return 0, 0, true, false
	}
	greedy = p.lx.Token.NextValue == 1
	p.lx.Next()

	if m > p.limits.MaxRepeatBound || (nBound != nfa.Infinity && nBound > p.limits.MaxRepeatBound) {
		p.fail("BADBR", "repetition count exceeds limit")
		return 0, 0, true, false
	}
	if nBound != nfa.Infinity && nBound < m {
		p.fail("BADBR", "max repetition less than min")
		return 0, 0, true, false
	}
	return m, nBound, greedy, true
}

func (p *parser) parseInt() (int, bool) {
	v := 0
	got := false
	for p.lx.Token.NextType == lex.DIGIT {
		v = v*10 + p.lx.Token.NextValue
		if v > nfa.DupMax+1 {
			v = nfa.DupMax + 1 // clamp; range check after the bound closes
		}
		got = true
		p.lx.Next()
	}
	return v, got
}

// parseAtom parses a single atom: a literal, '.', an anchor, a group, a
// bracket expression, a backreference, or a word-boundary/class escape.
// Every atom returns a subre node bracketing its fragment; atoms with no
// internal structure return a leaf the dissector matches as one stretch.
func (p *parser) parseAtom(depth int) (lp, rp nfa.StateID, tree *subre.Subre) {
	tok := p.lx.Token

	switch tok.NextType {
	case lex.PLAIN:
		lp, rp = p.n.NewFragment()
		for _, co := range p.literalColors(rune(tok.NextValue)) {
			p.n.PlainArc(lp, rp, co)
		}
		p.lx.Next()
		return lp, rp, subre.NewLeaf(lp, rp)

	case lex.DOT:
		lp, rp = p.n.NewFragment()
		if p.opts.NLStop {
			nl := p.n.CM.Subcolor('\n')
			p.okColors() // close the newline subcolor before the rainbow is taken
			p.n.Dot(lp, rp, true, nl)
		} else {
			p.n.Dot(lp, rp, false, colormap.NoColor)
		}
		p.lx.Next()
		return lp, rp, subre.NewLeaf(lp, rp)

	case lex.CARET:
		lp, rp = p.n.NewFragment()
		idx := p.n.AddArc(nfa.BOL, lp, rp, colormap.NoColor)
		p.n.Arc(idx).Line = p.opts.NLAnch
		p.lx.Next()
		return lp, rp, subre.NewLeaf(lp, rp)

	case lex.DOLLAR:
		lp, rp = p.n.NewFragment()
		idx := p.n.AddArc(nfa.EOL, lp, rp, colormap.NoColor)
		p.n.Arc(idx).Line = p.opts.NLAnch
		p.lx.Next()
		return lp, rp, subre.NewLeaf(lp, rp)

	case lex.SBEGIN:
		lp, rp = p.n.NewFragment()
		p.n.AddArc(nfa.BOL, lp, rp, colormap.NoColor)
		p.lx.Next()
		return lp, rp, subre.NewLeaf(lp, rp)

	case lex.SEND:
		lp, rp = p.n.NewFragment()
		p.n.AddArc(nfa.EOL, lp, rp, colormap.NoColor)
		p.lx.Next()
		return lp, rp, subre.NewLeaf(lp, rp)

	case lex.WBDRY, lex.NWBDRY:
		p.sh.info |= infoBBS
		p.sh.info |= infoNonPosix
		lp, rp = p.buildWordBoundary(tok.NextType == lex.WBDRY)
		p.lx.Next()
		return lp, rp, subre.NewLeaf(lp, rp)

	case lex.WEDGE_L:
		lp, rp = p.buildWordEdge(true)
		p.lx.Next()
		return lp, rp, subre.NewLeaf(lp, rp)

	case lex.WEDGE_R:
		lp, rp = p.buildWordEdge(false)
		p.lx.Next()
		return lp, rp, subre.NewLeaf(lp, rp)

	case lex.CCLASS:
		lp, rp = p.n.NewFragment()
		p.buildCClass(lp, rp, rune(tok.NextValue))
		p.sh.info |= infoBSAlnum
		p.sh.info |= infoNonPosix
		p.lx.Next()
		return lp, rp, subre.NewLeaf(lp, rp)

	case lex.BACKREF:
		groupNo := tok.NextValue
		if groupNo > p.sh.ngroups {
			p.fail("ESUBREG", "backreference to undefined group")
			lp, rp = p.n.NewFragment()
			return lp, rp, subre.NewLeaf(lp, rp)
		}
		p.sh.info |= infoBackref
		p.sh.info |= infoNonPosix
		lp, rp = p.n.NewFragment()
		// The NFA over-approximates a backreference as "any run of
		// characters"; the dissector verifies the captured text actually
		// equals group groupNo's capture at match time (spec.md §4.5).
		p.n.Rainbow(nfa.Plain, lp, rp, nil)
		p.n.Repeat(lp, rp, 0, nfa.Infinity)
		tree = subre.NewBackref(groupNo, 1, 1, lp, rp)
		p.lx.Next()
		return lp, rp, tree

	case lex.LBRACKET:
		neg := tok.NextValue == 1
		p.lx.Next()
		lp, rp = p.n.NewFragment()
		p.buildBracket(lp, rp, neg)
		return lp, rp, subre.NewLeaf(lp, rp)

	case lex.LPAREN:
		capturing := tok.NextValue == 1
		p.lx.Next()
		var groupNo int
		if capturing {
			p.sh.ngroups++
			groupNo = p.sh.ngroups
		}
		blp, brp, btree := p.parseAlt(depth + 1)
		if p.sh.err != nil {
			return blp, brp, btree
		}
		if p.lx.Token.NextType != lex.RPAREN {
			p.fail("EPAREN", "unbalanced parenthesis")
			return blp, brp, btree
		}
		p.lx.Next()
		if capturing {
			wrapper := subre.NewConcat(nil, btree, blp, brp)
			wrapper.Subno = groupNo
			wrapper.Prefer = btree.Prefer
			if !btree.HasCaptures() {
				// Nothing inside needs dissecting on its own; the
				// wrapper's snapshot locates the group span by itself.
				wrapper.Right = nil
			}
			return blp, brp, wrapper
		}
		return blp, brp, btree

	case lex.LACON:
		positive := tok.NextValue == 1
		p.sh.info |= infoLookahead
		p.sh.info |= infoNonPosix
		p.lx.Next()
		sub := nfa.New(p.n.CM)
		p.sh.nfas = append(p.sh.nfas, sub)
		sp := &parser{lx: p.lx, n: sub, limits: p.limits, opts: p.opts, sh: p.sh}
		blp, brp, _ := sp.parseAlt(depth + 1)
		if p.sh.err != nil {
			lp, rp = p.n.NewFragment()
			return lp, rp, subre.NewLeaf(lp, rp)
		}
		sub.EmptyArc(sub.Pre, blp)
		sub.EmptyArc(brp, sub.Post)
		idx := p.n.NewLacon(positive, sub)
		if p.lx.Token.NextType != lex.RPAREN {
			p.fail("EPAREN", "unbalanced lookahead group")
			lp, rp = p.n.NewFragment()
			return lp, rp, subre.NewLeaf(lp, rp)
		}
		p.lx.Next()
		lp, rp = p.n.NewFragment()
		p.n.AddArc(nfa.Lacon, lp, rp, colormap.Color(idx))
		return lp, rp, subre.NewLeaf(lp, rp)

	case lex.EOS:
		p.fail("BADPAT", "unexpected end of pattern")
		lp, rp = p.n.NewFragment()
		return lp, rp, subre.NewLeaf(lp, rp)

	default:
		p.fail("BADRPT", "quantifier with nothing to repeat")
		lp, rp = p.n.NewFragment()
		return lp, rp, subre.NewLeaf(lp, rp)
	}
}

// literalColors returns the colors a literal code point's arc(s) must
// carry: just its own subcolor, or every case counterpart under REG_ICASE
// (the code point itself included — a titlecase letter differs from both
// its lower and upper forms). Folding happens here, at color-assignment
// time, so a single DFA transition table serves case-insensitive matching
// with no per-comparison work (SPEC_FULL.md §7).
func (p *parser) literalColors(r rune) []colormap.Color {
	if !p.opts.ICase {
		return []colormap.Color{p.n.CM.Subcolor(r)}
	}
	lo, up := foldPair(r)
	var out []colormap.Color
	for _, c := range []rune{r, lo, up} {
		co := p.n.CM.Subcolor(c)
		dup := false
		for _, have := range out {
			if have == co {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, co)
		}
	}
	return out
}

// buildWordBoundary builds the classic \b / \B fragment: either a word
// char behind and a non-word char (or string end) ahead, or the reverse,
// modeled with Behind/Ahead constraints over WordChrs() and its complement
// plus '^'/'$' arcs for the string edges, per spec.md §4.2.
func (p *parser) buildWordBoundary(positive bool) (lp, rp nfa.StateID) {
	lp, rp = p.n.NewFragment()
	word := p.n.WordChrs()
	p.okColors() // close word subcolors before taking their complement
	ex := p.n.WordExemplar()

	wordBehind := p.n.NewState()
	notWordBehind := p.n.NewState()
	for co := range word {
		p.n.AddArc(nfa.Behind, lp, wordBehind, co)
	}
	p.n.ComplementArcs(nfa.Behind, ex, lp, notWordBehind)
	p.n.AddArc(nfa.BOL, lp, notWordBehind, colormap.NoColor)

	if positive {
		for co := range word {
			p.n.AddArc(nfa.Ahead, notWordBehind, rp, co)
		}
		p.n.ComplementArcs(nfa.Ahead, ex, wordBehind, rp)
		p.n.AddArc(nfa.EOL, wordBehind, rp, colormap.NoColor)
	} else {
		for co := range word {
			p.n.AddArc(nfa.Ahead, wordBehind, rp, co)
		}
		p.n.ComplementArcs(nfa.Ahead, ex, notWordBehind, rp)
		p.n.AddArc(nfa.EOL, notWordBehind, rp, colormap.NoColor)
	}
	return lp, rp
}

// buildWordEdge builds \< / \m (left edge: non-word or string start
// behind, word ahead) or \> / \M (right edge: word behind, non-word or
// string end ahead).
func (p *parser) buildWordEdge(left bool) (lp, rp nfa.StateID) {
	lp, rp = p.n.NewFragment()
	word := p.n.WordChrs()
	p.okColors() // close word subcolors before taking their complement
	ex := p.n.WordExemplar()
	mid := p.n.NewState()

	if left {
		p.n.ComplementArcs(nfa.Behind, ex, lp, mid)
		p.n.AddArc(nfa.BOL, lp, mid, colormap.NoColor)
		for co := range word {
			p.n.AddArc(nfa.Ahead, mid, rp, co)
		}
	} else {
		for co := range word {
			p.n.AddArc(nfa.Behind, lp, mid, co)
		}
		p.n.ComplementArcs(nfa.Ahead, ex, mid, rp)
		p.n.AddArc(nfa.EOL, mid, rp, colormap.NoColor)
	}
	return lp, rp
}

// buildCClass expands a \d\D\s\S\w\W escape into a rainbow over the
// matching ranges (or their complement for the uppercase forms).
func (p *parser) buildCClass(lp, rp nfa.StateID, which rune) {
	var ranges [][2]rune
	negate := false
	switch which {
	case 'd':
		ranges = [][2]rune{{'0', '9'}}
	case 'D':
		ranges = [][2]rune{{'0', '9'}}
		negate = true
	case 's':
		ranges = spaceRanges
	case 'S':
		ranges = spaceRanges
		negate = true
	case 'w':
		ranges = wordCharRanges
	case 'W':
		ranges = wordCharRanges
		negate = true
	}
	colors := map[colormap.Color]bool{}
	for _, r := range ranges {
		for c := r[0]; c <= r[1]; c++ {
			colors[p.n.CM.Subcolor(c)] = true
		}
	}
	if !negate {
		for co := range colors {
			p.n.PlainArc(lp, rp, co)
		}
		return
	}
	p.complementArcs(lp, rp, colors)
}

// complementArcs adds a PLAIN arc lp->rp for every real color NOT in the
// excluded set, by staging the excluded colors on a scratch state so
// ColorComplement skips them, then discarding the scratch arcs.
func (p *parser) complementArcs(lp, rp nfa.StateID, excluded map[colormap.Color]bool) {
	// Close open subcolors first: otherwise the rainbow skips them and the
	// later okcolors pass copies the parent's complement arcs onto them.
	p.okColors()
	tmp := p.n.NewState()
	for co := range excluded {
		p.n.AddArc(nfa.Plain, lp, tmp, co)
	}
	p.n.ColorComplement(nfa.Plain, lp, rp)
	p.n.OutArcs(lp, func(idx nfa.ArcIdx) {
		if p.n.Arc(idx).To == tmp {
			p.n.FreeArc(idx)
		}
	})
}

var spaceRanges = [][2]rune{{' ', ' '}, {'\t', '\t'}, {'\n', '\n'}, {'\r', '\r'}, {'\f', '\f'}, {'\v', '\v'}}
var wordCharRanges = [][2]rune{{'0', '9'}, {'A', 'Z'}, {'a', 'z'}, {'_', '_'}}

// posixClasses maps [:name:] to its ASCII range set.
var posixClasses = map[string][][2]rune{
	"alpha":  {{'A', 'Z'}, {'a', 'z'}},
	"digit":  {{'0', '9'}},
	"alnum":  {{'A', 'Z'}, {'a', 'z'}, {'0', '9'}},
	"upper":  {{'A', 'Z'}},
	"lower":  {{'a', 'z'}},
	"space":  spaceRanges,
	"punct":  {{'!', '/'}, {':', '@'}, {'[', '`'}, {'{', '~'}},
	"cntrl":  {{0, 0x1f}, {0x7f, 0x7f}},
	"graph":  {{'!', '~'}},
	"print":  {{' ', '~'}},
	"blank":  {{' ', ' '}, {'\t', '\t'}},
	"xdigit": {{'0', '9'}, {'A', 'F'}, {'a', 'f'}},
}

// buildBracket parses the already-opened bracket expression's contents
// (the lexer is in its bracket sub-grammar) and builds a PLAIN-arc
// fragment between lp and rp, or its color complement when neg is set.
func (p *parser) buildBracket(lp, rp nfa.StateID, neg bool) {
	cv := &colormap.Cvec{}

bracketLoop:
	for {
		switch p.lx.Token.NextType {
		case lex.BEND:
			p.lx.Next()
			break bracketLoop

		case lex.EOS:
			p.fail("EBRACK", "unterminated bracket expression")
			break bracketLoop

		case lex.PLAIN:
			lo := rune(p.lx.Token.NextValue)
			p.lx.Next()
			if p.lx.Token.NextType == lex.RANGE {
				p.lx.Next()
				if p.lx.Token.NextType != lex.PLAIN {
					// A trailing '-' (e.g. "[a-]") is a literal hyphen, not
					// a malformed range: the '-' just consumed and lo are
					// both ordinary members.
					cv.AddChar(lo)
					cv.AddChar('-')
					continue bracketLoop
				}
				hi := rune(p.lx.Token.NextValue)
				p.lx.Next()
				if hi < lo {
					p.fail("ERANGE", "range out of order")
					break bracketLoop
				}
				cv.AddRange(lo, hi)
			} else {
				cv.AddChar(lo)
			}

		case lex.RANGE:
			// A '-' the lexer couldn't attach to a preceding PLAIN (e.g.
			// leading '-' in "[-a]") is a literal hyphen.
			cv.AddChar('-')
			p.lx.Next()

		case lex.CCLASS:
			if v := p.lx.Token.NextValue; v != 0 {
				// \d etc. escape forwarded from the main escape table
				// (a named [:class:] carries its name, not a value).
				p.buildCClassInto(cv, rune(v))
				p.lx.Next()
				continue bracketLoop
			}
			name := p.lx.Name()
			ranges, ok := posixClasses[name]
			if !ok {
				p.fail("ECTYPE", "unknown character class "+name)
				break bracketLoop
			}
			for _, r := range ranges {
				cv.AddRange(r[0], r[1])
			}
			p.lx.Next()

		case lex.COLLEL, lex.ECLASS:
			p.sh.info |= infoLocale
			name := p.lx.Name()
			rs := []rune(name)
			if len(rs) == 1 {
				cv.AddChar(rs[0])
			} else if len(rs) > 1 {
				cv.AddElem(name)
			}
			p.lx.Next()

		default:
			p.fail("EBRACK", "unexpected token in bracket expression")
			break bracketLoop
		}
		if p.sh.err != nil {
			break bracketLoop
		}
	}

	colors := map[colormap.Color]bool{}
	cv.Each(func(r rune) {
		colors[p.n.CM.Subcolor(r)] = true
		if p.opts.ICase {
			lo, up := foldPair(r)
			colors[p.n.CM.Subcolor(lo)] = true
			colors[p.n.CM.Subcolor(up)] = true
		}
	})
	for _, s := range cv.Elems {
		// Multi-code-point collating elements have no single color;
		// approximated by their first code point (locale-specific collation
		// tables are out of scope, see SPEC_FULL.md).
		rs := []rune(s)
		if len(rs) > 0 {
			colors[p.n.CM.Subcolor(rs[0])] = true
		}
	}
	if neg && p.opts.NLStop {
		colors[p.n.CM.Subcolor('\n')] = true
	}

	if !neg {
		for co := range colors {
			p.n.PlainArc(lp, rp, co)
		}
		return
	}
	p.complementArcs(lp, rp, colors)
}

// buildCClassInto accumulates a \d-style escape's ranges into a bracket's
// cvec. The negated forms are not meaningful inside a bracket and fold to
// their positive ranges, matching the reference's lenient handling.
func (p *parser) buildCClassInto(cv *colormap.Cvec, which rune) {
	var ranges [][2]rune
	switch which {
	case 'd', 'D':
		ranges = [][2]rune{{'0', '9'}}
	case 's', 'S':
		ranges = spaceRanges
	case 'w', 'W':
		ranges = wordCharRanges
	}
	for _, r := range ranges {
		cv.AddRange(r[0], r[1])
	}
}

// foldPair returns r's lower- and upper-case counterparts from the Unicode
// case tables, the uniform fold SPEC_FULL.md §7 requires at
// color-assignment time. A caseless code point maps to itself on both
// sides, which literalColors and the bracket builder treat as "no fold".
func foldPair(r rune) (rune, rune) {
	return unicode.ToLower(r), unicode.ToUpper(r)
}
