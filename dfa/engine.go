package dfa

import (
	"hash/fnv"
	"sort"

	"github.com/coregx/uregex/colormap"
	"github.com/coregx/uregex/internal/conv"
	"github.com/coregx/uregex/nfa"
)

// Options configures one Engine: its cache bound plus the execute-time
// flag bits that change which anchor pseudocolors the ambient context
// supplies (REG_NEWLINE's anchor half, REG_NOTBOL, REG_NOTEOL).
type Options struct {
	// CacheSize bounds the state cache; must be >= 1.
	CacheSize int
	// NLAnch makes ^/$ (compiled with their line flag) match just after/
	// before an embedded newline.
	NLAnch bool
	// NotBOL treats position 0 as not a beginning of string or line, so
	// '^' never fires there (the buffer is a mid-string window).
	NotBOL bool
	// NotEOL treats the end of the buffer as not an end of string or line.
	NotEOL bool
}

// Engine runs one compiled pattern's CNFA as a lazily-built DFA over a rune
// slice. It owns a bounded state cache; a pattern with residual
// Ahead/Behind arcs folds the surrounding context colors into the cache key
// (see DESIGN.md), which is still correct but caches less aggressively, and
// a pattern with LACON arcs bypasses the cache entirely because a
// constraint's verdict depends on the input position, not just the state
// set and arriving color (spec.md §4.4 step 6).
type Engine struct {
	cn    *nfa.CNFA
	cm    *colormap.Colormap
	cache *Cache
	o     Options
}

// New creates an Engine for cn, sharing colormap cm (the same map the
// pattern was compiled against, so color ids line up).
func New(cn *nfa.CNFA, cm *colormap.Colormap, o Options) (*Engine, error) {
	if o.CacheSize <= 0 {
		return nil, ErrInvalidConfig
	}
	return &Engine{cn: cn, cm: cm, cache: NewCache(conv.IntToUint32(o.CacheSize)), o: o}, nil
}

// behindColors returns the small set of colors that satisfy a Behind
// constraint evaluated at the gap just before text[pos].
func (e *Engine) behindColors(text []rune, pos int) []colormap.Color {
	if pos == 0 {
		if e.o.NotBOL {
			return nil
		}
		return []colormap.Color{e.cn.BOS[0], e.cn.BOS[1]}
	}
	prev := text[pos-1]
	cs := []colormap.Color{e.cm.GetColor(prev)}
	if e.o.NLAnch && prev == '\n' {
		cs = append(cs, e.cn.BOS[1])
	}
	return cs
}

// aheadColors mirrors behindColors for an Ahead constraint at the same gap.
func (e *Engine) aheadColors(text []rune, pos int) []colormap.Color {
	if pos >= len(text) {
		if e.o.NotEOL {
			return nil
		}
		return []colormap.Color{e.cn.EOS[0], e.cn.EOS[1]}
	}
	next := text[pos]
	cs := []colormap.Color{e.cm.GetColor(next)}
	if e.o.NLAnch && next == '\n' {
		cs = append(cs, e.cn.EOS[1])
	}
	return cs
}

func colorSetContains(cs []colormap.Color, co colormap.Color) bool {
	for _, c := range cs {
		if c == co {
			return true
		}
	}
	return false
}

// closure expands base through every zero-width arc whose condition the
// current (behind, ahead) context satisfies, including evaluating any
// Lacon arcs against text at pos.
func (e *Engine) closure(base []nfa.StateID, behind, ahead []colormap.Color, text []rune, pos int) []nfa.StateID {
	seen := NewStateSet(e.cn.NStates)
	queue := make([]nfa.StateID, 0, len(base))
	for _, s := range base {
		if !seen.Contains(s) {
			seen.Add(s)
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, arc := range e.cn.ArcsOf(s) {
			var follow bool
			switch arc.Type {
			case nfa.Empty:
				// Only present in a subre fragment's standalone CNFA
				// (CompactFragment runs before fixEmpties); an
				// unconditional zero-width transition.
				follow = true
			case nfa.Ahead:
				follow = colorSetContains(ahead, arc.Co)
			case nfa.Behind:
				follow = colorSetContains(behind, arc.Co)
			case nfa.Lacon:
				idx := int(arc.Co) - e.cn.NColors - 1
				if idx >= 0 && idx < len(e.cn.Lacons) {
					ld := &e.cn.Lacons[idx]
					follow = e.laconSatisfied(ld, text, pos) == ld.Positive
				}
			default:
				follow = false
			}
			if follow && !seen.Contains(arc.To) {
				seen.Add(arc.To)
				queue = append(queue, arc.To)
			}
		}
	}
	return seen.ToSlice()
}

// laconSatisfied reports whether ld's constraint body matches some prefix
// of text starting exactly at pos, via a fresh sub-engine over ld's own
// compacted CNFA (shares the colormap; cache is scoped to this one check).
func (e *Engine) laconSatisfied(ld *nfa.LaconDef, text []rune, pos int) bool {
	sub, err := New(ld.CNFA, e.cm, Options{CacheSize: 32, NLAnch: e.o.NLAnch, NotBOL: e.o.NotBOL, NotEOL: e.o.NotEOL})
	if err != nil {
		return false
	}
	_, matched := sub.Shortest(text, pos)
	return matched
}

func containsState(states []nfa.StateID, target nfa.StateID) bool {
	for _, s := range states {
		if s == target {
			return true
		}
	}
	return false
}

// contextKey folds the raw state set and the ambient behind/ahead colors
// into one cache key: a pattern with residual Ahead/Behind/Lacon arcs needs
// the context to disambiguate otherwise-identical state sets reached under
// different left/right conditions (see DESIGN.md).
func contextKey(raw []nfa.StateID, behind, ahead []colormap.Color) StateKey {
	base := ComputeStateKey(raw)
	h := fnv.New64a()
	buf := make([]byte, 8)
	putU64(buf, uint64(base))
	_, _ = h.Write(buf)
	sorted := append([]colormap.Color{}, behind...)
	sorted = append(sorted, ahead...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, c := range sorted {
		putU64(buf, uint64(uint32(c)))
		_, _ = h.Write(buf)
	}
	return StateKey(h.Sum64())
}

func putU64(buf []byte, v uint64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}

// step closes rawStates under the position's context, looks up (or builds
// and caches) the resulting State, and reports whether it's an accepting
// (Post-reaching) state. Results involving a LACON are never cached: the
// constraint's verdict depends on the input position, not just the state
// set and context colors (spec.md §4.4 step 6).
func (e *Engine) step(rawStates []nfa.StateID, text []rune, pos int) (closed []nfa.StateID, isMatch bool) {
	behind := e.behindColors(text, pos)
	ahead := e.aheadColors(text, pos)

	useCache := !e.cn.HasLacons
	var key StateKey
	if useCache {
		key = contextKey(rawStates, behind, ahead)
		if cached, ok := e.cache.Get(key); ok {
			return cached.NFAStates(), cached.IsMatch()
		}
	}

	closed = e.closure(rawStates, behind, ahead, text, pos)
	isMatch = containsState(closed, e.cn.Post)
	if useCache {
		st := NewState(InvalidState, closed, isMatch)
		e.cache.GetOrInsert(key, st)
	}
	return closed, isMatch
}

// advance gathers the raw (pre-closure) state set reached by consuming
// color co from the closed state set `from`.
func (e *Engine) advance(from []nfa.StateID, co colormap.Color) []nfa.StateID {
	ss := NewStateSet(e.cn.NStates)
	for _, s := range from {
		for _, arc := range e.cn.ArcsOf(s) {
			if arc.Type == nfa.Plain && arc.Co == co {
				ss.Add(arc.To)
			}
		}
	}
	return ss.ToSlice()
}

// Shortest scans text from start and returns the first position at which
// an accepting state is reached (REG_NOSUB-style shortest match), or
// (0, false) if the pattern never matches starting exactly at start.
func (e *Engine) Shortest(text []rune, start int) (end int, matched bool) {
	raw := []nfa.StateID{e.cn.Pre}
	pos := start
	for {
		closed, isMatch := e.step(raw, text, pos)
		if isMatch {
			return pos, true
		}
		if pos >= len(text) {
			return 0, false
		}
		co := e.cm.GetColor(text[pos])
		next := e.advance(closed, co)
		if len(next) == 0 {
			return 0, false
		}
		raw = next
		pos++
	}
}

// MatchesAt reports whether the pattern matches text[lo:hi] exactly —
// consuming exactly that span, no more, no less — used by the dissector to
// test a candidate split point for a concatenation's two halves.
func (e *Engine) MatchesAt(text []rune, lo, hi int) bool {
	raw := []nfa.StateID{e.cn.Pre}
	pos := lo
	for pos < hi {
		closed, _ := e.step(raw, text, pos)
		co := e.cm.GetColor(text[pos])
		next := e.advance(closed, co)
		if len(next) == 0 {
			return false
		}
		raw = next
		pos++
	}
	_, isMatch := e.step(raw, text, hi)
	return isMatch
}

// Longest scans text from start as far as the DFA stays alive, returning
// the rightmost position at which an accepting state was reached (POSIX
// leftmost-longest semantics' "longest" half), or (0, false) if the
// pattern never matches starting exactly at start.
func (e *Engine) Longest(text []rune, start int) (end int, matched bool) {
	raw := []nfa.StateID{e.cn.Pre}
	pos := start
	bestEnd := 0
	found := false
	for {
		closed, isMatch := e.step(raw, text, pos)
		if isMatch {
			bestEnd = pos
			found = true
		}
		if pos >= len(text) {
			break
		}
		co := e.cm.GetColor(text[pos])
		next := e.advance(closed, co)
		if len(next) == 0 {
			break
		}
		raw = next
		pos++
	}
	if !found {
		return 0, false
	}
	return bestEnd, true
}
