// Package uregex implements a POSIX-style regular expression engine: a
// recursive-descent parser (parse, lex) building an NFA (nfa, colormap),
// compiled to a lazily-constructed DFA (dfa) for overall match scanning,
// with capture groups and backreferences resolved by a second pass over the
// subexpression tree (dissect) once the overall span is known — the same
// two-phase compile-then-execute shape the teacher pack's engines use,
// generalized from byte-indexed transitions to color-indexed ones and from
// LACON-only lazy constraints to Ahead/Behind constraints for ordinary
// anchors and word boundaries.
package uregex

import (
	"github.com/coregx/uregex/colormap"
	"github.com/coregx/uregex/dfa"
	"github.com/coregx/uregex/dissect"
	"github.com/coregx/uregex/lex"
	"github.com/coregx/uregex/nfa"
	"github.com/coregx/uregex/parse"
	"github.com/coregx/uregex/subre"
)

// Flags mirrors the classic REG_* compile-time flag bits spec.md §6
// describes.
type Flags uint32

const (
	ICase    Flags = 1 << iota // REG_ICASE: case-insensitive match
	NoSub                      // REG_NOSUB: only report whether/where, not submatches
	Extended                   // REG_EXTENDED: use ERE grammar instead of BRE
	Advanced                   // REG_ADVANCED: ARE grammar (non-POSIX; implies Extended)
	AdvF                       // REG_ADVF: ARE grammar without implying Extended
	Quote                      // REG_QUOTE: the pattern is a literal string
	Expanded                   // REG_EXPANDED: whitespace/comments in the pattern are ignored
	NLStop                     // REG_NLSTOP: . and [^...] do not match newline
	NLAnch                     // REG_NLANCH: ^/$ match around embedded newlines
)

// Newline is REG_NEWLINE: sugar for NLStop|NLAnch, the two independently
// settable halves of newline sensitivity.
const Newline = NLStop | NLAnch

// ExecFlags mirrors the REG_* execute-time flag bits.
type ExecFlags uint32

const (
	// NotBOL marks the input as a mid-string window: position 0 is not a
	// beginning of string or line, so '^' never matches there.
	NotBOL ExecFlags = 1 << iota
	// NotEOL marks the end of the input as not an end of string or line.
	NotEOL
	// Small shrinks this call's DFA caches to Config.DFACacheSizeSmall —
	// the REG_SMALL testing knob, exercising cache eviction without huge
	// inputs (spec.md §4.4).
	Small
)

// Regex is a compiled pattern, ready for repeated Match/Find calls. A
// Regex is immutable after Compile and safe for concurrent use; each
// execution allocates its own DFA cache and dissection state.
type Regex struct {
	pattern string
	flags   Flags
	cfg     Config

	cnfa *nfa.CNFA
	cm   *colormap.Colormap
	tree *subre.Subre

	nGroups   int
	info      uint32
	nlAnch    bool
	prefShort bool // whole pattern prefers the shortest overall match
}

// Compile parses and compiles pattern under DefaultConfig, returning a
// *CompileError on failure.
func Compile(pattern string, flags Flags) (*Regex, error) {
	return CompileWithConfig(pattern, flags, DefaultConfig())
}

// MustCompile is like Compile but panics on error, for package-level
// variable initialization.
func MustCompile(pattern string, flags Flags) *Regex {
	re, err := Compile(pattern, flags)
	if err != nil {
		panic(err)
	}
	return re
}

// CompileWithConfig is Compile with an explicit resource-limit Config.
func CompileWithConfig(pattern string, flags Flags, cfg Config) (*Regex, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if flags&Quote != 0 && flags&(Extended|Advanced|AdvF) != 0 {
		return nil, &CompileError{Code: BadOpt, Pattern: pattern, Msg: "REG_QUOTE excludes the grammar flags"}
	}

	dialect := lex.BRE
	switch {
	case flags&(Advanced|AdvF) != 0:
		dialect = lex.ARE
	case flags&Extended != 0:
		dialect = lex.ERE
	}

	opts := parse.Options{
		ICase:    flags&ICase != 0,
		NLStop:   flags&NLStop != 0,
		NLAnch:   flags&NLAnch != 0,
		Expanded: flags&Expanded != 0,
		Quote:    flags&Quote != 0,
	}
	limits := parse.Limits{MaxRepeatBound: cfg.MaxRepeatBound, MaxRecursionDepth: cfg.MaxRecursionDepth}
	res, err := parse.Parse(pattern, dialect, opts, limits)
	if err != nil {
		pe := err.(*parse.Error)
		return nil, &CompileError{Code: codeFromString(pe.Code), Pattern: pattern, Pos: pe.Pos, Msg: pe.Msg}
	}

	res.Tree.Number()

	return &Regex{
		pattern:   pattern,
		flags:     flags,
		cfg:       cfg,
		cnfa:      res.NFA.Compact(),
		cm:        res.NFA.CM,
		tree:      res.Tree,
		nGroups:   res.NGroups,
		info:      res.Info,
		nlAnch:    flags&NLAnch != 0,
		prefShort: res.Prefer == subre.Shorter,
	}, nil
}

// codeFromString maps parse.Error's string codes back to the root Code enum.
func codeFromString(s string) Code {
	switch s {
	case "BADPAT":
		return BadPat
	case "EPAREN":
		return EParen
	case "EBRACE":
		return EBrace
	case "EBRACK":
		return EBrack
	case "BADBR":
		return BadBr
	case "BADRPT":
		return BadRpt
	case "ERANGE":
		return ERange
	case "ECOLLATE":
		return ECollate
	case "ECTYPE":
		return ECtype
	case "EESCAPE":
		return EEscape
	case "ESUBREG":
		return ESubreg
	case "EMPTY":
		return EEmpty
	case "BADOPT":
		return BadOpt
	case "IMPOSS":
		return Impossible
	case "MIXED":
		return Mixed
	case "INVARG":
		return InvArg
	case "ESPACE":
		return ESpace
	default:
		return Assert
	}
}

// NumSubexp reports the number of capturing groups in the pattern (not
// counting the whole-match group 0), mirroring regexp.Regexp.NumSubexp.
func (re *Regex) NumSubexp() int { return re.nGroups }

// Info reports the Info bits observed during compilation (spec.md §7).
func (re *Regex) Info() Info { return Info(re.info) }

// String returns the original pattern text.
func (re *Regex) String() string { return re.pattern }

// MatchString reports whether the pattern matches anywhere in s.
func (re *Regex) MatchString(s string) bool {
	_, _, ok := re.search([]rune(s), 0)
	return ok
}

// FindStringIndex returns the leftmost overall match's [start, end) rune
// offsets (longest at that start, or shortest when the pattern's effective
// preference is non-greedy), or nil if there is no match.
func (re *Regex) FindStringIndex(s string) []int {
	span, _, ok := re.search([]rune(s), 0)
	if !ok {
		return nil
	}
	return []int{span[0], span[1]}
}

// FindStringSubmatchIndex returns 2*(NumSubexp()+1) rune offsets: the
// overall match at indices 0,1, then each capturing group's [start,end) in
// group-number order, with -1,-1 for a group that didn't participate, or
// nil if the pattern doesn't match.
func (re *Regex) FindStringSubmatchIndex(s string) []int {
	out, ok := re.Exec(s, 0)
	if !ok {
		return nil
	}
	return out
}

// Exec is the spec.md §4.6 execute entry: find the overall span via the
// DFA's scan (with dissection interleaved when the pattern carries
// backreferences, since the pure automaton over-approximates those), then —
// unless the pattern was compiled REG_NOSUB — report each capture span.
// Returns the index vector (as FindStringSubmatchIndex lays it out) and
// whether a match was found at all.
func (re *Regex) Exec(s string, eflags ExecFlags) ([]int, bool) {
	text := []rune(s)
	span, caps, ok := re.searchWithFlags(text, 0, eflags)
	if !ok {
		return nil, false
	}

	nGroups := re.nGroups
	if re.flags&NoSub != 0 {
		nGroups = 0
	}
	out := make([]int, 2*(nGroups+1))
	for i := range out {
		out[i] = -1
	}
	out[0], out[1] = span[0], span[1]
	if nGroups == 0 {
		return out, true
	}

	if caps == nil {
		d := re.dissector(text, eflags)
		caps, _ = d.Dissect(re.tree, span[0], span[1])
	}
	for g, sp := range caps {
		if g < 1 || g > nGroups {
			continue
		}
		out[2*g], out[2*g+1] = sp[0], sp[1]
	}
	return out, true
}

func (re *Regex) execCacheSize(eflags ExecFlags) int {
	if eflags&Small != 0 {
		return re.cfg.DFACacheSizeSmall
	}
	return re.cfg.DFACacheSize
}

func (re *Regex) dissector(text []rune, eflags ExecFlags) *dissect.Dissector {
	return dissect.New(re.cm, text, dissect.Options{
		ICase:             re.flags&ICase != 0,
		NLAnch:            re.nlAnch,
		NotBOL:            eflags&NotBOL != 0,
		NotEOL:            eflags&NotEOL != 0,
		DFACacheSize:      re.execCacheSize(eflags),
		MaxRecursionDepth: re.cfg.MaxRecursionDepth,
	})
}

func (re *Regex) search(text []rune, from int) (span [2]int, caps map[int][2]int, matched bool) {
	return re.searchWithFlags(text, from, 0)
}

// searchWithFlags scans text at or after `from` for the pattern's leftmost
// match, trying each candidate start position until one succeeds. A
// left-anchored pattern only tries position 0 (and, under NLAnch, the
// position after each newline), per spec.md §4.3(f)/§4.6. For a pattern
// with backreferences the DFA's answer is only an upper bound, so every
// candidate span is verified by dissection before it counts (the cfind
// path); caps then carries the verified capture set.
func (re *Regex) searchWithFlags(text []rune, from int, eflags ExecFlags) (span [2]int, caps map[int][2]int, matched bool) {
	engine, err := dfa.New(re.cnfa, re.cm, dfa.Options{
		CacheSize: re.execCacheSize(eflags),
		NLAnch:    re.nlAnch,
		NotBOL:    eflags&NotBOL != 0,
		NotEOL:    eflags&NotEOL != 0,
	})
	if err != nil {
		return span, nil, false
	}
	scan := engine.Longest
	if re.prefShort {
		scan = engine.Shortest
	}

	needVerify := re.info&uint32(UBackref) != 0
	var d *dissect.Dissector
	if needVerify {
		d = re.dissector(text, eflags)
	}

	tryStart := func(start int) bool {
		if !needVerify {
			end, ok := scan(text, start)
			if !ok {
				return false
			}
			span = [2]int{start, end}
			return true
		}
		// The longest DFA end bounds every candidate span; walk the ends
		// in preference order until one survives backref verification.
		end, ok := engine.Longest(text, start)
		if !ok {
			return false
		}
		for i := 0; i <= end-start; i++ {
			e := end - i
			if re.prefShort {
				e = start + i
			}
			if got, ok := d.Dissect(re.tree, start, e); ok {
				span = [2]int{start, e}
				caps = got
				return true
			}
		}
		return false
	}

	if re.cnfa.LeftAnch {
		if from == 0 && tryStart(0) {
			return span, caps, true
		}
		if re.nlAnch {
			for i := from; i < len(text); i++ {
				if text[i] == '\n' && tryStart(i+1) {
					return span, caps, true
				}
			}
		}
		return span, nil, false
	}

	for start := from; start <= len(text); start++ {
		if tryStart(start) {
			return span, caps, true
		}
	}
	return span, nil, false
}
