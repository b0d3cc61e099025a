package dfa

import (
	"testing"

	"github.com/coregx/uregex/lex"
	"github.com/coregx/uregex/parse"
)

func compile(t *testing.T, pattern string) *Engine {
	t.Helper()
	limits := parse.Limits{MaxRepeatBound: 255, MaxRecursionDepth: 100}
	res, err := parse.Parse(pattern, lex.ERE, parse.Options{}, limits)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", pattern, err)
	}
	cn := res.NFA.Compact()
	e, err := New(cn, res.NFA.CM, Options{CacheSize: 200})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return e
}

func TestEngineLongestLeftmostLongest(t *testing.T) {
	e := compile(t, `a+`)
	text := []rune("xxaaaxx")
	end, matched := e.Longest(text, 2)
	if !matched || end != 5 {
		t.Errorf("Longest(text, 2) = (%d, %v), want (5, true)", end, matched)
	}
}

func TestEngineLongestNoMatch(t *testing.T) {
	e := compile(t, `a+`)
	text := []rune("xyz")
	_, matched := e.Longest(text, 0)
	if matched {
		t.Error("expected no match")
	}
}

func TestEngineShortestStopsAtFirstAccept(t *testing.T) {
	e := compile(t, `a+`)
	text := []rune("aaa")
	end, matched := e.Shortest(text, 0)
	if !matched || end != 1 {
		t.Errorf("Shortest = (%d, %v), want (1, true)", end, matched)
	}
}

func TestEngineMatchesAtRequiresFullSpan(t *testing.T) {
	e := compile(t, `a+`)
	text := []rune("aaab")
	if !e.MatchesAt(text, 0, 3) {
		t.Error("MatchesAt(0,3) should match \"aaa\"")
	}
	if e.MatchesAt(text, 0, 4) {
		t.Error("MatchesAt(0,4) should not match \"aaab\"")
	}
}

func TestEngineAnchors(t *testing.T) {
	e := compile(t, `^abc$`)
	if _, matched := e.Longest([]rune("abc"), 0); !matched {
		t.Error("^abc$ should match \"abc\" at start")
	}
	if _, matched := e.Longest([]rune("xabc"), 1); matched {
		t.Error("^abc$ should not match starting mid-string")
	}
}

func TestEngineRejectsZeroCacheSize(t *testing.T) {
	limits := parse.Limits{MaxRepeatBound: 255, MaxRecursionDepth: 100}
	res, err := parse.Parse(`a`, lex.ERE, parse.Options{}, limits)
	if err != nil {
		t.Fatal(err)
	}
	cn := res.NFA.Compact()
	if _, err := New(cn, res.NFA.CM, Options{}); err == nil {
		t.Error("expected ErrInvalidConfig for a zero cache size")
	}
}

func TestStateSetDedupesAndSorts(t *testing.T) {
	ss := NewStateSet(10)
	ss.Add(5)
	ss.Add(2)
	ss.Add(5)
	if ss.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", ss.Len())
	}
	slice := ss.ToSlice()
	if len(slice) != 2 || slice[0] != 2 || slice[1] != 5 {
		t.Errorf("ToSlice() = %v, want [2 5]", slice)
	}
}
