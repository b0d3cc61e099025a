package parse

import (
	"testing"

	"github.com/coregx/uregex/lex"
	"github.com/coregx/uregex/subre"
)

func defaultLimits() Limits {
	return Limits{MaxRepeatBound: 255, MaxRecursionDepth: 100}
}

func TestParseCountsGroups(t *testing.T) {
	res, err := Parse(`(a)(b(c))`, lex.ERE, Options{}, defaultLimits())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if res.NGroups != 3 {
		t.Errorf("NGroups = %d, want 3", res.NGroups)
	}
}

func TestParseNonCapturingGroupDoesNotCount(t *testing.T) {
	res, err := Parse(`(?:ab)(c)`, lex.ARE, Options{}, defaultLimits())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if res.NGroups != 1 {
		t.Errorf("NGroups = %d, want 1", res.NGroups)
	}
}

func TestParseUnterminatedGroupFails(t *testing.T) {
	_, err := Parse(`(ab`, lex.ERE, Options{}, defaultLimits())
	if err == nil {
		t.Fatal("expected an error for an unterminated group")
	}
	pe, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if pe.Code != "EPAREN" {
		t.Errorf("Code = %s, want EPAREN", pe.Code)
	}
}

func TestParseSetsBackrefInfo(t *testing.T) {
	res, err := Parse(`(a+)\1`, lex.ARE, Options{}, defaultLimits())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if res.Info&infoBackref == 0 {
		t.Error("infoBackref should be set for a pattern with a backreference")
	}
}

func TestParseSetsBoundsInfo(t *testing.T) {
	res, err := Parse(`a{2,3}`, lex.ERE, Options{}, defaultLimits())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if res.Info&infoBounds == 0 {
		t.Error("infoBounds should be set for a pattern using {m,n}")
	}
}

func TestParseSetsLookaheadInfo(t *testing.T) {
	res, err := Parse(`(?=a)b`, lex.ARE, Options{}, defaultLimits())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if res.Info&infoLookahead == 0 {
		t.Error("infoLookahead should be set for a pattern using lookahead")
	}
}

func TestParseRejectsRepeatBoundOverLimit(t *testing.T) {
	limits := Limits{MaxRepeatBound: 10, MaxRecursionDepth: 100}
	_, err := Parse(`a{20}`, lex.ERE, Options{}, limits)
	if err == nil {
		t.Fatal("expected an error for a repeat bound above MaxRepeatBound")
	}
	pe, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if pe.Code != "BADBR" {
		t.Errorf("Code = %s, want BADBR", pe.Code)
	}
}

func TestParseBuildsNFAWithSentinels(t *testing.T) {
	res, err := Parse(`abc`, lex.ERE, Options{}, defaultLimits())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if res.NFA == nil {
		t.Fatal("Parse should populate Result.NFA")
	}
	if res.Tree == nil {
		t.Fatal("Parse should populate Result.Tree")
	}
}

func TestParseNonGreedySetsShorterPreference(t *testing.T) {
	res, err := Parse(`a.*?b`, lex.ARE, Options{}, defaultLimits())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if res.Prefer != subre.Shorter {
		t.Errorf("Prefer = %v, want Shorter", res.Prefer)
	}
	if !res.UsedShorter {
		t.Error("UsedShorter should be set for a non-greedy quantifier")
	}
}

func TestParseGreedyDefaultsToLonger(t *testing.T) {
	res, err := Parse(`a.*b`, lex.ARE, Options{}, defaultLimits())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if res.Prefer != subre.Longer {
		t.Errorf("Prefer = %v, want Longer", res.Prefer)
	}
	if res.UsedShorter {
		t.Error("UsedShorter should not be set for a greedy pattern")
	}
}

func TestParseEmptyPatternFails(t *testing.T) {
	_, err := Parse(``, lex.ERE, Options{}, defaultLimits())
	pe, ok := err.(*Error)
	if !ok || pe.Code != "EMPTY" {
		t.Errorf("Parse(\"\") = %v, want EMPTY", err)
	}
}

func TestParseBackrefBoundsOnTree(t *testing.T) {
	res, err := Parse(`(a)\1{2,3}`, lex.ARE, Options{}, defaultLimits())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	var br *subre.Subre
	res.Tree.Walk(func(s *subre.Subre) {
		if s.Op == subre.OpBackref {
			br = s
		}
	})
	if br == nil {
		t.Fatal("no backref node in the tree")
	}
	if br.Min != 2 || br.Max != 3 {
		t.Errorf("backref bounds = {%d,%d}, want {2,3}", br.Min, br.Max)
	}
	if br.Subno != -1 {
		t.Errorf("backref Subno = %d, want -1", br.Subno)
	}
}

func TestParseSnapshotsSubtreeAutomata(t *testing.T) {
	res, err := Parse(`a(b)c`, lex.ERE, Options{}, defaultLimits())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	missing := 0
	res.Tree.Walk(func(s *subre.Subre) {
		if s.CNFA == nil {
			missing++
		}
	})
	if missing != 0 {
		t.Errorf("%d tree nodes lack a snapshot automaton", missing)
	}
}
