package dissect

import (
	"testing"

	"github.com/coregx/uregex/lex"
	"github.com/coregx/uregex/parse"
	"github.com/coregx/uregex/subre"
)

func compile(t *testing.T, pattern string) *parse.Result {
	t.Helper()
	limits := parse.Limits{MaxRepeatBound: 255, MaxRecursionDepth: 100}
	res, err := parse.Parse(pattern, lex.ARE, parse.Options{}, limits)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", pattern, err)
	}
	return res
}

func dissector(res *parse.Result, text string) (*Dissector, []rune) {
	rs := []rune(text)
	return New(res.NFA.CM, rs, Options{}), rs
}

func TestDissectLocatesNestedGroup(t *testing.T) {
	res := compile(t, `a(b+)c`)
	d, _ := dissector(res, "abbbc")
	caps, ok := d.Dissect(res.Tree, 0, 5)
	if !ok {
		t.Fatal("dissection should succeed over the whole match")
	}
	if got := caps[1]; got != [2]int{1, 4} {
		t.Errorf("group 1 = %v, want [1 4]", got)
	}
}

func TestDissectPicksMatchingAltBranch(t *testing.T) {
	res := compile(t, `(foo)|(bar)`)
	d, _ := dissector(res, "bar")
	caps, ok := d.Dissect(res.Tree, 0, 3)
	if !ok {
		t.Fatal("dissection should succeed")
	}
	if _, present := caps[1]; present {
		t.Error("group 1 did not participate and must stay unset")
	}
	if got := caps[2]; got != [2]int{0, 3} {
		t.Errorf("group 2 = %v, want [0 3]", got)
	}
}

func TestDissectRejectsWrongSpan(t *testing.T) {
	res := compile(t, `a(b+)c`)
	d, _ := dissector(res, "abbbc")
	if _, ok := d.Dissect(res.Tree, 0, 4); ok {
		t.Error("dissection over a span the pattern cannot cover must fail")
	}
}

func TestDissectVerifiesBackref(t *testing.T) {
	res := compile(t, `(a+)\1`)

	d, _ := dissector(res, "aaaa")
	caps, ok := d.Dissect(res.Tree, 0, 4)
	if !ok {
		t.Fatal("(a+)\\1 should dissect over \"aaaa\"")
	}
	if got := caps[1]; got != [2]int{0, 2} {
		t.Errorf("group 1 = %v, want [0 2] (the repeated half)", got)
	}

	d2, _ := dissector(res, "aab")
	if _, ok := d2.Dissect(res.Tree, 0, 3); ok {
		t.Error("(a+)\\1 must not dissect over \"aab\"")
	}
}

func TestDissectBackrefCaseFold(t *testing.T) {
	limits := parse.Limits{MaxRepeatBound: 255, MaxRecursionDepth: 100}
	res, err := parse.Parse(`(ab)\1`, lex.ARE, parse.Options{ICase: true}, limits)
	if err != nil {
		t.Fatal(err)
	}
	rs := []rune("abAB")
	d := New(res.NFA.CM, rs, Options{ICase: true})
	if _, ok := d.Dissect(res.Tree, 0, 4); !ok {
		t.Error("case-folded backref comparison should accept \"abAB\"")
	}
}

func TestDissectShorterPreferenceSplitsShortFirst(t *testing.T) {
	res := compile(t, `(a*?)(a*)`)
	d, _ := dissector(res, "aaa")
	caps, ok := d.Dissect(res.Tree, 0, 3)
	if !ok {
		t.Fatal("dissection should succeed")
	}
	if got := caps[1]; got != [2]int{0, 0} {
		t.Errorf("non-greedy group 1 = %v, want the empty split [0 0]", got)
	}
	if got := caps[2]; got != [2]int{0, 3} {
		t.Errorf("group 2 = %v, want [0 3]", got)
	}
}

func TestVerifyBackrefRepetitionBounds(t *testing.T) {
	d := New(nil, []rune("ababab"), Options{})
	d.caps = map[int][2]int{}
	if !d.verifyBackref([2]int{0, 2}, 2, 6, 1, subre.Infinity) {
		t.Error("two repetitions of \"ab\" within [1,inf] should verify")
	}
	if d.verifyBackref([2]int{0, 2}, 2, 6, 3, subre.Infinity) {
		t.Error("two repetitions must fail a min bound of 3")
	}
	if d.verifyBackref([2]int{0, 2}, 2, 5, 1, 1) {
		t.Error("a span not a multiple of the captured length must fail")
	}
}
