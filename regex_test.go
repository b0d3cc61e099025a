package uregex

import (
	"errors"
	"testing"
)

func TestCompileAndMatchString(t *testing.T) {
	tests := []struct {
		pattern string
		flags   Flags
		input   string
		want    bool
	}{
		{`abc`, 0, "xxabcxx", true},
		{`abc`, 0, "xxabxx", false},
		{`a.*b`, Extended, "aXXbYYb", true},
		{`a.*?b`, Advanced, "aXXbYYb", true}, // non-greedy still reaches an unreferenced char
		{`^abc$`, Extended, "abc", true},
		{`^abc$`, Extended, "xabc", false},
		{`[abc]+`, Extended, "cba", true},
		{`[^abc]+`, Extended, "xyz", true},
		{`[^abc]+`, Extended, "abc", false},
		{`a|b`, Extended, "b", true},
		{`(ab)+`, Extended, "ababab", true},
		{`a{2,3}`, Extended, "aaa", true},
		{`a{2,3}`, Extended, "a", false},
		{`ABC`, ICase, "xabcx", true},
	}
	for _, tt := range tests {
		re, err := Compile(tt.pattern, tt.flags)
		if err != nil {
			t.Fatalf("Compile(%q) error: %v", tt.pattern, err)
		}
		if got := re.MatchString(tt.input); got != tt.want {
			t.Errorf("Compile(%q).MatchString(%q) = %v, want %v", tt.pattern, tt.input, got, tt.want)
		}
	}
}

func TestDotMatchesUnreferencedCodePoint(t *testing.T) {
	// Regression test: . and negated classes must match any code point that
	// hasn't been individually split out of White by an earlier part of the
	// pattern (EachRealColor must enumerate White along with every other
	// live real color).
	re, err := Compile(`a.b`, Extended)
	if err != nil {
		t.Fatal(err)
	}
	if !re.MatchString("a中b") {
		t.Error(". should match an arbitrary CJK code point never referenced by the pattern")
	}
}

func TestFindStringIndex(t *testing.T) {
	re, err := Compile(`b+`, Extended)
	if err != nil {
		t.Fatal(err)
	}
	loc := re.FindStringIndex("aabbbcc")
	if loc == nil || loc[0] != 2 || loc[1] != 5 {
		t.Errorf("FindStringIndex = %v, want [2 5]", loc)
	}
	if re.FindStringIndex("xyz") != nil {
		t.Error("expected no match")
	}
}

func TestFindStringSubmatchIndex(t *testing.T) {
	re, err := Compile(`(a+)(b+)`, Extended)
	if err != nil {
		t.Fatal(err)
	}
	if re.NumSubexp() != 2 {
		t.Fatalf("NumSubexp() = %d, want 2", re.NumSubexp())
	}
	idx := re.FindStringSubmatchIndex("xxaaabbxx")
	if idx == nil {
		t.Fatal("expected a match")
	}
	if idx[0] != 2 || idx[1] != 7 {
		t.Errorf("overall span = %v, want [2 7]", idx[:2])
	}
	if idx[2] != 2 || idx[3] != 5 {
		t.Errorf("group 1 span = %v, want [2 5]", idx[2:4])
	}
	if idx[4] != 5 || idx[5] != 7 {
		t.Errorf("group 2 span = %v, want [5 7]", idx[4:6])
	}
}

func TestFindStringSubmatchIndexNonParticipatingGroup(t *testing.T) {
	re, err := Compile(`(a)|(b)`, Extended)
	if err != nil {
		t.Fatal(err)
	}
	idx := re.FindStringSubmatchIndex("b")
	if idx == nil {
		t.Fatal("expected a match")
	}
	if idx[2] != -1 || idx[3] != -1 {
		t.Errorf("group 1 should not have participated, got %v", idx[2:4])
	}
	if idx[4] != 0 || idx[5] != 1 {
		t.Errorf("group 2 span = %v, want [0 1]", idx[4:6])
	}
}

func TestBracketTrailingHyphenIsLiteral(t *testing.T) {
	re, err := Compile(`[a-]+`, Extended)
	if err != nil {
		t.Fatalf("Compile([a-]+) error: %v", err)
	}
	if !re.MatchString("-a-a-") {
		t.Error("[a-] should treat a trailing '-' as a literal hyphen")
	}
	if re.MatchString("b") {
		t.Error("[a-] should not match 'b'")
	}
}

func TestBracketLeadingHyphenIsLiteral(t *testing.T) {
	re, err := Compile(`[-ab]+`, Extended)
	if err != nil {
		t.Fatalf("Compile([-ab]+) error: %v", err)
	}
	if !re.MatchString("-a-b") {
		t.Error("[-ab] should treat a leading '-' as a literal hyphen")
	}
}

func TestMustCompilePanicsOnBadPattern(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustCompile should panic on an invalid pattern")
		}
	}()
	MustCompile(`(unterminated`, Extended)
}

func TestCompileWithConfigRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRepeatBound = -1
	if _, err := CompileWithConfig(`a`, Extended, cfg); err == nil {
		t.Error("expected a ConfigError for a negative MaxRepeatBound")
	}
}

func TestBackreference(t *testing.T) {
	re, err := Compile(`(a+)\1`, Advanced)
	if err != nil {
		t.Fatal(err)
	}
	if !re.MatchString("aaaa") {
		t.Error("(a+)\\1 should match \"aaaa\" (\"aa\"+\"aa\")")
	}
	if !re.MatchString("aaa") {
		t.Error("(a+)\\1 should match \"aaa\" at (0,2): \"a\"+\"a\"")
	}
	if re.MatchString("aba") {
		t.Error("(a+)\\1 should not match \"aba\": no two equal adjacent runs")
	}
}

func TestBackreferenceSubmatch(t *testing.T) {
	// spec.md §8 scenario 3.
	re, err := Compile(`(a+)\1`, Advanced)
	if err != nil {
		t.Fatal(err)
	}
	idx := re.FindStringSubmatchIndex("aaaa")
	if idx == nil {
		t.Fatal("expected a match")
	}
	if idx[0] != 0 || idx[1] != 4 {
		t.Errorf("overall span = %v, want [0 4]", idx[:2])
	}
	if idx[2] != 0 || idx[3] != 2 {
		t.Errorf("group 1 span = %v, want [0 2]", idx[2:4])
	}
}

func TestScenarioCaptureInsideLiterals(t *testing.T) {
	// spec.md §8 scenario 1.
	re, err := Compile(`a(b+)c`, Advanced)
	if err != nil {
		t.Fatal(err)
	}
	idx := re.FindStringSubmatchIndex("xxabbbbcyy")
	if idx == nil {
		t.Fatal("expected a match")
	}
	if idx[0] != 2 || idx[1] != 8 {
		t.Errorf("overall span = %v, want [2 8]", idx[:2])
	}
	if idx[2] != 3 || idx[3] != 7 {
		t.Errorf("group 1 span = %v, want [3 7]", idx[2:4])
	}
}

func TestScenarioAnchoredNonCapturingAlt(t *testing.T) {
	// spec.md §8 scenario 2.
	re, err := Compile(`^(?:foo|bar)$`, Advanced)
	if err != nil {
		t.Fatal(err)
	}
	if re.NumSubexp() != 0 {
		t.Fatalf("NumSubexp() = %d, want 0", re.NumSubexp())
	}
	idx := re.FindStringSubmatchIndex("bar")
	if idx == nil || idx[0] != 0 || idx[1] != 3 {
		t.Errorf("span = %v, want [0 3]", idx)
	}
	if re.MatchString("xbar") {
		t.Error("anchored pattern must not match with a prefix")
	}
}

func TestScenarioNonGreedy(t *testing.T) {
	// spec.md §8 scenario 4: a non-greedy .*? makes the overall match the
	// shortest one.
	re, err := Compile(`a.*?b`, Advanced)
	if err != nil {
		t.Fatal(err)
	}
	loc := re.FindStringIndex("aXXbYYb")
	if loc == nil || loc[0] != 0 || loc[1] != 4 {
		t.Errorf("FindStringIndex = %v, want [0 4]", loc)
	}
}

func TestScenarioWordClassICase(t *testing.T) {
	// spec.md §8 scenario 5.
	re, err := Compile(`\w+`, Advanced|ICase)
	if err != nil {
		t.Fatal(err)
	}
	loc := re.FindStringIndex("___Foo123 bar")
	if loc == nil || loc[0] != 0 || loc[1] != 9 {
		t.Errorf("FindStringIndex = %v, want [0 9]", loc)
	}
}

func TestScenarioLookahead(t *testing.T) {
	// spec.md §8 scenario 6: the lookahead constrains without consuming.
	re, err := Compile(`(?=abc)a`, Advanced)
	if err != nil {
		t.Fatal(err)
	}
	loc := re.FindStringIndex("abcd")
	if loc == nil || loc[0] != 0 || loc[1] != 1 {
		t.Errorf("FindStringIndex = %v, want [0 1]", loc)
	}
	if re.MatchString("abd") {
		t.Error("(?=abc)a must not match when the lookahead fails")
	}
}

func TestNegativeLookaheadGates(t *testing.T) {
	re, err := Compile(`a(?!bc)`, Advanced)
	if err != nil {
		t.Fatal(err)
	}
	if re.MatchString("abc") {
		t.Error("a(?!bc) must not match \"abc\"")
	}
	if !re.MatchString("abd") {
		t.Error("a(?!bc) should match \"abd\"")
	}
}

func TestEmptyPatternIsError(t *testing.T) {
	// spec.md §8 #10.
	_, err := Compile(``, Extended)
	if err == nil {
		t.Fatal("expected REG_EMPTY for an empty pattern")
	}
	ce, ok := err.(*CompileError)
	if !ok {
		t.Fatalf("error type = %T, want *CompileError", err)
	}
	if ce.Code != EEmpty {
		t.Errorf("Code = %v, want EMPTY", ce.Code)
	}
}

func TestZeroRepeatCancelsCapture(t *testing.T) {
	// spec.md §8 #11: {0,0} of a capturing group leaves it unmatched.
	re, err := Compile(`(a){0,0}b`, Advanced)
	if err != nil {
		t.Fatal(err)
	}
	idx := re.FindStringSubmatchIndex("b")
	if idx == nil {
		t.Fatal("expected a match")
	}
	if idx[2] != -1 || idx[3] != -1 {
		t.Errorf("group 1 = %v, want unset (-1,-1)", idx[2:4])
	}
}

func TestZeroLengthMatchAtEnd(t *testing.T) {
	// spec.md §8 #12.
	re, err := Compile(`a*`, Extended)
	if err != nil {
		t.Fatal(err)
	}
	loc := re.FindStringIndex("")
	if loc == nil || loc[0] != 0 || loc[1] != 0 {
		t.Errorf("FindStringIndex(\"\") = %v, want [0 0]", loc)
	}
}

func TestBackrefToUnmatchedGroupFailsAlternative(t *testing.T) {
	// spec.md §8 #13: not a hard error, the other alternative still wins.
	re, err := Compile(`(?:(a)\1|b)`, Advanced)
	if err != nil {
		t.Fatal(err)
	}
	if !re.MatchString("b") {
		t.Error("the b alternative should match even though (a)\\1 cannot")
	}
}

func TestBackrefToUndefinedGroupIsESubreg(t *testing.T) {
	_, err := Compile(`(a)\2`, Advanced)
	ce, ok := err.(*CompileError)
	if !ok || ce.Code != ESubreg {
		t.Errorf("Compile((a)\\2) = %v, want ESUBREG", err)
	}
}

func TestLeftAnchoredMatchStartsAtZero(t *testing.T) {
	// spec.md §8 invariant #6.
	re, err := Compile(`^ab`, Extended)
	if err != nil {
		t.Fatal(err)
	}
	loc := re.FindStringIndex("ab ab")
	if loc == nil || loc[0] != 0 {
		t.Errorf("FindStringIndex = %v, want start 0", loc)
	}
	if re.MatchString("xab") {
		t.Error("^ab must not match mid-string")
	}
}

func TestNotBOLSuppressesCaret(t *testing.T) {
	re, err := Compile(`^a`, Extended)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := re.Exec("abc", 0); !ok {
		t.Error("^a should match \"abc\" without NotBOL")
	}
	if _, ok := re.Exec("abc", NotBOL); ok {
		t.Error("^a must not match under NotBOL")
	}
}

func TestNotEOLSuppressesDollar(t *testing.T) {
	re, err := Compile(`a$`, Extended)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := re.Exec("ba", 0); !ok {
		t.Error("a$ should match \"ba\" without NotEOL")
	}
	if _, ok := re.Exec("ba", NotEOL); ok {
		t.Error("a$ must not match under NotEOL")
	}
}

func TestNewlineFlagAnchorsAroundEmbeddedNewlines(t *testing.T) {
	re, err := Compile(`^b$`, Extended|Newline)
	if err != nil {
		t.Fatal(err)
	}
	if !re.MatchString("a\nb\nc") {
		t.Error("^b$ with REG_NEWLINE should match the middle line")
	}

	re2, err := Compile(`a.b`, Extended|Newline)
	if err != nil {
		t.Fatal(err)
	}
	if re2.MatchString("a\nb") {
		t.Error(". with REG_NEWLINE (NLSTOP) must not match a newline")
	}
}

func TestQuoteTreatsPatternAsLiteral(t *testing.T) {
	re, err := Compile(`a.*b`, Quote)
	if err != nil {
		t.Fatal(err)
	}
	if !re.MatchString("xa.*bx") {
		t.Error("REG_QUOTE should match the metacharacters literally")
	}
	if re.MatchString("aXXb") {
		t.Error("REG_QUOTE must not treat . and * as metacharacters")
	}
}

func TestQuoteWithGrammarFlagIsBadOpt(t *testing.T) {
	_, err := Compile(`a`, Quote|Extended)
	ce, ok := err.(*CompileError)
	if !ok || ce.Code != BadOpt {
		t.Errorf("Compile(Quote|Extended) = %v, want BADOPT", err)
	}
}

func TestExpandedSkipsWhitespaceAndComments(t *testing.T) {
	re, err := Compile("a b  # trailing comment\nc", Advanced|Expanded)
	if err != nil {
		t.Fatal(err)
	}
	if !re.MatchString("xabcx") {
		t.Error("REG_EXPANDED should ignore whitespace and comments")
	}
}

func TestWordBoundary(t *testing.T) {
	re, err := Compile(`\bfoo\b`, Advanced)
	if err != nil {
		t.Fatal(err)
	}
	if !re.MatchString("a foo b") {
		t.Error("\\bfoo\\b should match a delimited word")
	}
	if !re.MatchString("foo") {
		t.Error("\\bfoo\\b should match at the string edges")
	}
	if re.MatchString("food") {
		t.Error("\\bfoo\\b must not match inside a longer word")
	}
}

func TestBoundWithNonGreedySuffix(t *testing.T) {
	re, err := Compile(`a{1,3}?`, Advanced)
	if err != nil {
		t.Fatal(err)
	}
	loc := re.FindStringIndex("aaa")
	if loc == nil || loc[1]-loc[0] != 1 {
		t.Errorf("a{1,3}? should take the shortest count, got %v", loc)
	}
}

func TestLiteralBraceAndComma(t *testing.T) {
	// '{' not opening a bound, '}' and ',' outside bounds are ordinary.
	re, err := Compile(`a{b},c`, Extended)
	if err != nil {
		t.Fatalf("Compile(a{b},c) error: %v", err)
	}
	if !re.MatchString("xa{b},cx") {
		t.Error("literal brace/comma text should match itself")
	}
}

func TestRepeatBoundOverDupMax(t *testing.T) {
	_, err := Compile(`a{300}`, Extended)
	ce, ok := err.(*CompileError)
	if !ok || ce.Code != BadBr {
		t.Errorf("Compile(a{300}) = %v, want BADBR", err)
	}
}

func TestICaseLiteralMatchesBothCases(t *testing.T) {
	re, err := Compile(`AbC`, ICase)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"abc", "ABC", "aBc"} {
		if !re.MatchString(s) {
			t.Errorf("ICase literal should match %q", s)
		}
	}
}

func TestICaseFoldsNonASCIILetters(t *testing.T) {
	re, err := Compile("Étude", ICase)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"étude", "ÉTUDE", "Étude"} {
		if !re.MatchString(s) {
			t.Errorf("ICase should fold non-ASCII case pairs, failed on %q", s)
		}
	}

	re2, err := Compile("павел", ICase)
	if err != nil {
		t.Fatal(err)
	}
	if !re2.MatchString("ПАВЕЛ") {
		t.Error("ICase should fold Cyrillic case pairs")
	}
}

func TestICaseBackrefFoldsNonASCII(t *testing.T) {
	re, err := Compile(`(é+)\1`, Advanced|ICase)
	if err != nil {
		t.Fatal(err)
	}
	if !re.MatchString("éÉ") {
		t.Error("ICase backref comparison should fold non-ASCII case pairs")
	}
}

func TestErrorsIsMatchesOnCode(t *testing.T) {
	_, err := Compile(`a{300}`, Extended)
	if !errors.Is(err, ErrBadBr) {
		t.Errorf("errors.Is(%v, ErrBadBr) should hold", err)
	}
	if errors.Is(err, ErrEParen) {
		t.Error("errors.Is must not match a different Code")
	}

	_, err = Compile(`(a`, Extended)
	if !errors.Is(err, ErrEParen) {
		t.Errorf("errors.Is(%v, ErrEParen) should hold", err)
	}
}

func TestICaseBackrefFoldsComparison(t *testing.T) {
	re, err := Compile(`(ab)\1`, Advanced|ICase)
	if err != nil {
		t.Fatal(err)
	}
	if !re.MatchString("abAB") {
		t.Error("ICase backref should fold case when comparing repeats")
	}
}

func TestBREBasics(t *testing.T) {
	re, err := Compile(`\(a*\)b`, 0)
	if err != nil {
		t.Fatalf("BRE compile error: %v", err)
	}
	idx := re.FindStringSubmatchIndex("xaaab")
	if idx == nil {
		t.Fatal("expected a match")
	}
	if idx[2] != 1 || idx[3] != 4 {
		t.Errorf("group 1 = %v, want [1 4]", idx[2:4])
	}

	// In BRE, a mid-pattern '^' is a literal.
	re2, err := Compile(`a^b`, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !re2.MatchString("xa^by") {
		t.Error("mid-pattern '^' should be literal in BRE")
	}
}

func TestInfoBits(t *testing.T) {
	re, err := Compile(`(a+)\1{2,3}`, Advanced)
	if err != nil {
		t.Fatal(err)
	}
	if re.Info()&UBackref == 0 {
		t.Error("UBackref should be reported")
	}
	if re.Info()&UBounds == 0 {
		t.Error("UBounds should be reported")
	}

	re2, err := Compile(`a*`, Extended)
	if err != nil {
		t.Fatal(err)
	}
	if re2.Info()&UEmptyMatch == 0 {
		t.Error("UEmptyMatch should be reported for a pattern matching \"\"")
	}
}

func TestSmallCacheStillMatches(t *testing.T) {
	re, err := Compile(`(a|b)+c`, Extended)
	if err != nil {
		t.Fatal(err)
	}
	out, ok := re.Exec("abababababc", Small)
	if !ok {
		t.Fatal("expected a match under the small-cache flag")
	}
	if out[0] != 0 || out[1] != 11 {
		t.Errorf("overall span = %v, want [0 11]", out[:2])
	}
}

func TestExecNoSubReportsOnlyOverallSpan(t *testing.T) {
	re, err := Compile(`(a+)(b+)`, Extended|NoSub)
	if err != nil {
		t.Fatal(err)
	}
	out, ok := re.Exec("aabb", 0)
	if !ok {
		t.Fatal("expected a match")
	}
	if len(out) != 2 {
		t.Errorf("NoSub vector length = %d, want 2 (overall span only)", len(out))
	}
}

func TestPosixClassInBracket(t *testing.T) {
	re, err := Compile(`[[:digit:]]+`, Extended)
	if err != nil {
		t.Fatal(err)
	}
	loc := re.FindStringIndex("ab123cd")
	if loc == nil || loc[0] != 2 || loc[1] != 5 {
		t.Errorf("FindStringIndex = %v, want [2 5]", loc)
	}
	if _, err := Compile(`[[:bogus:]]`, Extended); err == nil {
		t.Error("unknown class name should fail with ECTYPE")
	}
}

func TestCollatingElementAndEquivalenceClass(t *testing.T) {
	re, err := Compile(`[[.a.]b]+`, Extended)
	if err != nil {
		t.Fatalf("collating-element bracket failed to compile: %v", err)
	}
	if !re.MatchString("ba") {
		t.Error("[[.a.]b] should match its members")
	}
	if re.Info()&ULocale == 0 {
		t.Error("ULocale should be reported for collating-element syntax")
	}

	re2, err := Compile(`[[=x=]]`, Extended)
	if err != nil {
		t.Fatal(err)
	}
	if !re2.MatchString("x") {
		t.Error("[[=x=]] should at least match its own base character")
	}
}

func TestStringAnchorsIgnoreNewlineFlag(t *testing.T) {
	re, err := Compile(`\Ab`, Advanced|Newline)
	if err != nil {
		t.Fatal(err)
	}
	if re.MatchString("a\nb") {
		t.Error("\\A must not match after an embedded newline even under REG_NEWLINE")
	}
	if !re.MatchString("b") {
		t.Error("\\A should match at the true string start")
	}
}
