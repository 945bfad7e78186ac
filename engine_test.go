package tmcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// compileTestGrammar compiles j without any file-identity validation or
// source.* resolution, which the tests below never exercise.
func compileTestGrammar(t *testing.T, j GrammarJSON) *Grammar {
	t.Helper()
	g, err := CompileGrammar(j, "", "")
	require.NoError(t, err)
	return g
}

func parseOneLine(t *testing.T, g *Grammar, line string) []Token {
	t.Helper()
	_, tokens, err := ParseLine(g, NewStack(g.Root), line, nil)
	require.NoError(t, err)
	return tokens
}

func requireToken(t *testing.T, tok Token, start, end int, scope ...string) {
	t.Helper()
	require.Equal(t, start, tok.Start, "token start")
	require.Equal(t, end, tok.End, "token end")
	if len(scope) == 0 {
		require.Empty(t, tok.ScopePath)
	} else {
		require.Equal(t, scope, tok.ScopePath)
	}
}

// spec.md §8 scenario 1: a single named match rule.
func TestParseLineMatchRule(t *testing.T) {
	g := compileTestGrammar(t, GrammarJSON{
		ScopeName: "source.test",
		Patterns: []RuleJSON{
			{Name: "k", Match: "foo"},
		},
	})

	tokens := parseOneLine(t, g, "xfoox")
	require.Len(t, tokens, 3)
	requireToken(t, tokens[0], 0, 1)
	requireToken(t, tokens[1], 1, 4, "k")
	requireToken(t, tokens[2], 4, 5)
}

// spec.md §8 scenario 2: a range rule with no contentName.
func TestParseLineRangeRule(t *testing.T) {
	g := compileTestGrammar(t, GrammarJSON{
		ScopeName: "source.test",
		Patterns: []RuleJSON{
			{Name: "s", Begin: `"`, End: `"`},
		},
	})

	tokens := parseOneLine(t, g, `a"b"c`)
	require.Len(t, tokens, 5)
	requireToken(t, tokens[0], 0, 1)
	requireToken(t, tokens[1], 1, 2, "s")
	requireToken(t, tokens[2], 2, 3, "s")
	requireToken(t, tokens[3], 3, 4, "s")
	requireToken(t, tokens[4], 4, 5)
}

// spec.md §8 scenario 3: the same rule, now with a contentName.
func TestParseLineRangeRuleContentName(t *testing.T) {
	g := compileTestGrammar(t, GrammarJSON{
		ScopeName: "source.test",
		Patterns: []RuleJSON{
			{Name: "s", ContentName: "c", Begin: `"`, End: `"`},
		},
	})

	tokens := parseOneLine(t, g, `a"b"c`)
	require.Len(t, tokens, 5)
	requireToken(t, tokens[0], 0, 1)
	requireToken(t, tokens[1], 1, 2, "s")
	requireToken(t, tokens[2], 2, 3, "s", "c")
	requireToken(t, tokens[3], 3, 4, "s")
	requireToken(t, tokens[4], 4, 5)
}

// spec.md §8 scenario 4: a back-reference from end into begin's capture.
func TestParseLineBackreference(t *testing.T) {
	g := compileTestGrammar(t, GrammarJSON{
		ScopeName: "source.test",
		Patterns: []RuleJSON{
			{Name: "q", Begin: `(["'])`, End: `\1`},
		},
	})

	tokens := parseOneLine(t, g, `x'y'z`)
	require.Len(t, tokens, 5)
	requireToken(t, tokens[0], 0, 1)
	requireToken(t, tokens[1], 1, 2, "q")
	requireToken(t, tokens[2], 2, 3, "q")
	requireToken(t, tokens[3], 3, 4, "q")
	requireToken(t, tokens[4], 4, 5)
}

// spec.md §8 scenario 5: capture-group sub-scoping inside a match rule.
func TestParseLineCaptures(t *testing.T) {
	g := compileTestGrammar(t, GrammarJSON{
		ScopeName: "source.test",
		Patterns: []RuleJSON{
			{
				Match: "(a)(b)",
				Captures: map[string]RuleJSON{
					"1": {Name: "x"},
					"2": {Name: "y"},
				},
			},
		},
	})

	tokens := parseOneLine(t, g, "ab")
	require.Len(t, tokens, 2)
	requireToken(t, tokens[0], 0, 1, "x")
	requireToken(t, tokens[1], 1, 2, "y")
}

// spec.md §8 scenario 6: leftmost-match tie-break goes to the
// earlier-declared plan, not the longer match.
func TestParseLineLeftmostTieBreak(t *testing.T) {
	g := compileTestGrammar(t, GrammarJSON{
		ScopeName: "source.test",
		Patterns: []RuleJSON{
			{Name: "r1", Match: "foo"},
			{Name: "r2", Match: "foobar"},
		},
	})

	tokens := parseOneLine(t, g, "foobar")
	require.Len(t, tokens, 2)
	requireToken(t, tokens[0], 0, 3, "r1")
	requireToken(t, tokens[1], 3, 6)
}

// A begin pattern that never finds its end must close out at end of line
// without panicking, and must not assert on a still-open frame (spec §4.4
// step 5's "Line" branch only asserts on pending *capture anchors*, not on
// open range-rule frames — those are expected to span lines).
func TestParseLineUnterminatedRangeRule(t *testing.T) {
	g := compileTestGrammar(t, GrammarJSON{
		ScopeName: "source.test",
		Patterns: []RuleJSON{
			{Name: "s", Begin: `"`, End: `"`},
		},
	})

	stack, tokens, err := ParseLine(g, NewStack(g.Root), `a"bc`, nil)
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	requireToken(t, tokens[0], 0, 1)
	requireToken(t, tokens[1], 1, 2, "s")
	requireToken(t, tokens[2], 2, 4, "s")
	require.Equal(t, 2, stack.Depth())
}

// Coverage & monotonic-progress invariants (spec §8): emitted tokens
// partition the line with no gaps and no overlaps.
func TestParseLineCoverageInvariant(t *testing.T) {
	g := compileTestGrammar(t, GrammarJSON{
		ScopeName: "source.test",
		Patterns: []RuleJSON{
			{Name: "s", Begin: `"`, End: `"`, Patterns: []RuleJSON{
				{Name: "esc", Match: `\\.`},
			}},
			{Name: "k", Match: "foo"},
		},
	})

	line := `foo "a\"b" foo`
	tokens := parseOneLine(t, g, line)
	require.NotEmpty(t, tokens)

	pos := 0
	for _, tok := range tokens {
		require.Equal(t, pos, tok.Start, "gap or overlap before token %+v", tok)
		require.Less(t, tok.Start, tok.End)
		pos = tok.End
	}
	require.Equal(t, len(line), pos)
}
