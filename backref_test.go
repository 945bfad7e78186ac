package tmcore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scopegraph/tmcore/regexp"
)

func TestContainsBackref(t *testing.T) {
	cases := []struct {
		source string
		want   bool
	}{
		{`foo`, false},
		{`\d+`, false},
		{`\\`, false},
		{`\1`, true},
		{`\12`, true},
		{`a\1b\2c`, true},
		{`\`, false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, containsBackref(c.source), "containsBackref(%q)", c.source)
	}
}

// spec §4.7 / §8 "Back-reference idempotence": a pattern with no
// back-references resolves to itself, identically, every time.
func TestResolveBackrefsNoReferenceIsIdentity(t *testing.T) {
	re, err := regexp.Compile(`(["'])`, 0)
	require.NoError(t, err)
	match, err := re.Search(`x"y`, 0, 3, regexp.OptionNone)
	require.NoError(t, err)
	require.NotNil(t, match)

	resolved, identical := resolveBackrefs(`quux`, `x"y`, match)
	require.True(t, identical)
	require.Equal(t, "quux", resolved)
}

// spec §4.7: a participating back-reference substitutes its literal
// matched text.
func TestResolveBackrefsSubstitutesCapturedText(t *testing.T) {
	re, err := regexp.Compile(`(["'])`, 0)
	require.NoError(t, err)
	text := `x'y`
	match, err := re.Search(text, 0, len(text), regexp.OptionNone)
	require.NoError(t, err)
	require.NotNil(t, match)

	resolved, identical := resolveBackrefs(`\1`, text, match)
	require.False(t, identical)
	require.Equal(t, "'", resolved)

	// Resolving twice against the same begin match must yield the same text.
	resolvedAgain, _ := resolveBackrefs(`\1`, text, match)
	require.Equal(t, resolved, resolvedAgain)
}

// spec §4.7 / §8 "Invalid-scalar sentinel": a back-reference to a capture
// that did not participate substitutes U+FFFF, which can't occur in valid
// source text.
func TestResolveBackrefsNonParticipatingGroupIsSentinel(t *testing.T) {
	re, err := regexp.Compile(`(a)|(b)`, 0)
	require.NoError(t, err)
	text := "b"
	match, err := re.Search(text, 0, len(text), regexp.OptionNone)
	require.NoError(t, err)
	require.NotNil(t, match)
	require.Nil(t, match.Group(1)) // group 1 ("a") did not participate

	resolved, identical := resolveBackrefs(`\1`, text, match)
	require.False(t, identical)
	require.Contains(t, resolved, invalidScalar)
}

func TestEndPatternResolveReusesCompiledPatternWhenNoBackref(t *testing.T) {
	end, err := newEndPattern(`;`)
	require.NoError(t, err)
	require.False(t, end.HasBackref)

	re, err := regexp.Compile(`(["'])`, 0)
	require.NoError(t, err)
	match, err := re.Search(`x"y`, 0, 3, regexp.OptionNone)
	require.NoError(t, err)

	first, err := end.Resolve(`x"y`, match)
	require.NoError(t, err)
	second, err := end.Resolve(`x"y`, match)
	require.NoError(t, err)
	require.Same(t, first, second)
}
