package tmcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareToken(t *testing.T) {
	a := Token{Start: 0, End: 2, ScopePath: []string{"a"}}
	b := Token{Start: 1, End: 2, ScopePath: []string{"a"}}
	c := Token{Start: 0, End: 3, ScopePath: []string{"a"}}
	d := Token{Start: 0, End: 2, ScopePath: []string{"a", "b"}}

	require.Negative(t, CompareToken(a, b))
	require.Positive(t, CompareToken(b, a))
	require.Negative(t, CompareToken(a, c))
	require.Negative(t, CompareToken(a, d))
	require.Zero(t, CompareToken(a, a))
}

func TestTokenHelpers(t *testing.T) {
	tok := Token{Start: 1, End: 4}
	require.Equal(t, 3, tok.Len())
	require.False(t, tok.Empty())
	require.Equal(t, "bcd", tok.Text("abcdef"))

	empty := Token{Start: 2, End: 2}
	require.True(t, empty.Empty())
	require.Equal(t, 0, empty.Len())
}
