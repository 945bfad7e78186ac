package tmcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapperIterChangesOnly(t *testing.T) {
	m := NewMapper(6)
	m.Add(Token{Start: 0, End: 3, ScopePath: []string{"a"}})
	m.Add(Token{Start: 3, End: 6, ScopePath: []string{"b"}})

	var positions []int
	for pos, toks := range m.Iter() {
		positions = append(positions, pos)
		if pos < 3 {
			require.Len(t, toks, 1)
			require.Equal(t, []string{"a"}, toks[0].ScopePath)
		} else {
			require.Len(t, toks, 1)
			require.Equal(t, []string{"b"}, toks[0].ScopePath)
		}
	}
	require.Equal(t, []int{0, 3}, positions)
}

func TestMapperIterEmpty(t *testing.T) {
	m := NewMapper(3)
	var calls int
	for range m.Iter() {
		calls++
	}
	require.Equal(t, 0, calls, "all-empty positions never differ from the initial empty set, so nothing is yielded")
}
