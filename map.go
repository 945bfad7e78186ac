package tmcore

import (
	"iter"
	"slices"
)

// Mapper is a byte-offset → covering-token index, built from a line's
// token slice. Useful for renderers that only care which token is active
// at an arbitrary byte position rather than walking the token list.
type Mapper [][]Token

// NewMapper allocates a Mapper sized for a line of the given byte length.
func NewMapper(lineLen int) Mapper {
	return make(Mapper, lineLen)
}

// Add records tok at every byte position it covers.
// Note: O(tok.Len()); can be expensive for very long tokens.
func (tm Mapper) Add(tok Token) {
	for i := tok.Start; i < tok.End && i < len(tm); i++ {
		tm[i] = append(tm[i], tok)
	}
}

func sameToken(a, b Token) bool {
	return a.Start == b.Start && a.End == b.End && slices.Equal(a.ScopePath, b.ScopePath)
}

// Iter returns an iterator yielding (pos, tokens) whenever the set of
// tokens changes. Tokens at each position are stabilized via CompareToken
// for deterministic order.
func (tm Mapper) Iter() iter.Seq2[int, []Token] {
	return func(yield func(int, []Token) bool) {
		var prev []Token
		for i, cur := range tm {
			slices.SortFunc(cur, CompareToken)
			if !slices.EqualFunc(prev, cur, sameToken) {
				if !yield(i, cur) {
					return
				}
				prev = cur
			}
		}
	}
}
