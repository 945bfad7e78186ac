package tmcore

import (
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/scopegraph/tmcore/regexp"
)

// invalidScalar is substituted for a back-reference whose captured group
// did not participate in the begin match. U+FFFF is not valid in
// well-formed UTF-8 source text, so the resulting pattern can never match
// (spec §4.7, §8 "Invalid-scalar sentinel").
const invalidScalar = "￿"

// EndPattern is a range rule's `end` regex, possibly containing \N
// back-references into the paired `begin` match. If it has none, it is
// compiled once at grammar-build time; otherwise compilation is deferred
// to each push, once a concrete begin Match is available (§4.7).
type EndPattern struct {
	Source     string
	HasBackref bool
	compiled   *regexp.Regexp // set iff !HasBackref
}

// newEndPattern records the end pattern's source and, when it carries no
// back-references, compiles it immediately.
func newEndPattern(source string) (*EndPattern, error) {
	e := &EndPattern{Source: source, HasBackref: containsBackref(source)}
	if !e.HasBackref {
		compiled, err := regexp.Compile(source, 0)
		if err != nil {
			return nil, err
		}
		e.compiled = compiled
	}
	return e, nil
}

// containsBackref reports whether source has any `\` followed by one or
// more decimal digits.
func containsBackref(source string) bool {
	for i := 0; i < len(source); i++ {
		if source[i] != '\\' {
			continue
		}
		j := i + 1
		for j < len(source) && source[j] >= '0' && source[j] <= '9' {
			j++
		}
		if j > i+1 {
			return true
		}
	}
	return false
}

// Resolve produces the concrete regex to search for this range rule's end,
// given the begin match it was paired with. When the source has no
// back-references the compiled pattern from grammar-build time is reused
// unchanged — same object both times, so identity-based pattern-equality
// checks (if a caller makes them) hold (spec §4.7, §9 "Regex-pattern
// identity").
func (e *EndPattern) Resolve(text string, begin *regexp.Match) (*regexp.Regexp, error) {
	if !e.HasBackref {
		return e.compiled, nil
	}
	resolved, identical := resolveBackrefs(e.Source, text, begin)
	if identical {
		// can't happen when HasBackref is true, but keep identity semantics
		// explicit rather than relying on the impossible branch.
		return regexp.Compile(e.Source, 0)
	}
	compiled, err := regexp.Compile(resolved, 0)
	if err != nil {
		return nil, errors.WithMessagef(err, "compiling resolved end pattern %q", resolved)
	}
	return compiled, nil
}

// resolveBackrefs scans source for \N and substitutes the N-th capture's
// literal text from begin (matched against text), or invalidScalar when
// that capture didn't participate. Returns the original string unchanged
// (identical=true) when source has no back-references at all, preserving
// object-identity-friendly semantics for callers that compare before/after.
func resolveBackrefs(source string, text string, begin *regexp.Match) (resolved string, identical bool) {
	if !containsBackref(source) {
		return source, true
	}

	var b strings.Builder
	b.Grow(len(source))
	i := 0
	for i < len(source) {
		c := source[i]
		if c != '\\' {
			b.WriteByte(c)
			i++
			continue
		}
		j := i + 1
		for j < len(source) && source[j] >= '0' && source[j] <= '9' {
			j++
		}
		if j == i+1 {
			// lone backslash, or backslash followed by a non-digit: copy verbatim
			b.WriteByte(c)
			i++
			continue
		}
		n, _ := strconv.Atoi(source[i+1 : j])
		if rng := begin.Group(n); rng != nil {
			b.WriteString(rng.Text(text))
		} else {
			b.WriteString(invalidScalar)
		}
		i = j
	}
	return b.String(), false
}
