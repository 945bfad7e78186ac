package tmcore

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Trace lines are a stable wire format for snapshot tests (spec §6); this
// pins the literal strings the engine is allowed to emit.
func TestParseLineTraceLines(t *testing.T) {
	g := compileTestGrammar(t, GrammarJSON{
		ScopeName: "source.test",
		Patterns: []RuleJSON{
			{Name: "k", Match: "foo"},
		},
	})

	var buf bytes.Buffer
	_, _, err := ParseLine(g, NewStack(g.Root), "xfoox", WriterTracer{Out: &buf})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "match plans, position 0")
	require.Contains(t, out, "match!: match:foo")
	require.Contains(t, out, "push state")
	require.Contains(t, out, "no match, end line")

	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		require.NotEmpty(t, line)
	}
}

func TestParseLineNoTracerIsSilentAndCheap(t *testing.T) {
	g := compileTestGrammar(t, GrammarJSON{
		ScopeName: "source.test",
		Patterns:  []RuleJSON{{Name: "k", Match: "foo"}},
	})
	_, tokens, err := ParseLine(g, NewStack(g.Root), "xfoox", nil)
	require.NoError(t, err)
	require.Len(t, tokens, 3)
}
