package tmcore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scopegraph/tmcore/regexp"
)

// spec §4.1: the frame's own end pattern, if any, is always first.
func TestCollectPlansEndPatternFirst(t *testing.T) {
	end, err := regexp.Compile(`;`, 0)
	require.NoError(t, err)

	g := compileTestGrammar(t, GrammarJSON{
		ScopeName: "source.test",
		Patterns:  []RuleJSON{{Match: "a"}},
	})
	frame := &Frame{EndPattern: end, Patterns: g.Root.Patterns}

	plans := CollectPlans(g, frame)
	require.Len(t, plans, 2)
	require.Equal(t, PlanEndPattern, plans[0].Kind)
	require.Equal(t, PlanMatchRule, plans[1].Kind)
}

// spec §4.1: a group scope rule (no begin/end) is inlined — its own
// patterns contribute plans directly, it never yields a plan itself.
func TestCollectPlansInlinesGroupRules(t *testing.T) {
	g := compileTestGrammar(t, GrammarJSON{
		ScopeName: "source.test",
		Patterns: []RuleJSON{
			{Name: "group", Patterns: []RuleJSON{
				{Match: "a"},
				{Match: "b"},
			}},
		},
	})

	frame := &Frame{Patterns: g.Root.Patterns}
	plans := CollectPlans(g, frame)
	require.Len(t, plans, 2)
	require.Equal(t, PlanMatchRule, plans[0].Kind)
	require.Equal(t, PlanMatchRule, plans[1].Kind)
}

func TestCollectPlansBeginRuleYieldsBeginPlan(t *testing.T) {
	g := compileTestGrammar(t, GrammarJSON{
		ScopeName: "source.test",
		Patterns: []RuleJSON{
			{Name: "s", Begin: `"`, End: `"`},
		},
	})

	frame := &Frame{Patterns: g.Root.Patterns}
	plans := CollectPlans(g, frame)
	require.Len(t, plans, 1)
	require.Equal(t, PlanBeginRule, plans[0].Kind)
	require.Equal(t, `"`, plans[0].Pattern.Source())
}
