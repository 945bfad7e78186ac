package tmcore

import (
	"strings"

	"github.com/scopegraph/tmcore/regexp"
)

// PlanKind tags which variant of the per-iteration match planner's output
// a MatchPlan holds (spec §4.1).
type PlanKind int

const (
	PlanEndPattern PlanKind = iota
	PlanMatchRule
	PlanBeginRule
)

// MatchPlan is one candidate regex for the engine's next search, tagged
// with the rule it came from (nil for PlanEndPattern, whose owning rule is
// the current frame's Phase.Rule).
type MatchPlan struct {
	Kind    PlanKind
	Rule    *Rule
	Pattern *regexp.Regexp
}

// CollectPlans enumerates the candidate regexes for frame's next search,
// in priority order: the frame's own end pattern first (if any), then
// each of its patterns expanded depth-first (spec §4.1). Order is
// significant only as a tie-break among equally-leftmost matches.
func CollectPlans(g *Grammar, frame *Frame) []MatchPlan {
	var plans []MatchPlan
	if frame.EndPattern != nil {
		plans = append(plans, MatchPlan{Kind: PlanEndPattern, Pattern: frame.EndPattern})
	}
	seen := make(map[*Rule]bool)
	for _, r := range frame.Patterns {
		plans = collectRulePlans(g, r, plans, seen)
	}
	return plans
}

// collectRulePlans expands r depth-first. seen guards against include
// cycles (a repository item that, directly or through other includes,
// refers back to itself); rules are interned by identity at compile time
// so pointer identity is enough to detect a revisit.
func collectRulePlans(g *Grammar, r *Rule, plans []MatchPlan, seen map[*Rule]bool) []MatchPlan {
	if r.Kind == RuleKindInclude {
		resolved, ok := resolveInclude(g, r.Includes)
		if !ok || seen[resolved] {
			return plans
		}
		seen[resolved] = true
		return collectRulePlans(g, resolved, plans, seen)
	}

	switch r.Kind {

	case RuleKindMatch:
		return append(plans, MatchPlan{Kind: PlanMatchRule, Rule: r, Pattern: r.Match})

	case RuleKindScope:
		if r.HasBeginEnd() {
			return append(plans, MatchPlan{Kind: PlanBeginRule, Rule: r, Pattern: r.Begin})
		}
		for _, child := range r.Patterns {
			plans = collectRulePlans(g, child, plans, seen)
		}
		return plans

	default:
		return plans
	}
}

// resolveInclude resolves a symbolic include reference against g. Includes
// form a graph that may be cyclic (a repository item including a context
// that includes itself); this performs a single lookup and never follows a
// chain of includes itself. Cycles are cut by collectRulePlans' seen set,
// which skips any resolved rule already expanded. An unresolved reference
// contributes no plans (tolerated, per spec §7).
func resolveInclude(g *Grammar, ref string) (*Rule, bool) {
	switch {
	case ref == "":
		return nil, false
	case ref == "$self":
		return g.Root, true
	case ref[0] == '#':
		rule, ok := g.Repository[ref[1:]]
		return rule, ok
	case strings.HasPrefix(ref, "source."):
		if g.Externals == nil {
			return nil, false
		}
		other, err := g.Externals(ref)
		if err != nil || other == nil {
			return nil, false
		}
		return other.Root, true
	default:
		return nil, false
	}
}
