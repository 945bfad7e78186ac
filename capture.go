package tmcore

import "github.com/scopegraph/tmcore/regexp"

// CaptureAnchor is a deferred sub-scoping point inside a match: a range
// plus the attribute (scope name / nested patterns) to apply once the
// parser's position reaches it, plus any anchors nested inside it (spec
// §3 "Capture anchor").
type CaptureAnchor struct {
	Attribute *CaptureAttribute
	Range     regexp.Range
	Children  []*CaptureAnchor
}

// buildCaptureAnchors builds the anchor tree for one match against a
// captures map, returning the top-level (sibling, non-overlapping)
// anchors. Nesting is derived from range containment — a capture group
// whose range sits inside an earlier group's range becomes a descendant —
// rather than from capture index order, since indices only reflect the
// order of opening parens, not which later groups enclose which.
//
// Capture indices with no entry in the captures map still participate in
// the containment search (they may be ancestors of a deeper, scoped
// capture) but never produce an anchor node of their own.
func buildCaptureAnchors(match *regexp.Match, captures []*CaptureAttribute) []*CaptureAnchor {
	if match == nil || len(captures) == 0 {
		return nil
	}
	n := match.NumGroups()
	if n > len(captures) {
		n = len(captures)
	}

	parent := make([]int, n)
	nodes := make([]*CaptureAnchor, n)
	var roots []*CaptureAnchor

	for i := 0; i < n; i++ {
		rng := match.Group(i)
		parent[i] = -1
		if rng == nil || rng.Empty() {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			pr := match.Group(j)
			if pr != nil && pr.Start <= rng.Start && rng.End <= pr.End {
				parent[i] = j
				break
			}
		}

		var attr *CaptureAttribute
		if i < len(captures) {
			attr = captures[i]
		}
		if attr == nil {
			continue
		}

		node := &CaptureAnchor{Attribute: attr, Range: *rng}
		nodes[i] = node

		p := parent[i]
		for p >= 0 && nodes[p] == nil {
			p = parent[p]
		}
		if p < 0 {
			roots = append(roots, node)
		} else {
			nodes[p].Children = append(nodes[p].Children, node)
		}
	}

	return roots
}
