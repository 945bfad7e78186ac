package tmcore

import (
	"gitlab.com/tozd/go/errors"

	"github.com/scopegraph/tmcore/regexp"
)

var (
	// ErrGrammarIntegrity marks a violation of the parser-state invariants
	// that only a malformed grammar can trigger (e.g. a contentName pop
	// mismatch, or a pop on a frame without an owning scope rule).
	ErrGrammarIntegrity = errors.New("grammar integrity violation")
	// ErrEngineStuck marks a line parse that exceeded the iteration safety
	// net without the position advancing past end of line.
	ErrEngineStuck = errors.New("line parser made no progress")
)

// maxIterations bounds a single ParseLine call. Well-formed grammars never
// come close to this; it only guards against a grammar whose rules are
// constructed so that a frame pushes and immediately pops on a zero-width
// match forever (the same "always guarantee progress" concern the simpler
// one-rule-at-a-time matchers in this space solve by emitting a filler
// token — here the position genuinely never moves, so the only safe
// response is to give up with an error rather than spin).
const maxIterations = 200000

type searchEndKind int

const (
	searchEndAnchor searchEndKind = iota
	searchEndPosition
	searchEndLine
)

// ParseLine runs the per-line engine (spec §4.4) over one line, starting
// from stack (the state at end of the previous line, or NewStack(grammar.Root)
// for the first line), returning the updated stack and the tokens covering
// the line in left-to-right order. tracer may be nil.
func ParseLine(g *Grammar, stack Stack, line string, tracer Tracer) (Stack, []Token, error) {
	lineEnd := len(line)
	position := 0
	var tokens []Token

	for iterations := 0; ; iterations++ {
		if iterations >= maxIterations {
			return stack, tokens, errors.Errorf("%w: exceeded %d iterations at byte %d", ErrEngineStuck, maxIterations, position)
		}

		frame := stack.Top()

		frame.CaptureAnchors = dropEndedAnchors(frame.CaptureAnchors, position)

		plans := CollectPlans(g, frame)
		searchEnd, kind, anchor := computeSearchEnd(frame, position, lineEnd)

		tracePlans(tracer, position, plans)

		match, plan, err := searchLeftmost(line, position, searchEnd, plans)
		if err != nil {
			return stack, tokens, err
		}

		if match == nil {
			traceNoMatch(tracer)
			if t := emitToken(frame, position, searchEnd); t != nil {
				tokens = append(tokens, *t)
			}

			switch kind {
			case searchEndAnchor:
				stack = processHitAnchor(stack, anchor)
				tracePushAnchor(tracer)
			case searchEndPosition:
				if frame.Phase.Kind == PhasePushContent {
					enterContent(frame, stack)
					traceContentName(tracer)
				} else {
					stack = stack.Pop()
					tracePop(tracer, frame.Phase.Kind == PhasePop)
				}
			case searchEndLine:
				if len(frame.CaptureAnchors) != 0 {
					Log.Warn().Int("position", position).Msg("pending capture anchors at end of line, dropping")
					frame.CaptureAnchors = nil
				}
				return stack, tokens, nil
			}

			position = searchEnd
			continue
		}

		traceMatch(tracer, plan)
		rng := match.Range0()
		if t := emitToken(frame, position, rng.Start); t != nil {
			tokens = append(tokens, *t)
		}
		position = rng.Start

		switch plan.Kind {
		case PlanMatchRule:
			stack = applyMatchRule(stack, plan.Rule, match)
			tracePush(tracer)

		case PlanBeginRule:
			next, err := applyBeginRule(stack, plan.Rule, match, line)
			if err != nil {
				return stack, tokens, err
			}
			stack = next
			tracePush(tracer)

		case PlanEndPattern:
			if err := applyEndPattern(stack, match); err != nil {
				return stack, tokens, err
			}
		}
	}
}

// emitToken builds the token for [start, end) under frame's current scope
// path, or nil for an empty range (spec §4.5 — zero-width ranges never
// produce a token, even under an empty scope path).
func emitToken(frame *Frame, start, end int) *Token {
	if end <= start {
		return nil
	}
	path := append([]string(nil), frame.ScopePath...)
	return &Token{Start: start, End: end, ScopePath: path}
}

// dropEndedAnchors filters out anchors whose range has already been fully
// passed (spec §4.4 step 2). Filters in place; the backing array is reused.
func dropEndedAnchors(anchors []*CaptureAnchor, position int) []*CaptureAnchor {
	if len(anchors) == 0 {
		return anchors
	}
	out := anchors[:0]
	for _, a := range anchors {
		if a.Range.End > position {
			out = append(out, a)
		}
	}
	return out
}

// computeSearchEnd picks the search window's upper bound in the precedence
// order of spec §4.2: the earliest still-pending capture anchor at or past
// position, else the frame's own endPosition, else end of line. Anchors
// starting before position, or (when the frame is itself bounded) ending
// past the frame's own endPosition, are skipped — step 2 drops only
// anchors that have already ended, so one the position has moved into is
// left for this check.
func computeSearchEnd(frame *Frame, position, lineEnd int) (int, searchEndKind, *CaptureAnchor) {
	var best *CaptureAnchor
	for _, a := range frame.CaptureAnchors {
		if a.Range.Start < position {
			continue
		}
		if frame.HasEndPosition && a.Range.End > frame.EndPosition {
			continue
		}
		if best == nil || a.Range.Start < best.Range.Start {
			best = a
		}
	}
	if best != nil {
		return best.Range.Start, searchEndAnchor, best
	}
	if frame.HasEndPosition {
		return frame.EndPosition, searchEndPosition, nil
	}
	return lineEnd, searchEndLine, nil
}

// searchLeftmost runs every plan's pattern over [from, to) and returns the
// one with the smallest match start (spec §4.3). Ties go to the
// earlier-indexed plan because later candidates only ever replace the
// current best on a strictly smaller start.
func searchLeftmost(line string, from, to int, plans []MatchPlan) (*regexp.Match, MatchPlan, error) {
	var best *regexp.Match
	var bestPlan MatchPlan
	bestStart := -1

	for _, p := range plans {
		m, err := p.Pattern.Search(line, from, to, regexp.OptionNone)
		if err != nil {
			return nil, MatchPlan{}, errors.WithMessagef(err, "searching %s", describePlan(p))
		}
		if m == nil {
			continue
		}
		start := m.Range0().Start
		if best == nil || start < bestStart {
			best, bestPlan, bestStart = m, p, start
		}
	}
	return best, bestPlan, nil
}

// processHitAnchor pushes the frame for a capture anchor the position has
// just reached (spec §4.6).
func processHitAnchor(stack Stack, anchor *CaptureAnchor) Stack {
	top := stack.Top()
	var scopeName string
	var patterns []*Rule
	if anchor.Attribute != nil {
		scopeName = anchor.Attribute.ScopeName
		patterns = anchor.Attribute.Patterns
	}
	frame := &Frame{
		Patterns:       patterns,
		CaptureAnchors: anchor.Children,
		ScopePath:      appendScope(top.ScopePath, scopeName),
		HasEndPosition: true,
		EndPosition:    anchor.Range.End,
	}
	return stack.Push(frame)
}

// applyMatchRule pushes the frame representing a just-matched match rule's
// own text span (spec §4.4 "MatchRule").
func applyMatchRule(stack Stack, r *Rule, match *regexp.Match) Stack {
	top := stack.Top()
	rng := match.Range0()
	frame := &Frame{
		Patterns:       nil,
		CaptureAnchors: buildCaptureAnchors(match, r.Captures),
		ScopePath:      appendScope(top.ScopePath, r.ScopeName),
		HasEndPosition: true,
		EndPosition:    rng.End,
	}
	return stack.Push(frame)
}

// applyBeginRule pushes the frame covering a range rule's begin-match span,
// bounded to that match's own end (spec §4.4 "BeginRule", §4.7). The span
// is tokenized and drained exactly like a MatchRule's own frame; only once
// it is fully consumed does enterContent activate the rule's real patterns
// and end pattern (see state.go's PendingEndPattern doc).
func applyBeginRule(stack Stack, r *Rule, match *regexp.Match, line string) (Stack, error) {
	top := stack.Top()
	endPattern, err := r.End.Resolve(line, match)
	if err != nil {
		return stack, errors.WithMessagef(err, "resolving end pattern for %q", r.ScopeName)
	}
	rng := match.Range0()
	frame := &Frame{
		Phase:             Phase{Kind: PhasePushContent, Rule: r},
		CaptureAnchors:    buildCaptureAnchors(match, r.BeginCaptures),
		ScopePath:         appendScope(top.ScopePath, r.ScopeName),
		HasEndPosition:    true,
		EndPosition:       rng.End,
		PendingEndPattern: endPattern,
	}
	return stack.Push(frame), nil
}

// enterContent transitions a BeginRule frame from its begin-match span into
// its steady-state content: the rule's nested patterns and resolved end
// pattern become active, contentName (if any) is appended to the scope
// path, and the span bound is replaced by whatever bound the frame's parent
// imposes (if any), per the clamp invariant.
func enterContent(frame *Frame, stack Stack) {
	r := frame.Phase.Rule
	frame.ScopePath = appendScope(frame.ScopePath, r.ContentName)
	frame.Patterns = r.Patterns
	frame.EndPattern = frame.PendingEndPattern
	frame.PendingEndPattern = nil
	frame.HasEndPosition = false
	frame.Phase = Phase{Kind: PhaseContent, Rule: r}
	if len(stack) >= 2 {
		clampEndPosition(frame, stack[len(stack)-2])
	}
}

// applyEndPattern finalizes the current frame once its end pattern has
// matched (spec §4.4 "EndPattern"): closes out contentName and bounds the
// frame to the end match's own span, which is then tokenized and drained
// exactly like a MatchRule's frame (including any endCaptures anchors)
// before the generic endPosition no-match branch pops it for good.
func applyEndPattern(stack Stack, match *regexp.Match) error {
	frame := stack.Top()
	r := frame.Phase.Rule
	if r == nil {
		return errors.WithMessage(ErrGrammarIntegrity, "end pattern matched on a frame with no owning scope rule")
	}

	if r.ContentName != "" {
		n := len(frame.ScopePath)
		if n == 0 || frame.ScopePath[n-1] != r.ContentName {
			return errors.WithMessagef(ErrGrammarIntegrity, "contentName %q not on top of scope path at pop", r.ContentName)
		}
		frame.ScopePath = frame.ScopePath[:n-1]
	}

	rng := match.Range0()
	frame.CaptureAnchors = append(frame.CaptureAnchors, buildCaptureAnchors(match, r.EndCaptures)...)
	frame.EndPattern = nil
	frame.Patterns = nil
	if !frame.HasEndPosition || rng.End < frame.EndPosition {
		frame.HasEndPosition = true
		frame.EndPosition = rng.End
	}
	frame.Phase = Phase{Kind: PhasePop, Rule: r}
	return nil
}
