// Package tmcore tokenizes source lines against a TextMate grammar,
// producing scope-annotated tokens for syntax highlighting.
//
// Workflow:
//  1. Decode a GrammarJSON (or legacy plist) into the Rule tree (CompileGrammar).
//  2. Feed lines one at a time through ParseLine, threading the returned
//     Stack from one line into the next.
package tmcore

import (
	"encoding/json"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gitlab.com/tozd/go/errors"

	"github.com/scopegraph/tmcore/regexp"
)

var (
	ErrScopeName     = errors.New("unexpected `scopeName`")
	ErrMalformedRule = errors.New("malformed rule")
	ErrFormatVersion = errors.New("unsupported grammar formatVersion")
)

// GrammarExtension is the expected extension for grammar files (stripped
// from a file name to derive the scope name it should declare).
var GrammarExtension = ".tmLanguage.json"

// SupportedFormatRange is the range of GrammarJSON.FormatVersion values this
// package knows how to compile. Grammars predating the field (the common
// case) simply don't set it and aren't checked.
var SupportedFormatRange = func() *semver.Constraints {
	c, err := semver.NewConstraint(">= 1.0.0, < 2.0.0")
	if err != nil {
		panic(err)
	}
	return c
}()

// RuleKind tags which variant of the polymorphic Rule a value holds.
type RuleKind int

const (
	RuleKindMatch RuleKind = iota
	RuleKindScope
	RuleKindInclude
)

// CaptureAttribute is the compiled form of one entry in a captures map:
// an optional scope name and optional nested patterns, applied to a
// sub-range of a match when that capture group is reached.
type CaptureAttribute struct {
	ScopeName string
	Patterns  []*Rule
}

// Rule is the compiled, executable rule tree (spec §3's "Rule" variant).
// Exactly one of the three shapes applies, selected by Kind:
//
//   - RuleKindMatch: Match is set; ScopeName/Captures optional.
//   - RuleKindScope: either (Begin and End both set — a "range rule") or
//     (neither set — a "group rule" whose Patterns are inlined by the
//     planner). ContentName only applies to range rules.
//   - RuleKindInclude: Includes names a symbolic reference ("#name",
//     "$self", or "source.xyz") resolved against a Grammar.
type Rule struct {
	Kind RuleKind

	ScopeName string

	// match rule
	Match    *regexp.Regexp
	Captures []*CaptureAttribute

	// scope rule
	ContentName   string
	Begin         *regexp.Regexp
	End           *EndPattern
	BeginCaptures []*CaptureAttribute
	EndCaptures   []*CaptureAttribute
	Patterns      []*Rule

	// include rule
	Includes string
}

// HasBeginEnd reports whether a RuleKindScope rule is a range rule.
func (r *Rule) HasBeginEnd() bool {
	return r.Kind == RuleKindScope && r.Begin != nil
}

// Grammar is a compiled grammar: precompiled top-level regexes and an
// executable rule tree, ready to drive ParseLine.
type Grammar struct {
	Directory     string
	ScopeName     string
	FileTypes     []string
	FormatVersion string
	FoldingStart  *regexp.Regexp
	FoldingEnd    *regexp.Regexp
	FirstLine     *regexp.Regexp
	Repository    map[string]*Rule
	Root          *Rule

	// Externals resolves a "source.<name>" include to another compiled
	// Grammar. Nil means such includes are always unresolved (tolerated
	// per spec §7 — they silently contribute no plans). A Loader wires
	// this to its own registry.
	Externals func(scopeName string) (*Grammar, error)
}

// GrammarJSON mirrors the (subset of) TextMate JSON/plist grammar on disk.
// It is decoded as-is and later compiled into a Grammar.
type GrammarJSON struct {
	ScopeName     string              `json:"scopeName" plist:"scopeName"`
	FileTypes     []string            `json:"fileTypes" plist:"fileTypes"`
	FoldingStart  string              `json:"foldingStartMarker" plist:"foldingStartMarker"`
	FoldingEnd    string              `json:"foldingStopMarker" plist:"foldingStopMarker"`
	FirstLine     string              `json:"firstLineMatch" plist:"firstLineMatch"`
	FormatVersion string              `json:"formatVersion" plist:"formatVersion"`
	Repository    map[string]RuleJSON `json:"repository" plist:"repository"`
	Patterns      []RuleJSON          `json:"patterns" plist:"patterns"`
}

// RuleJSON is a raw grammar rule as found in the JSON/plist file. Capture
// groups are addressed by string indices "1", "2", ...
type RuleJSON struct {
	Name          string              `json:"name" plist:"name"`
	ContentName   string              `json:"contentName" plist:"contentName"`
	Match         string              `json:"match" plist:"match"`
	Begin         string              `json:"begin" plist:"begin"`
	End           string              `json:"end" plist:"end"`
	Patterns      []RuleJSON          `json:"patterns" plist:"patterns"`
	Captures      map[string]RuleJSON `json:"captures" plist:"captures"`
	BeginCaptures map[string]RuleJSON `json:"beginCaptures" plist:"beginCaptures"`
	EndCaptures   map[string]RuleJSON `json:"endCaptures" plist:"endCaptures"`
	Include       string              `json:"include" plist:"include"`
}

// LoadGrammar reads a *.tmLanguage.json, validates scopeName against the
// filename, and compiles it.
func LoadGrammar(pathname string) (*Grammar, error) {
	content, err := os.ReadFile(pathname)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading grammar %s", pathname)
	}
	var encoded GrammarJSON
	if err := json.Unmarshal(content, &encoded); err != nil {
		return nil, errors.WithMessagef(err, "decoding grammar %s", pathname)
	}
	return CompileGrammar(encoded, path.Dir(pathname), path.Base(pathname))
}

// CompileGrammar compiles a decoded GrammarJSON into an executable Grammar.
// dirname is recorded as Grammar.Directory ("." when empty); "source.*"
// includes are resolved only through Grammar.Externals, which the caller
// wires separately, and this function never touches the filesystem.
// filename, if non-empty, strictly validates j.ScopeName against
// "source.<basename>".
func CompileGrammar(j GrammarJSON, dirname string, filename string) (*Grammar, error) {
	if filename != "" {
		filesource := path.Base(filename)
		filesource, _ = strings.CutSuffix(filesource, GrammarExtension)
		jsonsource, _ := strings.CutPrefix(j.ScopeName, "source.")
		if jsonsource != filesource {
			return nil, errors.Errorf("%w: expected 'source.%s', got '%s'", ErrScopeName, filesource, j.ScopeName)
		}
	}

	if j.FormatVersion != "" {
		if v, err := semver.NewVersion(j.FormatVersion); err != nil {
			return nil, errors.WithMessagef(ErrFormatVersion, "parsing formatVersion %q: %v", j.FormatVersion, err)
		} else if !SupportedFormatRange.Check(v) {
			logGrammarFormatMismatch(j.ScopeName, j.FormatVersion)
		}
	}

	if dirname == "" {
		dirname = "."
	}
	res := &Grammar{
		Directory:     dirname,
		ScopeName:     j.ScopeName,
		FileTypes:     j.FileTypes,
		FormatVersion: j.FormatVersion,
	}
	if j.FoldingStart != "" {
		expr, err := regexp.Compile(j.FoldingStart, 0)
		if err != nil {
			return nil, errors.WithMessage(err, "compiling foldingStartMarker")
		}
		res.FoldingStart = expr
	}
	if j.FoldingEnd != "" {
		expr, err := regexp.Compile(j.FoldingEnd, 0)
		if err != nil {
			return nil, errors.WithMessage(err, "compiling foldingStopMarker")
		}
		res.FoldingEnd = expr
	}
	if j.FirstLine != "" {
		expr, err := regexp.Compile(j.FirstLine, 0)
		if err != nil {
			return nil, errors.WithMessage(err, "compiling firstLineMatch")
		}
		res.FirstLine = expr
	}

	res.Repository = make(map[string]*Rule, len(j.Repository))
	for name, jp := range j.Repository {
		rule, err := compileRule(jp)
		if err != nil {
			return nil, errors.WithMessagef(err, "compiling repository item %q", name)
		}
		res.Repository[name] = rule
	}

	rootPatterns := make([]*Rule, len(j.Patterns))
	for i, jp := range j.Patterns {
		rule, err := compileRule(jp)
		if err != nil {
			return nil, errors.WithMessagef(err, "compiling pattern %d", i)
		}
		rootPatterns[i] = rule
	}
	res.Root = &Rule{Kind: RuleKindScope, ScopeName: j.ScopeName, Patterns: rootPatterns}

	return res, nil
}

// compileCaptures converts string-indexed captures ("1", "2", ...) to a
// slice sized 0..maxIndex, leaving missing indices as nil.
func compileCaptures(j map[string]RuleJSON) ([]*CaptureAttribute, error) {
	if len(j) == 0 {
		return nil, nil
	}

	maxcaptures := 0
	for num := range j {
		i, err := strconv.Atoi(num)
		if err != nil {
			return nil, errors.WithMessagef(ErrMalformedRule, "capture index %q: %v", num, err)
		}
		if i > maxcaptures {
			maxcaptures = i
		}
	}

	res := make([]*CaptureAttribute, maxcaptures+1)
	for num, jp := range j {
		i, _ := strconv.Atoi(num) // already validated above

		capture := &CaptureAttribute{ScopeName: jp.Name}
		for _, childJSON := range jp.Patterns {
			child, err := compileRule(childJSON)
			if err != nil {
				return nil, err
			}
			capture.Patterns = append(capture.Patterns, child)
		}
		res[i] = capture
	}
	return res, nil
}

// compileRule compiles a single RuleJSON into a Rule. Case order follows
// TextMate convention: include, match, begin/end, group.
func compileRule(j RuleJSON) (*Rule, error) {
	switch {
	case j.Include != "":
		return &Rule{Kind: RuleKindInclude, Includes: j.Include}, nil

	case j.Match != "":
		match, err := regexp.Compile(j.Match, 0)
		if err != nil {
			return nil, errors.WithMessagef(err, "compiling match %q", j.Match)
		}
		captures, err := compileCaptures(j.Captures)
		if err != nil {
			return nil, err
		}
		return &Rule{
			Kind:      RuleKindMatch,
			ScopeName: j.Name,
			Match:     match,
			Captures:  captures,
		}, nil

	case j.Begin != "" && j.End != "":
		begin, err := regexp.Compile(j.Begin, 0)
		if err != nil {
			return nil, errors.WithMessagef(err, "compiling begin %q", j.Begin)
		}
		end, err := newEndPattern(j.End)
		if err != nil {
			return nil, errors.WithMessagef(err, "compiling end %q", j.End)
		}

		var beginCaptures, endCaptures []*CaptureAttribute
		if len(j.Captures) > 0 {
			shared, err := compileCaptures(j.Captures)
			if err != nil {
				return nil, err
			}
			beginCaptures, endCaptures = shared, shared
		} else {
			beginCaptures, err = compileCaptures(j.BeginCaptures)
			if err != nil {
				return nil, err
			}
			endCaptures, err = compileCaptures(j.EndCaptures)
			if err != nil {
				return nil, err
			}
		}

		patterns := make([]*Rule, len(j.Patterns))
		for i, jp := range j.Patterns {
			rule, err := compileRule(jp)
			if err != nil {
				return nil, err
			}
			patterns[i] = rule
		}

		return &Rule{
			Kind:          RuleKindScope,
			ScopeName:     j.Name,
			ContentName:   j.ContentName,
			Begin:         begin,
			End:           end,
			BeginCaptures: beginCaptures,
			EndCaptures:   endCaptures,
			Patterns:      patterns,
		}, nil

	case j.Begin != "" || j.End != "":
		return nil, errors.WithMessage(ErrMalformedRule, "begin or end present without the other")

	default:
		patterns := make([]*Rule, len(j.Patterns))
		for i, jp := range j.Patterns {
			rule, err := compileRule(jp)
			if err != nil {
				return nil, err
			}
			patterns[i] = rule
		}
		return &Rule{Kind: RuleKindScope, ScopeName: j.Name, Patterns: patterns}, nil
	}
}
