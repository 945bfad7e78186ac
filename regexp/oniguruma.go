// Package regexp implements a regular expression library using Oniguruma.
//
// Oniguruma is the engine TextMate grammars are written against: possessive
// quantifiers, \A/\G/\z anchors and lookaround all rely on it. This package
// exposes just enough of it for a scope-tree tokenizer: compiling a pattern
// and searching for the leftmost match inside a caller-supplied byte range.
package regexp

// #cgo pkg-config: oniguruma
// #include <oniguruma.h>
// #include <stdlib.h>
//
// int error_code_to_str(UChar* err_buf, int err_code, OnigErrorInfo* info) {
//     return info != NULL ? onig_error_code_to_str(err_buf, err_code, info) : onig_error_code_to_str(err_buf, err_code);
// }
import "C"
import (
	"errors"
	"fmt"
	"unsafe"
)

var (
	ErrRegexpSyntax = errors.New("syntax error")
)

// Regexp is a compiled Oniguruma pattern. The source text is kept around so
// callers (notably the engine's trace output) can report it.
type Regexp struct {
	c       C.OnigRegex
	pattern string
}

// Range is a half-open byte range into some text.
type Range struct {
	Start, End int
}

func (r Range) Len() int { return r.End - r.Start }

func (r Range) Empty() bool { return r.Start == r.End }

func (r Range) Text(str string) string { return str[r.Start:r.End] }

// Match is the result of a successful Search: the whole match is group 0,
// followed by numbered capture groups. A group that did not participate in
// the match (an unmatched alternative, an optional group not taken) is a
// nil *Range, distinct from a group that matched an empty string.
type Match struct {
	groups []*Range
}

// Group returns the i-th capture (0 is the whole match), or nil if the
// group didn't participate or the index is out of range.
func (m *Match) Group(i int) *Range {
	if m == nil || i < 0 || i >= len(m.groups) {
		return nil
	}
	return m.groups[i]
}

// NumGroups returns 1 + the highest capture index the pattern can produce.
func (m *Match) NumGroups() int {
	if m == nil {
		return 0
	}
	return len(m.groups)
}

// Range0 returns the whole-match range (group 0).
func (m *Match) Range0() Range {
	return *m.groups[0]
}

type Option C.OnigOptionType

const (
	OptionDefault                            Option = C.ONIG_OPTION_DEFAULT
	OptionNone                               Option = C.ONIG_OPTION_NONE
	OptionIgnorecase                         Option = C.ONIG_OPTION_IGNORECASE
	OptionExtend                             Option = C.ONIG_OPTION_EXTEND
	OptionMultiline                          Option = C.ONIG_OPTION_MULTILINE
	OptionSingleline                         Option = C.ONIG_OPTION_SINGLELINE
	OptionFindLongest                        Option = C.ONIG_OPTION_FIND_LONGEST
	OptionFindNotEmpty                       Option = C.ONIG_OPTION_FIND_NOT_EMPTY
	OptionNegateSingleline                   Option = C.ONIG_OPTION_NEGATE_SINGLELINE
	OptionDontCaptureGroup                   Option = C.ONIG_OPTION_DONT_CAPTURE_GROUP
	OptionCaptureGroup                       Option = C.ONIG_OPTION_CAPTURE_GROUP
	OptionNotBOL                             Option = C.ONIG_OPTION_NOTBOL
	OptionNotEOL                             Option = C.ONIG_OPTION_NOTEOL
	OptionPosixRegion                        Option = C.ONIG_OPTION_POSIX_REGION
	OptionCheckValidityOfString              Option = C.ONIG_OPTION_CHECK_VALIDITY_OF_STRING
	OptionIgnorecaseIsASCII                  Option = C.ONIG_OPTION_IGNORECASE_IS_ASCII
	OptionWordIsASCII                        Option = C.ONIG_OPTION_WORD_IS_ASCII
	OptionDigitIsASCII                       Option = C.ONIG_OPTION_DIGIT_IS_ASCII
	OptionSpaceIsASCII                       Option = C.ONIG_OPTION_SPACE_IS_ASCII
	OptionPosixIsASCII                       Option = C.ONIG_OPTION_POSIX_IS_ASCII
	OptionTextSegmentExtendedGraphemeCluster Option = C.ONIG_OPTION_TEXT_SEGMENT_EXTENDED_GRAPHEME_CLUSTER
	OptionTextSegmentWord                    Option = C.ONIG_OPTION_TEXT_SEGMENT_WORD
	OptionNotBeginString                     Option = C.ONIG_OPTION_NOT_BEGIN_STRING
	OptionNotEndString                       Option = C.ONIG_OPTION_NOT_END_STRING
	OptionNotBeginPosition                   Option = C.ONIG_OPTION_NOT_BEGIN_POSITION
	OptionCallbackEachMatch                  Option = C.ONIG_OPTION_CALLBACK_EACH_MATCH
	OptionMatchWholeString                   Option = C.ONIG_OPTION_MATCH_WHOLE_STRING
	OptionMaxbit                             Option = C.ONIG_OPTION_MAXBIT
)

var syntax = C.ONIG_SYNTAX_DEFAULT

// Compile compiles a pattern source into a reusable Regexp.
func Compile(pattern string, option Option) (*Regexp, error) {
	r := Regexp{pattern: pattern}
	bytes := []byte(pattern)
	if len(bytes) == 0 {
		return nil, fmt.Errorf("%w: empty pattern", ErrRegexpSyntax)
	}
	start := (*C.OnigUChar)(unsafe.Pointer(&bytes[0]))
	end := (*C.OnigUChar)(unsafe.Pointer(uintptr(unsafe.Pointer(&bytes[0])) + uintptr(len(bytes))))

	var errinfo C.OnigErrorInfo

	ret := C.onig_new(&r.c, start, end, C.OnigOptionType(option), C.ONIG_ENCODING_UTF8, syntax, &errinfo)
	if ret != C.ONIG_NORMAL {
		var errBuf [C.ONIG_MAX_ERROR_MESSAGE_LEN]C.char
		C.error_code_to_str((*C.OnigUChar)(unsafe.Pointer(&errBuf[0])), ret, &errinfo)
		return nil, fmt.Errorf("%w: %s", ErrRegexpSyntax, C.GoString(&errBuf[0]))
	}

	return &r, nil
}

func (re *Regexp) Free() {
	if re.c == nil {
		return
	}
	C.onig_free(re.c)
	re.c = nil
}

func (re *Regexp) String() string {
	return re.pattern
}

// Source returns the original pattern text this Regexp was compiled from.
func (re *Regexp) Source() string {
	return re.pattern
}

// Search finds the leftmost match of re with a start position in
// [from, to) of text. Unlike testing a single fixed position, this is a
// real scan: onig_search tries successive start offsets until one matches
// or the bound is exhausted. The match itself may extend past `to`
// (TextMate grammars bound where a match may *begin* via endPosition, not
// how far lookaround may peek); callers that need a hard extent bound
// intersect it themselves, same as the engine's endPosition clamp does.
func (re *Regexp) Search(text string, from int, to int, options Option) (*Match, error) {
	if len(text) == 0 || from > to {
		return nil, nil
	}
	raw := []byte(text)
	base := unsafe.Pointer(&raw[0])
	str := (*C.OnigUChar)(base)
	strEnd := (*C.OnigUChar)(unsafe.Pointer(uintptr(base) + uintptr(len(raw))))
	searchStart := (*C.OnigUChar)(unsafe.Pointer(uintptr(base) + uintptr(from)))
	searchRange := (*C.OnigUChar)(unsafe.Pointer(uintptr(base) + uintptr(to)))

	region := C.onig_region_new()
	defer C.onig_region_free(region, 1)

	ret := C.onig_search(re.c, str, strEnd, searchStart, searchRange, region, C.OnigOptionType(options))
	if ret == C.ONIG_MISMATCH {
		return nil, nil
	} else if ret < 0 {
		var errBuf [C.ONIG_MAX_ERROR_MESSAGE_LEN]C.char
		C.error_code_to_str((*C.OnigUChar)(unsafe.Pointer(&errBuf[0])), C.int(ret), nil)
		return nil, fmt.Errorf("%w: %s", ErrRegexpSyntax, errors.New(C.GoString(&errBuf[0])))
	}

	groups := make([]*Range, int(region.num_regs))
	for i := range groups {
		beg := *(*C.int)(unsafe.Pointer(uintptr(unsafe.Pointer(region.beg)) + uintptr(i)*unsafe.Sizeof(*region.beg)))
		end := *(*C.int)(unsafe.Pointer(uintptr(unsafe.Pointer(region.end)) + uintptr(i)*unsafe.Sizeof(*region.end)))
		if beg == -1 || end == -1 {
			continue
		}
		groups[i] = &Range{int(beg), int(end)}
	}

	return &Match{groups: groups}, nil
}
