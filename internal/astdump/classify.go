// Package astdump parses the textual tree printed by clang's -ast-dump into
// record catalogs.
//
// The dump encodes nesting only through its branch decoration: every level
// contributes two characters ("| " or "  ") before a "|-" or "`-" marker. The
// parser derives each line's depth from that prefix, keeps the path of open
// ancestor lines, and attaches members to the record opened most recently.
// It makes a single forward pass with no lookahead.
package astdump

import (
	"regexp"
)

// Kind is the declaration category of a classified line.
type Kind int

const (
	KindOther Kind = iota
	KindRecord
	KindField
	KindMethod
	KindAccess
)

func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindField:
		return "field"
	case KindMethod:
		return "method"
	case KindAccess:
		return "access"
	default:
		return "other"
	}
}

var keywordKinds = map[string]Kind{
	"CXXRecordDecl":      KindRecord,
	"RecordDecl":         KindRecord,
	"FieldDecl":          KindField,
	"CXXMethodDecl":      KindMethod,
	"CXXConstructorDecl": KindMethod,
	"CXXDestructorDecl":  KindMethod,
	"CXXConversionDecl":  KindMethod,
	"public":             KindAccess,
	"private":            KindAccess,
	"protected":          KindAccess,
	"virtual":            KindAccess,
}

// branchRe matches the decoration prefix, the branch marker and the keyword.
// The prefix is lazy so the first marker on the line wins.
var branchRe = regexp.MustCompile("^([|` -]*?)([|`]-)([A-Za-z]+)")

// Line is the classification of one dump line.
type Line struct {
	Depth   int
	Keyword string
	Kind    Kind

	// Rest is the text following the keyword.
	Rest string

	// Malformed reports an odd-length decoration. Depth is still usable but
	// was rounded down.
	Malformed bool
}

// Classify determines the depth and keyword of a dump line. It returns false
// when the line does not start with branch decoration followed by a keyword.
func Classify(text string) (Line, bool) {
	m := branchRe.FindStringSubmatchIndex(text)
	if m == nil {
		return Line{}, false
	}

	end := m[1]
	keyword := text[m[6]:m[7]]
	decoration := end - len(keyword)

	kind, ok := keywordKinds[keyword]
	if !ok {
		kind = KindOther
	}

	return Line{
		Depth:     decoration / 2,
		Keyword:   keyword,
		Kind:      kind,
		Rest:      text[end:],
		Malformed: decoration%2 != 0,
	}, true
}
