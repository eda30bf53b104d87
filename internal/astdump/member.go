package astdump

import (
	"slices"
	"strings"
)

// attributeWords are the node flags clang prints between the source location
// and a declaration's name.
var attributeWords = map[string]bool{
	"implicit":   true,
	"referenced": true,
	"used":       true,
	"invalid":    true,
	"constexpr":  true,
	"consteval":  true,
	"imported":   true,
	"hidden":     true,
}

// member is the name, quoted type and flags of a field or method line.
type member struct {
	name  string
	typ   string
	flags []string
}

func (m member) has(flag string) bool {
	return slices.Contains(m.flags, flag)
}

// parseMember splits the text after a FieldDecl or method keyword. The type is
// the first quoted string. The name is the last token before it, or the whole
// "operator <type>" tail for operators. An unnamed member (an anonymous union,
// a padding bit-field) has an empty name.
func parseMember(rest string) (member, bool) {
	open := strings.IndexByte(rest, '\'')
	if open < 0 {
		return member{}, false
	}
	closing := strings.IndexByte(rest[open+1:], '\'')
	if closing < 0 {
		return member{}, false
	}
	m := member{typ: rest[open+1 : open+1+closing]}

	toks := strings.Fields(rest[:open])
	for i, tok := range toks {
		if strings.HasPrefix(tok, "operator") {
			m.name = strings.Join(toks[i:], " ")
			m.flags = toks[:i]
			return m, true
		}
	}
	if n := len(toks); n > 0 && !isAttribute(toks[n-1]) {
		m.name = toks[n-1]
		toks = toks[:n-1]
	}
	m.flags = toks
	return m, true
}

// isAttribute reports whether tok is a node address, a source location or a
// flag word rather than a declaration name.
func isAttribute(tok string) bool {
	switch {
	case attributeWords[tok]:
		return true
	case strings.HasPrefix(tok, "0x"),
		strings.HasPrefix(tok, "col:"),
		strings.HasPrefix(tok, "line:"),
		strings.ContainsAny(tok, "<>"):
		return true
	}
	return false
}
