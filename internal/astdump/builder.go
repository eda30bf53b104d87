package astdump

import (
	"regexp"

	"github.com/phobologic/astmap/internal/model"
)

var (
	recordRe = regexp.MustCompile(`\b(class|struct)\s+([A-Za-z_]\w*)\s+definition\b`)
	accessRe = regexp.MustCompile(`^(virtual\s+)?(?:(public|private|protected)\s+)?(virtual\s+)?'([^']+)'`)
	structRe = regexp.MustCompile(`\bstruct\b`)
)

func insideStruct(e Entry) bool {
	return structRe.MatchString(e.Text)
}

// build applies one classified line to the catalog. The path has already been
// updated with this line.
func (s *State) build(n int, text string, l Line) {
	switch l.Kind {
	case KindRecord:
		s.openRecord(n, l)
	case KindField:
		s.addField(n, text, l)
	case KindMethod:
		s.addMethod(n, text, l)
	case KindAccess:
		s.addBase(n, text, l)
	case KindOther:
	}
}

func (s *State) openRecord(n int, l Line) {
	m := recordRe.FindStringSubmatch(l.Rest)
	if m == nil {
		// Forward declarations and implicit self references.
		s.logger.Debug("record without definition", "line", n, "keyword", l.Keyword)
		return
	}
	switch m[1] {
	case "class":
		s.catalog.OpenClass(m[2])
	case "struct":
		s.catalog.OpenStruct(m[2])
	}
}

func (s *State) addField(n int, text string, l Line) {
	if !s.path.HasAncestor(insideStruct) {
		return
	}
	m, ok := parseMember(l.Rest)
	if !ok {
		s.diagnose(n, text, ErrMalformedField)
		return
	}
	st := s.catalog.LastStruct()
	if st == nil {
		s.diagnose(n, text, ErrNoOpenStruct)
		return
	}
	if m.name == "" {
		s.logger.Debug("unnamed field", "line", n, "type", m.typ)
	}
	st.Variables = append(st.Variables, model.Variable{Name: m.name, Type: m.typ})
}

// addMethod attaches the method to the last opened class without consulting
// the ancestry path.
func (s *State) addMethod(n int, text string, l Line) {
	m, ok := parseMember(l.Rest)
	if !ok || m.name == "" {
		s.diagnose(n, text, ErrMalformedMethod)
		return
	}
	if m.has("implicit") && s.opts.SkipImplicit {
		return
	}

	cl := s.catalog.LastClass()
	if cl == nil {
		s.diagnose(n, text, ErrNoOpenClass)
		return
	}
	cl.Methods = append(cl.Methods, model.Method{Name: m.name, Signature: m.typ, Used: m.has("used")})
}

func (s *State) addBase(n int, text string, l Line) {
	m := accessRe.FindStringSubmatch(l.Keyword + l.Rest)
	if m == nil {
		s.diagnose(n, text, ErrMalformedAccess)
		return
	}
	access := model.Private
	if a, ok := model.ParseAccess(m[2]); ok {
		access = a
	}

	cl := s.catalog.LastClass()
	if cl == nil {
		s.diagnose(n, text, ErrNoOpenClass)
		return
	}
	cl.Inherited.Add(access, m[4])
}
