// Package parse builds record catalogs from C++ source files using tree-sitter.
// It yields the same catalog shape the dump parser does, for trees where no
// compiler dump is available.
package parse

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/astmap/internal/lang"
	"github.com/phobologic/astmap/internal/model"
)

// fieldDeclarators are the node types that declare a member inside a
// field_declaration.
var fieldDeclarators = map[string]struct{}{
	"field_identifier":         {},
	"pointer_declarator":       {},
	"reference_declarator":     {},
	"array_declarator":         {},
	"function_declarator":      {},
	"parenthesized_declarator": {},
}

type extractor struct {
	src []byte
	cat *model.Catalog
	// used holds the names of functions called, constructed or destroyed
	// anywhere in the file.
	used map[string]struct{}
}

// ExtractCatalog parses a C++ source file and returns its class and struct
// catalog. The parser must be created for the cpp language. path is recorded
// as the catalog source.
//
// Classes get their bases and member functions. Structs get their non-static
// data members. A method is marked used when its name is called somewhere in
// the same file; constructors and destructors count as used when a local
// object of the class is declared.
func ExtractCatalog(ctx context.Context, parser *sitter.Parser, source []byte, path string) (*model.Catalog, error) {
	cat := model.NewCatalog(path)
	if len(source) == 0 {
		return cat, nil
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	e := &extractor{src: source, cat: cat, used: make(map[string]struct{})}
	root := tree.RootNode()
	e.collectUses(root)
	e.walk(root)
	return cat, nil
}

func (e *extractor) text(n *sitter.Node) string {
	return lang.NodeText(n, e.src)
}

// walk visits n in document order and opens a record for every class or
// struct definition it finds.
func (e *extractor) walk(n *sitter.Node) {
	switch n.Type() {
	case "class_specifier", "struct_specifier":
		name := n.ChildByFieldName("name")
		body := n.ChildByFieldName("body")
		if name != nil && body != nil {
			e.record(n, e.text(name), body)
			return
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.walk(n.NamedChild(i))
	}
}

func (e *extractor) record(n *sitter.Node, name string, body *sitter.Node) {
	if n.Type() == "class_specifier" {
		e.cat.OpenClass(name)
		idx := len(e.cat.Classes) - 1
		e.bases(n, idx)
		for i := 0; i < int(body.NamedChildCount()); i++ {
			m := body.NamedChild(i)
			if meth, ok := e.method(m); ok {
				e.cat.Classes[idx].Methods = append(e.cat.Classes[idx].Methods, meth)
			}
			e.walk(m)
		}
		return
	}

	e.cat.OpenStruct(name)
	idx := len(e.cat.Structs) - 1
	for i := 0; i < int(body.NamedChildCount()); i++ {
		m := body.NamedChild(i)
		if m.Type() == "field_declaration" {
			vars := e.fields(m)
			e.cat.Structs[idx].Variables = append(e.cat.Structs[idx].Variables, vars...)
		}
		e.walk(m)
	}
}

// bases reads the base_class_clause of a class. A base without an access
// specifier is private, as it is for any class-key class.
func (e *extractor) bases(n *sitter.Node, idx int) {
	var clause *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "base_class_clause" {
			clause = c
			break
		}
	}
	if clause == nil {
		return
	}

	access := model.Private
	for i := 0; i < int(clause.ChildCount()); i++ {
		c := clause.Child(i)
		switch c.Type() {
		case "access_specifier":
			if a, ok := model.ParseAccess(strings.TrimSpace(e.text(c))); ok {
				access = a
			}
		case ",":
			access = model.Private
		case "type_identifier", "qualified_type_identifier", "template_type":
			e.cat.Classes[idx].Inherited.Add(access, lang.CollapseWhitespace(e.text(c)))
		}
	}
}

// method turns a member declaration or definition into a Method. It reports
// false for data members and anything else that is not a member function.
func (e *extractor) method(m *sitter.Node) (model.Method, bool) {
	if m.Type() == "template_declaration" {
		for i := 0; i < int(m.NamedChildCount()); i++ {
			switch c := m.NamedChild(i); c.Type() {
			case "function_definition", "declaration", "field_declaration":
				m = c
			}
		}
	}
	switch m.Type() {
	case "function_definition", "declaration", "field_declaration":
	default:
		return model.Method{}, false
	}

	decl := m.ChildByFieldName("declarator")
	if decl == nil {
		return model.Method{}, false
	}
	fn, ptr, _ := e.unwrap(decl)
	if fn == nil || fn.Type() != "function_declarator" {
		return model.Method{}, false
	}
	nameNode := fn.ChildByFieldName("declarator")
	if nameNode == nil {
		return model.Method{}, false
	}
	name := e.text(nameNode)

	ret := "void"
	if m.ChildByFieldName("type") != nil {
		ret = joinType(e.typeText(m), ptr, "")
	}

	var params []string
	if pl := fn.ChildByFieldName("parameters"); pl != nil {
		for i := 0; i < int(pl.NamedChildCount()); i++ {
			if p := e.paramType(pl.NamedChild(i)); p != "" {
				params = append(params, p)
			}
		}
	}

	sig := ret + " (" + strings.Join(params, ", ") + ")"
	for i := 0; i < int(fn.ChildCount()); i++ {
		switch c := fn.Child(i); c.Type() {
		case "type_qualifier", "noexcept":
			sig += " " + lang.CollapseWhitespace(e.text(c))
		}
	}

	_, used := e.used[name]
	return model.Method{Name: name, Signature: sig, Used: used}, true
}

// fields returns the data members declared by one struct field_declaration.
// Member functions and static members are skipped.
func (e *extractor) fields(m *sitter.Node) []model.Variable {
	for i := 0; i < int(m.NamedChildCount()); i++ {
		c := m.NamedChild(i)
		if c.Type() == "storage_class_specifier" && e.text(c) == "static" {
			return nil
		}
	}
	if m.ChildByFieldName("type") == nil {
		return nil
	}
	base := e.typeText(m)

	var vars []model.Variable
	for i := 0; i < int(m.NamedChildCount()); i++ {
		c := m.NamedChild(i)
		if _, ok := fieldDeclarators[c.Type()]; !ok {
			continue
		}
		leaf, ptr, arr := e.unwrap(c)
		if leaf == nil || leaf.Type() == "function_declarator" {
			continue
		}
		vars = append(vars, model.Variable{Name: e.text(leaf), Type: joinType(base, ptr, arr)})
	}
	return vars
}

func (e *extractor) paramType(p *sitter.Node) string {
	switch p.Type() {
	case "variadic_parameter_declaration", "...":
		return "..."
	case "parameter_declaration", "optional_parameter_declaration":
	default:
		return ""
	}
	base := e.typeText(p)
	d := p.ChildByFieldName("declarator")
	if d == nil {
		return base
	}
	_, ptr, arr := e.unwrap(d)
	return joinType(base, ptr, arr)
}

// typeText returns the cv-qualifiers and type of a declaration, e.g.
// "const char".
func (e *extractor) typeText(n *sitter.Node) string {
	var parts []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "type_qualifier" {
			parts = append(parts, e.text(c))
		}
	}
	if t := n.ChildByFieldName("type"); t != nil {
		parts = append(parts, lang.CollapseWhitespace(e.text(t)))
	}
	return strings.Join(parts, " ")
}

// unwrap strips pointer, reference and array declarators and returns the
// innermost declarator with the collected "*"/"&" and "[N]" suffixes.
func (e *extractor) unwrap(d *sitter.Node) (leaf *sitter.Node, ptr, arr string) {
	for d != nil {
		switch d.Type() {
		case "pointer_declarator", "abstract_pointer_declarator":
			ptr += "*"
		case "reference_declarator", "abstract_reference_declarator":
			if d.ChildCount() > 0 && d.Child(0).Type() == "&&" {
				ptr += "&&"
			} else {
				ptr += "&"
			}
		case "array_declarator", "abstract_array_declarator":
			size := ""
			if s := d.ChildByFieldName("size"); s != nil {
				size = e.text(s)
			}
			arr += "[" + size + "]"
		case "parenthesized_declarator":
		default:
			return d, ptr, arr
		}
		next := d.ChildByFieldName("declarator")
		if next == nil && d.NamedChildCount() > 0 {
			next = d.NamedChild(int(d.NamedChildCount()) - 1)
		}
		d = next
	}
	return nil, ptr, arr
}

func joinType(base, ptr, arr string) string {
	out := base
	if ptr != "" {
		out += " " + ptr
	}
	if arr != "" {
		out += " " + arr
	}
	return out
}

// collectUses records every call target in the tree, plus the constructor
// and destructor of each class a local object is declared with.
func (e *extractor) collectUses(n *sitter.Node) {
	switch n.Type() {
	case "call_expression":
		if fn := n.ChildByFieldName("function"); fn != nil {
			if name := e.calleeName(fn); name != "" {
				e.used[name] = struct{}{}
			}
		}
	case "new_expression":
		if t := n.ChildByFieldName("type"); t != nil {
			e.used[e.text(t)] = struct{}{}
		}
	case "declaration":
		if t := n.ChildByFieldName("type"); t != nil && t.Type() == "type_identifier" && hasObjectDeclarator(n) {
			name := e.text(t)
			e.used[name] = struct{}{}
			e.used["~"+name] = struct{}{}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.collectUses(n.NamedChild(i))
	}
}

// hasObjectDeclarator reports whether a declaration declares an object by
// value rather than a function, pointer or reference.
func hasObjectDeclarator(n *sitter.Node) bool {
	d := n.ChildByFieldName("declarator")
	if d == nil {
		return false
	}
	if d.Type() == "init_declarator" {
		d = d.ChildByFieldName("declarator")
	}
	return d != nil && d.Type() == "identifier"
}

func (e *extractor) calleeName(fn *sitter.Node) string {
	for fn != nil {
		switch fn.Type() {
		case "identifier", "field_identifier", "destructor_name":
			return e.text(fn)
		case "field_expression":
			fn = fn.ChildByFieldName("field")
		case "qualified_identifier", "template_function", "template_method":
			fn = fn.ChildByFieldName("name")
		default:
			return ""
		}
	}
	return ""
}
