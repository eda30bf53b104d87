// Package model defines the record catalogs built from an AST dump.
package model

// Access is a C++ inheritance access level.
type Access string

const (
	Public    Access = "public"
	Private   Access = "private"
	Protected Access = "protected"
)

// ParseAccess maps an access keyword to its Access value.
func ParseAccess(s string) (Access, bool) {
	switch Access(s) {
	case Public, Private, Protected:
		return Access(s), true
	}
	return "", false
}

// Inheritance holds the base class names of a class, one list per access level,
// in declaration order.
type Inheritance struct {
	Public    []string `json:"public"`
	Private   []string `json:"private"`
	Protected []string `json:"protected"`
}

// Add appends base to the list for access.
func (in *Inheritance) Add(access Access, base string) {
	switch access {
	case Public:
		in.Public = append(in.Public, base)
	case Private:
		in.Private = append(in.Private, base)
	case Protected:
		in.Protected = append(in.Protected, base)
	}
}

// Method is a member function of a class.
type Method struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	Used      bool   `json:"used"`
}

// Class is a class-like record with its bases and methods.
type Class struct {
	Name      string      `json:"name"`
	Inherited Inheritance `json:"inherited"`
	Methods   []Method    `json:"methods"`

	// Rank is the class's centrality in the inheritance graph. It is not part
	// of the JSON output.
	Rank float64 `json:"-"`
}

// Variable is a data member of a struct.
type Variable struct {
	Name string `json:"name"`
	Type string `json:"variable_type"`
}

// Struct is a struct-like record with its fields.
type Struct struct {
	Name      string     `json:"name"`
	Variables []Variable `json:"variables"`
}

// Derivation is one inheritance edge: Derived inherits from Base.
type Derivation struct {
	Derived string
	Base    string
	Access  Access
}

// Catalog is the ordered result of parsing one or more inputs.
// Records appear in first-appearance order and are never removed.
type Catalog struct {
	Source  string   `json:"-"`
	Classes []Class  `json:"class-data"`
	Structs []Struct `json:"struct-data"`
}

// NewCatalog returns an empty catalog whose lists render as [] rather than null.
func NewCatalog(source string) *Catalog {
	return &Catalog{
		Source:  source,
		Classes: []Class{},
		Structs: []Struct{},
	}
}

// OpenClass appends a new empty class and makes it the current class.
func (c *Catalog) OpenClass(name string) {
	c.Classes = append(c.Classes, Class{
		Name: name,
		Inherited: Inheritance{
			Public:    []string{},
			Private:   []string{},
			Protected: []string{},
		},
		Methods: []Method{},
	})
}

// OpenStruct appends a new empty struct and makes it the current struct.
func (c *Catalog) OpenStruct(name string) {
	c.Structs = append(c.Structs, Struct{
		Name:      name,
		Variables: []Variable{},
	})
}

// LastClass returns the most recently opened class, or nil if there is none.
// The pointer is only valid until the next OpenClass.
func (c *Catalog) LastClass() *Class {
	if len(c.Classes) == 0 {
		return nil
	}
	return &c.Classes[len(c.Classes)-1]
}

// LastStruct returns the most recently opened struct, or nil if there is none.
// The pointer is only valid until the next OpenStruct.
func (c *Catalog) LastStruct() *Struct {
	if len(c.Structs) == 0 {
		return nil
	}
	return &c.Structs[len(c.Structs)-1]
}

// Derivations lists every inheritance edge in catalog order, public bases
// first, then private, then protected.
func (c *Catalog) Derivations() []Derivation {
	var out []Derivation
	for i := range c.Classes {
		cl := &c.Classes[i]
		for _, b := range cl.Inherited.Public {
			out = append(out, Derivation{Derived: cl.Name, Base: b, Access: Public})
		}
		for _, b := range cl.Inherited.Private {
			out = append(out, Derivation{Derived: cl.Name, Base: b, Access: Private})
		}
		for _, b := range cl.Inherited.Protected {
			out = append(out, Derivation{Derived: cl.Name, Base: b, Access: Protected})
		}
	}
	return out
}

// Merge concatenates catalogs in argument order. Duplicate record names are
// kept; each input contributes its records as-is.
func Merge(source string, cats ...*Catalog) *Catalog {
	out := NewCatalog(source)
	for _, c := range cats {
		if c == nil {
			continue
		}
		out.Classes = append(out.Classes, c.Classes...)
		out.Structs = append(out.Structs, c.Structs...)
	}
	return out
}
