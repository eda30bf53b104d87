package toon

import (
	"strings"
	"testing"

	"github.com/phobologic/astmap/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"true keyword", "true", `"true"`},
		{"null keyword", "null", `"null"`},
		{"numeric string", "42", `"42"`},
		{"comma", "int (int, int)", `"int (int, int)"`},
		{"scope", "std::string", `"std::string"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"template", "Tmpl<int>", "Tmpl<int>"},
		{"destructor", "~foo", "~foo"},
		{"dash prefix", "-foo", `"-foo"`},
		{"signature no special", "void ()", "void ()"},
		{"pointer type", "const char *", "const char *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := encodeValue(tt.in)
			if got != tt.want {
				t.Errorf("encodeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodeCell(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want string
	}{
		{true, "true"},
		{false, "false"},
		{3, "3"},
		{0.25, "0.2500"},
		{"true", `"true"`},
	}
	for _, tt := range tests {
		if got := encodeCell(tt.in); got != tt.want {
			t.Errorf("encodeCell(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	cat := model.NewCatalog("code.dump")
	cat.OpenClass("foo")
	cat.LastClass().Rank = 0.6
	cat.OpenClass("Base")
	cat.LastClass().Rank = 0.4
	cat.LastClass().Inherited.Add(model.Public, "foo")
	cat.LastClass().Methods = append(cat.LastClass().Methods,
		model.Method{Name: "add", Signature: "int (int, int)", Used: true},
		model.Method{Name: "run", Signature: "void ()"},
	)
	cat.OpenStruct("Point")
	cat.LastStruct().Variables = append(cat.LastStruct().Variables, model.Variable{Name: "x", Type: "int"})

	got := Encode(cat)
	want := []string{
		"source: code.dump",
		"classes[2]{name,rank,public,private,protected}:",
		`  foo,0.6000,"","",""`,
		`  Base,0.4000,foo,"",""`,
		"methods[2]{class,name,signature,used}:",
		`  Base,add,"int (int, int)",true`,
		"  Base,run,void (),false",
		"structs[1]{name,fields}:",
		"  Point,1",
		"variables[1]{struct,name,type}:",
		"  Point,x,int",
		"inheritance[1]{derived,base,access}:",
		"  Base,foo,public",
	}

	lines := strings.Split(got, "\n")
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	got := Encode(model.NewCatalog("empty"))
	for _, header := range []string{
		"classes[0]{name,rank,public,private,protected}:",
		"methods[0]{class,name,signature,used}:",
		"structs[0]{name,fields}:",
		"variables[0]{struct,name,type}:",
		"inheritance[0]{derived,base,access}:",
	} {
		if !strings.Contains(got, header) {
			t.Errorf("expected %q, got:\n%s", header, got)
		}
	}
}
