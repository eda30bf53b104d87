package astdump

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/astmap/internal/model"
)

func parse(t *testing.T, dump string, opts Options) *Result {
	t.Helper()
	res, err := ParseReader(strings.NewReader(dump), "test.dump", opts)
	require.NoError(t, err)
	return res
}

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func TestParseFixture(t *testing.T) {
	t.Parallel()

	res, err := ParseFile(filepath.Join("testdata", "code.dump"), Options{SkipRoot: true})
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, 60, res.Lines)

	cat := res.Catalog
	require.Len(t, cat.Classes, 4)
	names := []string{cat.Classes[0].Name, cat.Classes[1].Name, cat.Classes[2].Name, cat.Classes[3].Name}
	assert.Equal(t, []string{"foo", "bar", "baz", "Base"}, names)

	foo := cat.Classes[0]
	assert.Equal(t, []model.Method{
		{Name: "foo", Signature: "void ()", Used: true},
		{Name: "~foo", Signature: "void () noexcept", Used: true},
		{Name: "foo", Signature: "void (const foo &)", Used: false},
	}, foo.Methods)

	assert.Empty(t, cat.Classes[1].Methods)
	assert.Empty(t, cat.Classes[2].Methods)

	base := cat.Classes[3]
	assert.Equal(t, []string{"foo"}, base.Inherited.Public)
	assert.Equal(t, []string{"bar"}, base.Inherited.Private)
	assert.Equal(t, []string{"baz"}, base.Inherited.Protected)
	assert.Equal(t, []model.Method{
		{Name: "add", Signature: "int (int, int)", Used: true},
		{Name: "sub", Signature: "int (int, int)", Used: false},
		{Name: "mul", Signature: "int (int, int)", Used: false},
	}, base.Methods)

	require.Len(t, cat.Structs, 1)
	assert.Equal(t, "Point", cat.Structs[0].Name)
	assert.Equal(t, []model.Variable{
		{Name: "x", Type: "int"},
		{Name: "label", Type: "const char *"},
	}, cat.Structs[0].Variables)
}

func TestParseSkipImplicit(t *testing.T) {
	t.Parallel()

	res, err := ParseFile(filepath.Join("testdata", "code.dump"), Options{SkipRoot: true, SkipImplicit: true})
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)

	foo := res.Catalog.Classes[0]
	assert.Equal(t, []model.Method{
		{Name: "foo", Signature: "void ()", Used: true},
		{Name: "~foo", Signature: "void () noexcept", Used: true},
	}, foo.Methods)
}

func TestParseKeepsEveryMethodLine(t *testing.T) {
	t.Parallel()

	dump := lines(
		"`-CXXRecordDecl 0x1 <a.cpp:1:1, line:5:1> line:1:7 class Foo definition",
		"  |-CXXMethodDecl 0x2 <line:2:3, col:14> col:8 used run 'void ()'",
		"  |-CXXConstructorDecl 0x3 <line:1:7> col:7 implicit used Foo 'void () noexcept' inline default trivial",
		"  `-CXXMethodDecl 0x4 <line:1:7> col:7 implicit constexpr operator= 'Foo &(const Foo &)' inline default noexcept-unevaluated 0x4",
	)

	res := parse(t, dump, Options{})
	assert.Empty(t, res.Diagnostics)
	require.Len(t, res.Catalog.Classes, 1)
	assert.Equal(t, []model.Method{
		{Name: "run", Signature: "void ()", Used: true},
		{Name: "Foo", Signature: "void () noexcept", Used: true},
		{Name: "operator=", Signature: "Foo &(const Foo &)"},
	}, res.Catalog.Classes[0].Methods)

	skipped := parse(t, dump, Options{SkipImplicit: true})
	assert.Equal(t, []model.Method{
		{Name: "run", Signature: "void ()", Used: true},
	}, skipped.Catalog.Classes[0].Methods)
}

func TestParseMemberNames(t *testing.T) {
	t.Parallel()

	dump := lines(
		"|-CXXRecordDecl 0x1 <a.cpp:1:1, line:9:1> line:1:7 class Handle definition",
		"| |-CXXConversionDecl 0x2 <line:2:3, col:35> col:3 used operator bool 'bool () const'",
		"| |-CXXConversionDecl 0x3 <line:3:3, col:40> col:3 operator const char * 'const char *() const'",
		"| `-CXXMethodDecl 0x4 <line:4:3, col:30> col:8 operator() 'int (int)'",
		"`-CXXRecordDecl 0x5 <a.cpp:11:1, line:18:1> line:11:8 struct Variant definition",
		"  |-FieldDecl 0x6 <line:12:3, col:7> col:7 tag 'int'",
		"  |-FieldDecl 0x7 <line:13:3, line:16:3> col:3 implicit 'union (unnamed union at a.cpp:13:3)'",
		"  |-FieldDecl 0x8 <line:17:3, col:9> col:3 'int'",
		"  `-FieldDecl 0x9 <line:17:3, col:12> col:7 referenced flags 'unsigned int'",
	)

	res := parse(t, dump, Options{})
	assert.Empty(t, res.Diagnostics)

	require.Len(t, res.Catalog.Classes, 1)
	assert.Equal(t, []model.Method{
		{Name: "operator bool", Signature: "bool () const", Used: true},
		{Name: "operator const char *", Signature: "const char *() const"},
		{Name: "operator()", Signature: "int (int)"},
	}, res.Catalog.Classes[0].Methods)

	require.Len(t, res.Catalog.Structs, 1)
	assert.Equal(t, []model.Variable{
		{Name: "tag", Type: "int"},
		{Name: "", Type: "union (unnamed union at a.cpp:13:3)"},
		{Name: "", Type: "int"},
		{Name: "flags", Type: "unsigned int"},
	}, res.Catalog.Structs[0].Variables)
}

func TestParseMissingFile(t *testing.T) {
	t.Parallel()

	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.dump"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening dump")
}

func TestParseSourceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	r := iotest.DataErrReader(iotest.ErrReader(boom))
	_, err := ParseReader(r, "broken", Options{})
	require.ErrorIs(t, err, boom)
}

func TestParseUnmatchedLinesLeaveCatalogUnchanged(t *testing.T) {
	t.Parallel()

	base := lines(
		"|-CXXRecordDecl 0x1 <a.cpp:1:1> line:1:7 class Foo definition",
		"| `-CXXMethodDecl 0x2 <line:2:3> col:8 run 'void ()'",
	)
	noise := lines(
		"this line has no branch marker",
		"",
		"    `- 42",
		"0x1234 <<invalid sloc>>",
	)

	want := parse(t, base, Options{}).Catalog
	got := parse(t, base+noise, Options{}).Catalog
	assert.Equal(t, want, got)
}

func TestParseMethodsInOrder(t *testing.T) {
	t.Parallel()

	dump := lines(
		"`-CXXRecordDecl 0x1 <a.cpp:1:1> line:1:7 class Widget definition",
		"  |-CXXMethodDecl 0x2 <line:2:3> col:8 used draw 'void ()'",
		"  |-CXXMethodDecl 0x3 <line:3:3> col:8 resize 'void (int, int)'",
		"  |-CXXMethodDecl 0x4 <line:4:3> col:8 used width 'int () const'",
		"  `-CXXMethodDecl 0x5 <line:5:3> col:8 operator== 'bool (const Widget &) const'",
	)

	res := parse(t, dump, Options{})
	require.Len(t, res.Catalog.Classes, 1)
	assert.Equal(t, []model.Method{
		{Name: "draw", Signature: "void ()", Used: true},
		{Name: "resize", Signature: "void (int, int)"},
		{Name: "width", Signature: "int () const", Used: true},
		{Name: "operator==", Signature: "bool (const Widget &) const"},
	}, res.Catalog.Classes[0].Methods)
}

func TestParseStructFields(t *testing.T) {
	t.Parallel()

	dump := lines(
		"|-CXXRecordDecl 0x1 <a.cpp:1:1> line:1:8 struct Node definition",
		"| |-FieldDecl 0x2 <line:2:3> col:7 value 'int'",
		"| |-FieldDecl 0x3 <line:3:3> col:9 next 'struct Node *'",
		"| `-FieldDecl 0x4 <line:4:3> col:15 name 'std::string':'std::basic_string<char>'",
	)

	res := parse(t, dump, Options{})
	require.Len(t, res.Catalog.Structs, 1)
	assert.Equal(t, []model.Variable{
		{Name: "value", Type: "int"},
		{Name: "next", Type: "struct Node *"},
		{Name: "name", Type: "std::string"},
	}, res.Catalog.Structs[0].Variables)
	assert.Empty(t, res.Diagnostics)
}

func TestParseFieldOutsideStructIgnored(t *testing.T) {
	t.Parallel()

	dump := lines(
		"|-CXXRecordDecl 0x1 <a.cpp:1:1> line:1:8 struct Early definition",
		"|-CXXRecordDecl 0x2 <a.cpp:3:1> line:3:7 class Holder definition",
		"| `-FieldDecl 0x3 <line:4:3> col:7 count 'int'",
		"`-FieldDecl 0x4 <line:9:3> col:7 stray 'struct Early'",
	)

	res := parse(t, dump, Options{})
	require.Len(t, res.Catalog.Structs, 1)
	assert.Empty(t, res.Catalog.Structs[0].Variables)
	assert.Empty(t, res.Diagnostics)
}

func TestParseInheritanceScenario(t *testing.T) {
	t.Parallel()

	dump := lines(
		"`-CXXRecordDecl 0x1 <a.cpp:1:1> line:1:7 class Foo definition",
		"  |-CXXRecordDecl 0x2 <a.cpp:3:1> line:3:7 class Bar definition",
		"  | |-public 'Foo'",
	)

	res := parse(t, dump, Options{})
	cat := res.Catalog
	require.Len(t, cat.Classes, 2)
	assert.Equal(t, "Foo", cat.Classes[0].Name)
	assert.Empty(t, cat.Classes[0].Methods)
	assert.Equal(t, "Bar", cat.Classes[1].Name)
	assert.Equal(t, []string{"Foo"}, cat.Classes[1].Inherited.Public)
	assert.Empty(t, cat.Classes[1].Inherited.Private)
	assert.Empty(t, cat.Classes[1].Inherited.Protected)
}

func TestParseAccessVariants(t *testing.T) {
	t.Parallel()

	dump := lines(
		"`-CXXRecordDecl 0x1 <a.cpp:1:1> line:1:7 class D definition",
		"  |-public 'A'",
		"  |-protected 'ns::B':'ns::B'",
		"  |-virtual public 'C'",
		"  |-public virtual 'E'",
		"  |-virtual 'F'",
		"  `-private 'Tmpl<int>'",
	)

	res := parse(t, dump, Options{})
	in := res.Catalog.Classes[0].Inherited
	assert.Equal(t, []string{"A", "C", "E"}, in.Public)
	assert.Equal(t, []string{"F", "Tmpl<int>"}, in.Private)
	assert.Equal(t, []string{"ns::B"}, in.Protected)
}

func TestParseRecordWithoutDefinitionIgnored(t *testing.T) {
	t.Parallel()

	dump := lines(
		"|-CXXRecordDecl 0x1 <a.cpp:1:1> col:7 class Forward",
		"|-CXXRecordDecl 0x2 <a.cpp:2:1> line:2:7 union U definition",
		"`-RecordDecl 0x3 <a.cpp:3:1> line:3:8 struct CStyle definition",
	)

	res := parse(t, dump, Options{})
	assert.Empty(t, res.Catalog.Classes)
	require.Len(t, res.Catalog.Structs, 1)
	assert.Equal(t, "CStyle", res.Catalog.Structs[0].Name)
	assert.Empty(t, res.Diagnostics)
}

func TestParseMethodIgnoresAncestry(t *testing.T) {
	t.Parallel()

	// Methods always go to the last opened class, even when the nearest
	// record on the path is a struct.
	dump := lines(
		"|-CXXRecordDecl 0x1 <a.cpp:1:1> line:1:7 class Owner definition",
		"`-CXXRecordDecl 0x2 <a.cpp:5:1> line:5:8 struct Plain definition",
		"  `-CXXMethodDecl 0x3 <line:6:3> col:8 touch 'void ()'",
	)

	res := parse(t, dump, Options{})
	require.Len(t, res.Catalog.Classes, 1)
	assert.Equal(t, []model.Method{{Name: "touch", Signature: "void ()"}}, res.Catalog.Classes[0].Methods)
}

func TestParseDiagnostics(t *testing.T) {
	t.Parallel()

	dump := lines(
		"`-CXXMethodDecl 0x1 <a.cpp:1:1> col:8 orphan 'void ()'",
		"|-public 'Base'",
		"|-CXXRecordDecl 0x2 <a.cpp:3:1> line:3:7 class Ok definition",
		"| |-CXXMethodDecl 0x3 <line:4:3> col:8 nosig",
		"| |-public",
		"|-CXXRecordDecl 0x4 <a.cpp:9:1> line:9:8 struct S definition",
		"| |-FieldDecl 0x5 <line:10:3> col:8 bad",
		"   |-FieldDecl 0x6 <line:11:3> col:8 odd 'int'",
		"| `-CXXMethodDecl 0x7 <line:12:3> col:8 later 'void ()'",
	)

	res := parse(t, dump, Options{})

	var got []error
	var lineNos []int
	for _, d := range res.Diagnostics {
		got = append(got, d.Err)
		lineNos = append(lineNos, d.Line)
	}
	assert.Equal(t, []error{
		ErrNoOpenClass,
		ErrNoOpenClass,
		ErrMalformedMethod,
		ErrMalformedAccess,
		ErrMalformedField,
		ErrOddDecoration,
	}, got)
	assert.Equal(t, []int{1, 2, 4, 5, 7, 8}, lineNos)

	// Records before and after the bad lines survive.
	require.Len(t, res.Catalog.Classes, 1)
	assert.Equal(t, []model.Method{{Name: "later", Signature: "void ()"}}, res.Catalog.Classes[0].Methods)
	require.Len(t, res.Catalog.Structs, 1)
	assert.Equal(t, []model.Variable{{Name: "odd", Type: "int"}}, res.Catalog.Structs[0].Variables)
}

func TestDiagnosticError(t *testing.T) {
	t.Parallel()

	d := Diagnostic{Line: 12, Text: "  |-public  ", Err: ErrMalformedAccess}
	assert.Equal(t, "line 12: base specifier without quoted type name: |-public", d.Error())
	assert.ErrorIs(t, d, ErrMalformedAccess)
}

func TestParseSkipRoot(t *testing.T) {
	t.Parallel()

	// Without SkipRoot a decorated first line is parsed like any other.
	dump := lines(
		"`-CXXRecordDecl 0x1 <a.cpp:1:1> line:1:7 class First definition",
		"`-CXXRecordDecl 0x2 <a.cpp:2:1> line:2:7 class Second definition",
	)

	all := parse(t, dump, Options{})
	assert.Len(t, all.Catalog.Classes, 2)
	assert.Equal(t, 2, all.Lines)

	skipped := parse(t, dump, Options{SkipRoot: true})
	require.Len(t, skipped.Catalog.Classes, 1)
	assert.Equal(t, "Second", skipped.Catalog.Classes[0].Name)
	assert.Equal(t, 1, skipped.Lines)
}

func TestParseDeterministic(t *testing.T) {
	t.Parallel()

	render := func() []byte {
		res, err := ParseFile(filepath.Join("testdata", "code.dump"), Options{SkipRoot: true})
		require.NoError(t, err)
		data, err := json.Marshal(res.Catalog)
		require.NoError(t, err)
		return data
	}

	first := render()
	second := render()
	assert.True(t, bytes.Equal(first, second))
}

func TestStepFold(t *testing.T) {
	t.Parallel()

	s := NewState("fold", Options{})
	s.Step(1, "|-CXXRecordDecl 0x1 <a.cpp:1:1> line:1:7 class A definition")
	s.Step(2, "| `-CXXMethodDecl 0x2 <line:2:3> col:8 used go 'void ()'")
	s.Step(3, "`-CXXRecordDecl 0x3 <a.cpp:4:1> line:4:7 class B definition")

	res := s.Result()
	assert.Equal(t, "fold", res.Catalog.Source)
	require.Len(t, res.Catalog.Classes, 2)
	assert.Len(t, res.Catalog.Classes[0].Methods, 1)
	assert.Empty(t, res.Catalog.Classes[1].Methods)
	assert.Equal(t, 3, res.Lines)
}

func TestParseLongLine(t *testing.T) {
	t.Parallel()

	sig := strings.Repeat("int, ", 20000)
	dump := lines(
		"|-CXXRecordDecl 0x1 <a.cpp:1:1> line:1:7 class Big definition",
		"| |-CXXMethodDecl 0x2 <line:2:3> col:8 before 'void ()'",
		"| |-CXXMethodDecl 0x3 <line:3:3> col:8 wide 'void ("+sig+"int)'",
		"| `-CXXMethodDecl 0x4 <line:4:3> col:8 after 'void ()'",
		"`-CXXRecordDecl 0x5 <a.cpp:6:1> line:6:8 struct Small definition",
		"  `-FieldDecl 0x6 <line:7:3> col:7 n 'int'",
	)

	// The default limit accepts the line.
	res := parse(t, dump, Options{})
	require.Len(t, res.Catalog.Classes[0].Methods, 3)
	assert.Equal(t, "wide", res.Catalog.Classes[0].Methods[1].Name)
	assert.Empty(t, res.Diagnostics)

	// A lower limit skips only the long line.
	res = parse(t, dump, Options{MaxLineBytes: 1024})
	assert.Equal(t, 6, res.Lines)
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.ErrorIs(t, d, ErrLineTooLong)
	assert.Equal(t, 3, d.Line)
	assert.LessOrEqual(t, len(d.Text), 200)

	require.Len(t, res.Catalog.Classes, 1)
	assert.Equal(t, []model.Method{
		{Name: "before", Signature: "void ()"},
		{Name: "after", Signature: "void ()"},
	}, res.Catalog.Classes[0].Methods)
	require.Len(t, res.Catalog.Structs, 1)
	assert.Equal(t, []model.Variable{{Name: "n", Type: "int"}}, res.Catalog.Structs[0].Variables)
}
