package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/astmap/internal/model"
)

func sample() *model.Catalog {
	cat := model.NewCatalog("sample.dump")
	cat.OpenClass("Base")
	cat.LastClass().Inherited.Add(model.Public, "foo")
	cat.LastClass().Methods = append(cat.LastClass().Methods, model.Method{Name: "get", Signature: "Box<int> &()", Used: true})
	cat.OpenStruct("Point")
	cat.LastStruct().Variables = append(cat.LastStruct().Variables, model.Variable{Name: "x", Type: "int"})
	return cat
}

func TestEncodeJSON(t *testing.T) {
	t.Parallel()

	got, err := Encode(sample(), JSON)
	require.NoError(t, err)

	want := `{
  "class-data": [
    {
      "name": "Base",
      "inherited": {
        "public": [
          "foo"
        ],
        "private": [],
        "protected": []
      },
      "methods": [
        {
          "name": "get",
          "signature": "Box<int> &()",
          "used": true
        }
      ]
    }
  ],
  "struct-data": [
    {
      "name": "Point",
      "variables": [
        {
          "name": "x",
          "variable_type": "int"
        }
      ]
    }
  ]
}
`
	assert.Equal(t, want, string(got))
}

func TestEncodeJSONNormalizesNil(t *testing.T) {
	t.Parallel()

	cat := &model.Catalog{
		Classes: []model.Class{{Name: "Bare"}},
		Structs: []model.Struct{{Name: "Empty"}},
	}
	got, err := EncodeJSON(cat)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"class-data": [{"name": "Bare", "inherited": {"public": [], "private": [], "protected": []}, "methods": []}],
		"struct-data": [{"name": "Empty", "variables": []}]
	}`, string(got))

	// The input is left untouched.
	assert.Nil(t, cat.Classes[0].Methods)
}

func TestEncodeTOON(t *testing.T) {
	t.Parallel()

	got, err := Encode(sample(), TOON)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(got), "source: sample.dump\n"))
	assert.True(t, strings.HasSuffix(string(got), "\n"))
	assert.Contains(t, string(got), "inheritance[1]{derived,base,access}:")
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat("toon")
	require.NoError(t, err)
	assert.Equal(t, TOON, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)

	_, err = Encode(sample(), Format("xml"))
	assert.Error(t, err)
}
