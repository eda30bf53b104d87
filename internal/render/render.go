// Package render serializes a catalog into one of the supported output formats.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/phobologic/astmap/internal/model"
	"github.com/phobologic/astmap/internal/toon"
)

// Format names an output encoding.
type Format string

const (
	JSON Format = "json"
	TOON Format = "toon"
)

// Formats lists the accepted format names.
var Formats = []Format{JSON, TOON}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want json or toon)", s)
}

// Encode renders the catalog. The output always ends with a newline.
func Encode(cat *model.Catalog, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return EncodeJSON(cat)
	case TOON:
		return []byte(toon.Encode(cat) + "\n"), nil
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}
}

// EncodeJSON renders the class-data/struct-data document with two-space
// indentation. HTML escaping is off so signatures such as "Foo<int> &" stay
// readable.
func EncodeJSON(cat *model.Catalog) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(normalize(cat)); err != nil {
		return nil, fmt.Errorf("encoding json: %w", err)
	}
	return buf.Bytes(), nil
}

// normalize replaces nil lists with empty ones so every list renders as [].
// Catalogs built by hand or merged from partial inputs may carry nils.
func normalize(cat *model.Catalog) *model.Catalog {
	out := &model.Catalog{
		Source:  cat.Source,
		Classes: make([]model.Class, len(cat.Classes)),
		Structs: make([]model.Struct, len(cat.Structs)),
	}
	for i, c := range cat.Classes {
		c.Inherited.Public = orEmpty(c.Inherited.Public)
		c.Inherited.Private = orEmpty(c.Inherited.Private)
		c.Inherited.Protected = orEmpty(c.Inherited.Protected)
		if c.Methods == nil {
			c.Methods = []model.Method{}
		}
		out.Classes[i] = c
	}
	for i, s := range cat.Structs {
		if s.Variables == nil {
			s.Variables = []model.Variable{}
		}
		out.Structs[i] = s
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
