// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/astmap/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a catalog into TOON tables.
func Encode(cat *model.Catalog) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("source: %s", encodeValue(cat.Source)))

	var classRows [][]any
	var methodRows [][]any
	for i := range cat.Classes {
		c := &cat.Classes[i]
		classRows = append(classRows, []any{
			c.Name,
			c.Rank,
			strings.Join(c.Inherited.Public, " "),
			strings.Join(c.Inherited.Private, " "),
			strings.Join(c.Inherited.Protected, " "),
		})
		for j := range c.Methods {
			m := &c.Methods[j]
			methodRows = append(methodRows, []any{c.Name, m.Name, m.Signature, m.Used})
		}
	}
	parts = append(parts, formatTabular("classes", []string{"name", "rank", "public", "private", "protected"}, classRows))
	parts = append(parts, formatTabular("methods", []string{"class", "name", "signature", "used"}, methodRows))

	var structRows [][]any
	var varRows [][]any
	for i := range cat.Structs {
		s := &cat.Structs[i]
		structRows = append(structRows, []any{s.Name, len(s.Variables)})
		for j := range s.Variables {
			v := &s.Variables[j]
			varRows = append(varRows, []any{s.Name, v.Name, v.Type})
		}
	}
	parts = append(parts, formatTabular("structs", []string{"name", "fields"}, structRows))
	parts = append(parts, formatTabular("variables", []string{"struct", "name", "type"}, varRows))

	var edgeRows [][]any
	for _, d := range cat.Derivations() {
		edgeRows = append(edgeRows, []any{d.Derived, d.Base, string(d.Access)})
	}
	parts = append(parts, formatTabular("inheritance", []string{"derived", "base", "access"}, edgeRows))

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeCell(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeCell(cell any) string {
	switch v := cell.(type) {
	case string:
		return encodeValue(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return fmt.Sprintf("%.4f", v)
	default:
		return encodeValue(fmt.Sprint(v))
	}
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return quote(value)
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
