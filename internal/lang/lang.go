// Package lang maps input files to the front-end that understands them: the
// clang AST dump parser or the tree-sitter C++ source parser.
package lang

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Kind distinguishes dump inputs from source inputs.
type Kind int

const (
	Dump Kind = iota
	Source
)

// Names of the registered languages.
const (
	ClangAST = "clang-ast"
	CPP      = "cpp"
)

// Language describes one supported input type.
type Language struct {
	Name       string
	Kind       Kind
	Extensions []string
	// Filenames are matched exactly, for inputs without a telling extension.
	Filenames []string
	lang      *sitter.Language
}

// GetLanguage returns the tree-sitter Language pointer, or nil for dumps.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// Languages maps language names to their configuration.
var Languages = map[string]*Language{
	ClangAST: {
		Name:       ClangAST,
		Kind:       Dump,
		Extensions: []string{".ast", ".astdump", ".dump"},
		Filenames:  []string{"dump.txt"},
	},
	CPP: {
		Name:       CPP,
		Kind:       Source,
		Extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx", ".h"},
		lang:       cpp.GetLanguage(),
	},
}

var (
	extensionMap  map[string]string
	filenameMap   map[string]string
	extensionOnce sync.Once
)

func buildMaps() {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		filenameMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
			for _, name := range l.Filenames {
				filenameMap[name] = l.Name
			}
		}
	})
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	buildMaps()
	return extensionMap[strings.ToLower(ext)]
}

// ForPath returns the language name for a file path, checking exact file
// names before extensions. It returns "" for unknown files.
func ForPath(path string) string {
	buildMaps()
	base := filepath.Base(path)
	if name, ok := filenameMap[base]; ok {
		return name
	}
	return ForExtension(filepath.Ext(base))
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
