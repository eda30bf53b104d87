package lang

import (
	"testing"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".cpp", CPP},
		{".HPP", CPP},
		{".h", CPP},
		{".ast", ClangAST},
		{".dump", ClangAST},
		{".py", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			got := ForExtension(tt.ext)
			if got != tt.want {
				t.Errorf("ForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestForPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"src/dump.txt", ClangAST},
		{"notes.txt", ""},
		{"lib/widget.cc", CPP},
		{"out/code.astdump", ClangAST},
	}

	for _, tt := range tests {
		if got := ForPath(tt.path); got != tt.want {
			t.Errorf("ForPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	c, ok := Languages[CPP]
	if !ok {
		t.Fatal("cpp language not registered")
	}
	if c.GetLanguage() == nil {
		t.Error("cpp language is nil")
	}
	if c.Kind != Source {
		t.Errorf("cpp kind = %v, want Source", c.Kind)
	}

	d := Languages[ClangAST]
	if d.GetLanguage() != nil {
		t.Error("dump language should have no tree-sitter grammar")
	}
}

func TestNewParser(t *testing.T) {
	t.Parallel()

	p := Languages[CPP].NewParser()
	if p == nil {
		t.Fatal("NewParser returned nil")
	}
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()

	if got := CollapseWhitespace("  int\n\t x  "); got != "int x" {
		t.Errorf("CollapseWhitespace = %q", got)
	}
}
