package astdump

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phobologic/astmap/internal/model"
)

// DefaultMaxLineBytes bounds a single dump line. Template-heavy code produces
// very long type strings.
const DefaultMaxLineBytes = 1 << 20

// diagnosticTextLimit bounds the line text kept for a skipped long line.
const diagnosticTextLimit = 200

// LineSource yields dump lines in file order. *LineReader and *bufio.Scanner
// implement it.
type LineSource interface {
	Scan() bool
	Text() string
	Err() error
}

// Options controls a parse.
type Options struct {
	// SkipRoot drops the first line, the synthetic TranslationUnitDecl.
	SkipRoot bool

	// SkipImplicit drops compiler-generated methods such as implicit copy
	// constructors.
	SkipImplicit bool

	// MaxLineBytes overrides DefaultMaxLineBytes for ParseFile and ParseReader.
	// Longer lines are skipped with an ErrLineTooLong diagnostic.
	MaxLineBytes int

	Logger *slog.Logger
}

// Result is the outcome of parsing one dump.
type Result struct {
	Catalog     *model.Catalog
	Diagnostics []Diagnostic
	Lines       int
}

// State is the value threaded through a parse. A zero State is not usable;
// create one with NewState.
type State struct {
	opts    Options
	logger  *slog.Logger
	path    Path
	catalog *model.Catalog
	diags   []Diagnostic
	lines   int
}

// NewState returns the initial state for parsing the dump named source.
func NewState(source string, opts Options) *State {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &State{
		opts:    opts,
		logger:  logger.With("source", source),
		catalog: model.NewCatalog(source),
	}
}

// Step feeds line number n (1-based) to the parser.
func (s *State) Step(n int, text string) {
	s.lines++

	l, ok := Classify(text)
	if !ok {
		return
	}
	if l.Malformed {
		s.diagnose(n, text, ErrOddDecoration)
	}
	s.path.Update(l.Depth, text, l.Kind)
	s.build(n, text, l)
}

// Result returns the catalog and diagnostics accumulated so far.
func (s *State) Result() *Result {
	return &Result{
		Catalog:     s.catalog,
		Diagnostics: s.diags,
		Lines:       s.lines,
	}
}

// skip records line n as unusable. The decoration is still read so the
// ancestry path stays in step with the dump.
func (s *State) skip(n int, text string, err error) {
	s.lines++
	if l, ok := Classify(text); ok {
		s.path.Update(l.Depth, text, l.Kind)
	}
	if len(text) > diagnosticTextLimit {
		text = text[:diagnosticTextLimit]
	}
	s.diagnose(n, text, err)
}

func (s *State) diagnose(n int, text string, err error) {
	d := Diagnostic{Line: n, Text: text, Err: err}
	s.diags = append(s.diags, d)
	s.logger.Warn("dump line not fully parsed", "line", n, "error", err, "text", text)
}

// Parse consumes src to the end and returns the resulting catalog. The error
// is non-nil only if src itself fails; malformed lines become diagnostics.
func Parse(src LineSource, source string, opts Options) (*Result, error) {
	s := NewState(source, opts)
	tr, _ := src.(interface{ Truncated() bool })
	n := 0
	for src.Scan() {
		n++
		if n == 1 && opts.SkipRoot {
			continue
		}
		if tr != nil && tr.Truncated() {
			s.skip(n, src.Text(), ErrLineTooLong)
			continue
		}
		s.Step(n, src.Text())
	}
	if err := src.Err(); err != nil {
		return s.Result(), fmt.Errorf("reading %s: %w", source, err)
	}
	return s.Result(), nil
}

// ParseReader parses a dump read from r.
func ParseReader(r io.Reader, source string, opts Options) (*Result, error) {
	return Parse(NewLineReader(r, opts.MaxLineBytes), source, opts)
}

// ParseFile parses the dump stored at path. A missing file is an error.
func ParseFile(path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dump: %w", err)
	}
	defer f.Close()
	return ParseReader(f, filepath.ToSlash(path), opts)
}
