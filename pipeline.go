package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/astmap/internal/astdump"
	"github.com/phobologic/astmap/internal/config"
	"github.com/phobologic/astmap/internal/discover"
	"github.com/phobologic/astmap/internal/graph"
	"github.com/phobologic/astmap/internal/lang"
	"github.com/phobologic/astmap/internal/logging"
	"github.com/phobologic/astmap/internal/model"
	"github.com/phobologic/astmap/internal/parse"
	"github.com/phobologic/astmap/internal/ranking"
	"github.com/phobologic/astmap/internal/render"
	"github.com/phobologic/astmap/internal/sink"
)

// summary describes one generate run.
type summary struct {
	files       int
	classes     int
	structs     int
	diagnostics int
	cached      bool
}

// fileResult is the outcome of parsing one input file.
type fileResult struct {
	catalog     *model.Catalog
	diagnostics []astdump.Diagnostic
	err         error
}

// generate parses the configured inputs and writes the rendered catalog to
// stdout and the configured sinks.
func generate(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) (summary, error) {
	logger := logging.FromContext(ctx)

	root, files, err := resolveInputs(cfg)
	if err != nil {
		return summary{}, err
	}

	// Check cache freshness. Strict runs always parse, so diagnostics are
	// never hidden behind a cached rendering.
	key := cacheKey(cfg)
	if cfg.Output.Cache != "" && !cfg.Parse.Strict && cacheIsFresh(cfg.Output.Cache, root, files) {
		if data, ok := readCache(cfg.Output.Cache, key); ok {
			logger.Debug("using cached output", "cache", cfg.Output.Cache)
			if err := emit(cfg, data, stdout); err != nil {
				return summary{}, err
			}
			return summary{files: len(files), cached: true}, nil
		}
	}

	files = filterBySize(root, files, cfg.Input.MaxFileSize, logger)
	if len(files) == 0 {
		return summary{}, fmt.Errorf("no parseable files found (all exceeded size limit)")
	}

	opts := astdump.Options{
		SkipRoot:     !cfg.Parse.KeepRoot,
		SkipImplicit: cfg.Parse.SkipImplicit,
		MaxLineBytes: cfg.Parse.MaxLineBytes,
		Logger:       logger,
	}
	progress := newProgressReporter(cfg.Output.Progress && len(files) > 1, len(files), stderr)
	results := parseFilesConcurrent(ctx, root, files, opts, progress)

	var (
		cats  []*model.Catalog
		diags int
	)
	for i, r := range results {
		if r.err != nil {
			if len(files) == 1 {
				return summary{}, r.err
			}
			logger.Warn("skipping input", "path", files[i].Path, "error", r.err)
			continue
		}
		cats = append(cats, r.catalog)
		diags += len(r.diagnostics)
	}
	if len(cats) == 0 {
		return summary{}, fmt.Errorf("no files could be parsed")
	}

	cat := cats[0]
	if len(cats) > 1 {
		cat = model.Merge(filepath.ToSlash(cfg.Input.Path), cats...)
	}

	// Build hierarchy and rank
	h, err := graph.Build(cat)
	if err != nil {
		return summary{}, fmt.Errorf("building inheritance graph: %w", err)
	}
	for _, d := range h.Skipped() {
		logger.Debug("inheritance edge skipped", "derived", d.Derived, "base", d.Base, "access", string(d.Access))
	}
	graph.Rank(cat, h)

	if cfg.Output.SQLite != "" {
		if err := storeSQLite(ctx, cfg.Output.SQLite, cat); err != nil {
			return summary{}, err
		}
	}

	out := cat
	if cfg.Select.Class != "" {
		out, err = ranking.FilterRecords(out, h, cfg.Select.Class, cfg.Select.WithBases)
		if err != nil {
			return summary{}, err
		}
	}
	out = ranking.SelectClasses(out, cfg.Select.MaxClasses)

	format, err := render.ParseFormat(cfg.Output.Format)
	if err != nil {
		return summary{}, err
	}
	data, err := render.Encode(out, format)
	if err != nil {
		return summary{}, fmt.Errorf("rendering: %w", err)
	}
	if err := emit(cfg, data, stdout); err != nil {
		return summary{}, err
	}

	if cfg.Output.Cache != "" {
		if err := writeCache(cfg.Output.Cache, key, data); err != nil {
			logger.Warn("cache not written", "error", err)
		}
	}

	sum := summary{
		files:       len(cats),
		classes:     len(out.Classes),
		structs:     len(out.Structs),
		diagnostics: diags,
	}
	logger.Debug("catalog written", slog.Int("files", sum.files), slog.Int("classes", sum.classes),
		slog.Int("structs", sum.structs), slog.Int("diagnostics", sum.diagnostics))

	if cfg.Parse.Strict && diags > 0 {
		return sum, fmt.Errorf("%d dump lines could not be parsed (strict mode)", diags)
	}
	return sum, nil
}

// resolveInputs turns the configured path into a root and the files to
// parse, relative to that root. A single file is returned as given, with an
// empty root.
func resolveInputs(cfg *config.Config) (string, []discover.FileEntry, error) {
	path := cfg.Input.Path
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, fmt.Errorf("input path: %w", err)
	}

	if !info.IsDir() {
		name := lang.ForPath(path)
		if name == "" {
			name = lang.ClangAST
		}
		return "", []discover.FileEntry{{Path: path, Language: name}}, nil
	}

	files, err := discover.Files(path, discover.Options{
		Sources: cfg.Input.Sources,
		Include: cfg.Input.Include,
	})
	if err != nil {
		return "", nil, fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return "", nil, fmt.Errorf("no dump files found in %s", path)
	}
	return path, files, nil
}

// emit writes data to stdout and, unless disabled, to the output file.
func emit(cfg *config.Config, data []byte, stdout io.Writer) error {
	if _, err := stdout.Write(data); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if file := cfg.Output.File; file != "" && file != "-" {
		if err := sink.WriteFile(file, data); err != nil {
			return err
		}
	}
	return nil
}

func storeSQLite(ctx context.Context, path string, cat *model.Catalog) error {
	db, err := sink.OpenSQLite(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	if err := db.Store(ctx, cat); err != nil {
		db.Close()
		return fmt.Errorf("storing catalog in %s: %w", path, err)
	}
	return db.Close()
}

// cacheKey identifies the settings a cached rendering was produced with.
func cacheKey(cfg *config.Config) string {
	return fmt.Sprintf("# astmap %s format=%s keep-root=%t skip-implicit=%t sources=%t include=%s class=%q with-bases=%t max-classes=%d",
		version, cfg.Output.Format, cfg.Parse.KeepRoot, cfg.Parse.SkipImplicit, cfg.Input.Sources,
		strings.Join(cfg.Input.Include, ","), cfg.Select.Class, cfg.Select.WithBases, cfg.Select.MaxClasses)
}

func cacheIsFresh(cachePath, root string, files []discover.FileEntry) bool {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	cacheMtime := cacheInfo.ModTime()

	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			return false
		}
		if !fi.ModTime().Before(cacheMtime) {
			return false
		}
	}
	return true
}

// readCache returns the cached rendering if it was written with key.
func readCache(path, key string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	header, body, ok := bytes.Cut(data, []byte("\n"))
	if !ok || string(header) != key {
		return nil, false
	}
	return body, true
}

func writeCache(path, key string, data []byte) error {
	buf := make([]byte, 0, len(key)+1+len(data))
	buf = append(buf, key...)
	buf = append(buf, '\n')
	buf = append(buf, data...)
	return sink.WriteFile(path, buf)
}

func filterBySize(root string, files []discover.FileEntry, maxSize int64, logger *slog.Logger) []discover.FileEntry {
	if maxSize <= 0 {
		return files
	}
	var kept []discover.FileEntry
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			kept = append(kept, f) // keep if can't stat
			continue
		}
		if fi.Size() > maxSize {
			logger.Warn("file skipped", "path", f.Path, "size", fi.Size(), "limit", maxSize)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func parseFilesConcurrent(ctx context.Context, root string, files []discover.FileEntry, opts astdump.Options, progress *progressReporter) []fileResult {
	type result struct {
		index int
		fileResult
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup

	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Each goroutine gets its own tree-sitter parser
			var parser *sitter.Parser
			defer func() {
				if parser != nil {
					parser.Close()
				}
			}()

			for idx := range work {
				f := files[idx]
				absPath := filepath.Join(root, f.Path)

				l := lang.Languages[f.Language]
				if l != nil && l.Kind == lang.Source {
					if parser == nil {
						parser = l.NewParser()
					}
					results <- result{index: idx, fileResult: parseSource(ctx, parser, absPath, filepath.ToSlash(f.Path))}
					continue
				}
				results <- result{index: idx, fileResult: parseDump(absPath, opts)}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	out := make([]fileResult, len(files))
	for r := range results {
		out[r.index] = r.fileResult
		progress.fileDone()
	}
	progress.finish()

	return out
}

func parseDump(path string, opts astdump.Options) fileResult {
	res, err := astdump.ParseFile(path, opts)
	if err != nil {
		return fileResult{err: err}
	}
	return fileResult{catalog: res.Catalog, diagnostics: res.Diagnostics}
}

func parseSource(ctx context.Context, parser *sitter.Parser, path, source string) fileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileResult{err: fmt.Errorf("reading source: %w", err)}
	}
	cat, err := parse.ExtractCatalog(ctx, parser, data, source)
	if err != nil {
		return fileResult{err: err}
	}
	return fileResult{catalog: cat}
}
