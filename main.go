// astmap builds a catalog of C++ classes and structs from clang AST dumps
// (clang -Xclang -ast-dump -fsyntax-only) or C++ sources, and renders it as
// JSON or TOON.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/phobologic/astmap/internal/config"
	"github.com/phobologic/astmap/internal/lang"
	"github.com/phobologic/astmap/internal/logging"
	"github.com/phobologic/astmap/internal/watch"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

// flagBindings maps config keys to the flags that override them.
var flagBindings = map[string]string{
	"input.sources":        "sources",
	"input.include":        "include",
	"input.max_file_size":  "max-file-size",
	"parse.keep_root":      "keep-root",
	"parse.skip_implicit":  "skip-implicit",
	"parse.max_line_bytes": "max-line-bytes",
	"parse.strict":         "strict",
	"select.class":         "class",
	"select.with_bases":    "with-bases",
	"select.max_classes":   "max-classes",
	"output.file":          "output",
	"output.format":        "format",
	"output.sqlite":        "sqlite",
	"output.cache":         "cache",
	"output.progress":      "progress",
	"watch.enabled":        "watch",
	"watch.debounce":       "debounce",
	"log.format":           "log-format",
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		configFile  string
		verbose     bool
		showVersion bool
	)

	cmd := &cobra.Command{
		Use:   "astmap [flags] [path]",
		Short: "Catalog C++ classes and structs from clang AST dumps",
		Long: `astmap reads the textual AST dump printed by clang -ast-dump and lists every
class with its bases and methods and every struct with its fields.

path is a dump file (default src/dump.txt), a C++ source file, or a directory
searched for *.ast, *.astdump, *.dump and dump.txt files.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				_, _ = fmt.Fprintf(stdout, "astmap %s\n", version)
				return nil
			}

			cfg, err := loadConfig(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Input.Path = args[0]
			}
			if verbose {
				cfg.Log.Level = "debug"
			}

			logger, err := logging.New(cfg.Log, stderr)
			if err != nil {
				return err
			}

			ctx := logging.WithLogger(cmd.Context(), logger)
			if cfg.Watch.Enabled {
				return watchInputs(ctx, cfg, stdout, stderr)
			}
			_, err = generate(ctx, cfg, stdout, stderr)
			return err
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	defaults := config.Default()
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file (default is ./.astmap.yaml)")
	f.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	f.BoolVarP(&showVersion, "version", "V", false, "show version and exit")

	f.Bool("sources", defaults.Input.Sources, "also parse C++ sources when path is a directory")
	f.StringSlice("include", nil, "only read files matching these globs (relative to path)")
	f.Int64("max-file-size", defaults.Input.MaxFileSize, "skip files larger than this many bytes (0 = no limit)")

	f.Bool("keep-root", defaults.Parse.KeepRoot, "parse the first dump line instead of skipping it")
	f.Bool("skip-implicit", defaults.Parse.SkipImplicit, "drop compiler-generated methods")
	f.Int("max-line-bytes", defaults.Parse.MaxLineBytes, "longest dump line accepted")
	f.Bool("strict", defaults.Parse.Strict, "fail when any line could not be parsed")

	f.String("class", defaults.Select.Class, "only keep classes and structs matching this glob")
	f.Bool("with-bases", defaults.Select.WithBases, "with --class, also keep the bases of matched classes")
	f.IntP("max-classes", "n", defaults.Select.MaxClasses, "keep only the N most central classes")

	f.StringP("output", "o", defaults.Output.File, `also write the output to this file ("-" to disable)`)
	f.StringP("format", "f", defaults.Output.Format, "output format: json or toon")
	f.String("sqlite", defaults.Output.SQLite, "store the catalog in this SQLite database")
	f.String("cache", defaults.Output.Cache, "cache file path")
	f.Bool("progress", defaults.Output.Progress, "show a progress bar when parsing many files")

	f.Bool("watch", defaults.Watch.Enabled, "re-render whenever an input changes")
	f.Duration("debounce", defaults.Watch.Debounce, "quiet period before re-rendering in watch mode")
	f.String("log-format", defaults.Log.Format, "log format: text or json")

	return cmd
}

func loadConfig(flags *pflag.FlagSet, configFile string) (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	loader := config.NewLoader(wd).BindFlags(flags, flagBindings)
	if configFile != "" {
		loader = loader.WithConfigFile(configFile)
	}
	return loader.Load()
}

// watchInputs renders once, then again after every change to the inputs
// until interrupted.
func watchInputs(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	logger := logging.FromContext(ctx)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	match := func(path string) bool { return lang.ForPath(path) != "" }
	w, err := watch.New(cfg.Input.Path, cfg.Watch.Debounce, match, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	rerender := func(ctx context.Context) error {
		sum, err := generate(ctx, cfg, stdout, stderr)
		if err != nil {
			return err
		}
		logger.Info("rendered", slog.Int("classes", sum.classes), slog.Int("structs", sum.structs),
			slog.Int("diagnostics", sum.diagnostics))
		return nil
	}
	if err := rerender(ctx); err != nil {
		logger.Error("render failed", "error", err)
	}
	return w.Run(ctx, rerender)
}
