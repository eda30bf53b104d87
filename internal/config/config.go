// Package config loads astmap settings from defaults, an optional
// .astmap.yaml file, ASTMAP_* environment variables and command-line flags.
package config

import (
	"time"

	"github.com/phobologic/astmap/internal/logging"
)

// DefaultPath is the input read when no path is given.
const DefaultPath = "src/dump.txt"

// Config is the complete astmap configuration.
type Config struct {
	Input  InputConfig    `mapstructure:"input"`
	Parse  ParseConfig    `mapstructure:"parse"`
	Select SelectConfig   `mapstructure:"select"`
	Output OutputConfig   `mapstructure:"output"`
	Watch  WatchConfig    `mapstructure:"watch"`
	Log    logging.Config `mapstructure:"log"`
}

// InputConfig says what to read.
type InputConfig struct {
	// Path is a dump, a C++ source file or a directory to search.
	Path string `mapstructure:"path"`

	// Sources includes C++ sources when Path is a directory.
	Sources bool `mapstructure:"sources"`

	// Include restricts directory searches to matching relative paths.
	Include []string `mapstructure:"include"`

	// MaxFileSize skips files larger than this many bytes. Zero means no
	// limit.
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

// ParseConfig controls the dump parser.
type ParseConfig struct {
	KeepRoot     bool `mapstructure:"keep_root"`
	SkipImplicit bool `mapstructure:"skip_implicit"`
	MaxLineBytes int  `mapstructure:"max_line_bytes"`

	// Strict fails the run when any line produced a diagnostic.
	Strict bool `mapstructure:"strict"`
}

// SelectConfig trims the catalog before rendering.
type SelectConfig struct {
	// Class is a case-insensitive glob over class and struct names.
	Class string `mapstructure:"class"`

	// WithBases keeps the ancestors of matched classes.
	WithBases bool `mapstructure:"with_bases"`

	// MaxClasses keeps the highest-ranked classes. Zero keeps all.
	MaxClasses int `mapstructure:"max_classes"`
}

// OutputConfig says where and how the catalog is written.
type OutputConfig struct {
	// File receives a copy of stdout. "-" or "" disables it.
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"`

	// SQLite is a database path the catalog is stored in, if set.
	SQLite string `mapstructure:"sqlite"`

	// Cache is a file holding the last rendering, reused while no input
	// has changed.
	Cache string `mapstructure:"cache"`

	Progress bool `mapstructure:"progress"`
}

// WatchConfig controls re-rendering on input changes.
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Path:    DefaultPath,
			Include: []string{},
		},
		Parse: ParseConfig{
			MaxLineBytes: 1 << 20,
		},
		Output: OutputConfig{
			File:   "astmap.json",
			Format: "json",
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
		Log: logging.Config{
			Level:  "info",
			Format: "text",
		},
	}
}
