package config

import (
	"errors"
	"fmt"

	"github.com/phobologic/astmap/internal/logging"
	"github.com/phobologic/astmap/internal/render"
)

var (
	// ErrEmptyPath indicates no input path.
	ErrEmptyPath = errors.New("empty input path")

	// ErrInvalidFormat indicates an unsupported output format.
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrInvalidLimit indicates a negative or zero size limit.
	ErrInvalidLimit = errors.New("invalid limit")

	// ErrInvalidLog indicates an unknown log level or format.
	ErrInvalidLog = errors.New("invalid log settings")
)

// Validate checks that the configuration is valid and complete. All
// problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Input.Path == "" {
		errs = append(errs, ErrEmptyPath)
	}

	if _, err := render.ParseFormat(cfg.Output.Format); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidFormat, err))
	}

	if cfg.Parse.MaxLineBytes <= 0 {
		errs = append(errs, fmt.Errorf("%w: parse.max_line_bytes must be positive, got %d", ErrInvalidLimit, cfg.Parse.MaxLineBytes))
	}
	if cfg.Input.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("%w: input.max_file_size must not be negative, got %d", ErrInvalidLimit, cfg.Input.MaxFileSize))
	}
	if cfg.Select.MaxClasses < 0 {
		errs = append(errs, fmt.Errorf("%w: select.max_classes must not be negative, got %d", ErrInvalidLimit, cfg.Select.MaxClasses))
	}
	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("%w: watch.debounce must not be negative, got %s", ErrInvalidLimit, cfg.Watch.Debounce))
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidLog, err))
	}
	if _, err := logging.ParseFormat(cfg.Log.Format); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidLog, err))
	}

	return errors.Join(errs...)
}
