package astdump

import (
	"errors"
	"fmt"
	"strings"
)

// Reasons a line was skipped or only partly understood.
var (
	ErrOddDecoration   = errors.New("odd-length branch decoration")
	ErrMalformedField  = errors.New("field declaration without name and quoted type")
	ErrMalformedMethod = errors.New("method declaration without name and quoted signature")
	ErrMalformedAccess = errors.New("base specifier without quoted type name")
	ErrNoOpenClass     = errors.New("no class is open")
	ErrNoOpenStruct    = errors.New("no struct is open")
	ErrLineTooLong     = errors.New("line exceeds the length limit")
)

// Diagnostic describes one dump line the parser could not fully use.
type Diagnostic struct {
	Line int
	Text string
	Err  error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("line %d: %v: %s", d.Line, d.Err, strings.TrimSpace(d.Text))
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}
