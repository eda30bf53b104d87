package astdump

import (
	"bufio"
	"errors"
	"io"
)

// LineReader splits a dump into lines like bufio.Scanner, but a line longer
// than its limit does not stop the scan. Text returns the first limit bytes
// of such a line and Truncated reports it.
type LineReader struct {
	r     *bufio.Reader
	limit int
	line  []byte
	long  bool
	err   error
}

// NewLineReader returns a LineReader over r for lines up to limit bytes, or
// DefaultMaxLineBytes when limit is not positive.
func NewLineReader(r io.Reader, limit int) *LineReader {
	if limit <= 0 {
		limit = DefaultMaxLineBytes
	}
	return &LineReader{
		r:     bufio.NewReaderSize(r, min(64*1024, limit)),
		limit: limit,
	}
}

// Scan advances to the next line, dropping the trailing "\n" or "\r\n".
func (lr *LineReader) Scan() bool {
	if lr.err != nil {
		return false
	}
	lr.line = lr.line[:0]

	var (
		read, size int
		last       byte
	)
	for {
		chunk, err := lr.r.ReadSlice('\n')
		read += len(chunk)
		if err == nil {
			chunk = chunk[:len(chunk)-1]
		}
		if len(chunk) > 0 {
			size += len(chunk)
			last = chunk[len(chunk)-1]
		}
		if room := lr.limit - len(lr.line); room > 0 {
			lr.line = append(lr.line, chunk[:min(room, len(chunk))]...)
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			lr.err = err
			if !errors.Is(err, io.EOF) || read == 0 {
				return false
			}
		}
		break
	}

	if last == '\r' {
		size--
		if len(lr.line) > size {
			lr.line = lr.line[:size]
		}
	}
	lr.long = size > lr.limit
	return true
}

// Text returns the current line.
func (lr *LineReader) Text() string {
	return string(lr.line)
}

// Truncated reports whether the current line exceeded the limit.
func (lr *LineReader) Truncated() bool {
	return lr.long
}

// Err returns the first read error other than io.EOF.
func (lr *LineReader) Err() error {
	if errors.Is(lr.err, io.EOF) {
		return nil
	}
	return lr.err
}
