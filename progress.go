package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// progressReporter shows a file progress bar on stderr. A nil reporter is
// silent.
type progressReporter struct {
	bar *progressbar.ProgressBar
}

func newProgressReporter(enabled bool, totalFiles int, w io.Writer) *progressReporter {
	if !enabled {
		return nil
	}
	return &progressReporter{
		bar: progressbar.NewOptions(totalFiles,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("Parsing files"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files/s"),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprintln(w)
			}),
		),
	}
}

func (p *progressReporter) fileDone() {
	if p == nil {
		return
	}
	_ = p.bar.Add(1)
}

func (p *progressReporter) finish() {
	if p == nil {
		return
	}
	_ = p.bar.Finish()
}
