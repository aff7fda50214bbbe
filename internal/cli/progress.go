package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/docsentinel/docsentinel/docsentinel"
)

// scanProgressReporter renders a single progress bar over a scan's file
// count, the same progressbar.OptionThrottle-based shape the teacher's
// indexing progress reporter uses.
type scanProgressReporter struct {
	quiet     bool
	bar       *progressbar.ProgressBar
	startTime time.Time
}

func newScanProgressReporter(quiet bool) *scanProgressReporter {
	return &scanProgressReporter{quiet: quiet, startTime: time.Now()}
}

func (r *scanProgressReporter) fn() docsentinel.ProgressFunc {
	return func(p docsentinel.ScanProgress) {
		if r.quiet {
			return
		}
		if r.bar == nil && p.FilesTotal > 0 {
			r.bar = progressbar.NewOptions(p.FilesTotal,
				progressbar.OptionSetDescription("Scanning"),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("files/s"),
				progressbar.OptionThrottle(65*time.Millisecond),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionOnCompletion(func() { fmt.Println() }),
			)
		}
		if r.bar != nil {
			r.bar.Set(p.FilesDone)
		}
	}
}
