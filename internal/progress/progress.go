// Package progress shows extraction progress on stderr.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar for file processing. A nil Tracker is a no-op.
type Tracker struct {
	bar   *progressbar.ProgressBar
	out   io.Writer
	label string
	done  atomic.Int64
}

// NewSpinner creates a spinner for operations with unknown total count.
func NewSpinner(label string) *Tracker {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &Tracker{bar: bar, out: os.Stderr, label: label}
}

// NewTracker creates a progress bar on stderr with the given label and total.
func NewTracker(label string, total int) *Tracker {
	return newTracker(os.Stderr, label, total, true)
}

// NewQuiet creates a tracker that counts ticks but draws nothing. Machine
// formats and piped output use it.
func NewQuiet(label string, total int) *Tracker {
	return newTracker(io.Discard, label, total, false)
}

func newTracker(w io.Writer, label string, total int, visible bool) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetVisibility(visible),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, out: w, label: label}
}

// Tick increments the progress by 1. Safe for concurrent use.
func (t *Tracker) Tick() {
	if t == nil {
		return
	}
	t.done.Add(1)
	t.bar.Add(1)
}

// Done returns how many ticks were recorded.
func (t *Tracker) Done() int {
	if t == nil {
		return 0
	}
	return int(t.done.Load())
}

// FinishSuccess clears the bar completely (no output).
func (t *Tracker) FinishSuccess() {
	if t == nil {
		return
	}
	t.bar.Finish()
	t.bar.Clear()
}

// FinishError clears the bar and reports how many files failed.
func (t *Tracker) FinishError(failed int) {
	if t == nil {
		return
	}
	t.bar.Finish()
	t.bar.Clear()
	fmt.Fprintf(t.out, "  %s: %d files could not be extracted\n", t.label, failed)
}
