// Package cli provides the terminal front end: live progress display and
// result output.
package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/agbru/primecalc/internal/task"
)

// DisplayProgress consumes progress updates from the channel and renders a
// single-line live display until the channel closes; with plain set it prints
// occasional progress lines instead. It is meant to run in
// its own goroutine; wg is released on return.
func DisplayProgress(wg *sync.WaitGroup, updates <-chan task.ProgressUpdate, out io.Writer, plain bool) {
	defer wg.Done()

	if plain {
		displayPlain(updates, out)
		return
	}

	s := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = "  starting"
	s.Start()
	defer s.Stop()
	for update := range updates {
		s.Suffix = fmt.Sprintf("  %5.1f%%  (%d transforms)", update.Fraction*100, update.Transforms)
	}
}

// displayPlain prints occasional progress lines for non-interactive output.
func displayPlain(updates <-chan task.ProgressUpdate, out io.Writer) {
	last := -1.0
	for update := range updates {
		if update.Fraction-last < 0.1 && update.Fraction < 1.0 {
			continue
		}
		last = update.Fraction
		fmt.Fprintf(out, "progress: %5.1f%%  (%d transforms)\n", update.Fraction*100, update.Transforms)
	}
}

// FormatExecutionDuration renders a duration with sensible precision for the
// summary line.
func FormatExecutionDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return d.Round(time.Second).String()
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(time.Microsecond).String()
	default:
		return d.String()
	}
}
