package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/richardbrinkman/plagiarism/internal/orchestration"
	"github.com/richardbrinkman/plagiarism/internal/progress"
	"github.com/richardbrinkman/plagiarism/internal/ui"
)

// LinesReporter prints one line per unit or pair and rewrites that line
// in place when its status changes. It needs an ANSI terminal.
type LinesReporter struct{}

var _ orchestration.ProgressReporter = LinesReporter{}

// DisplayProgress implements orchestration.ProgressReporter.
func (LinesReporter) DisplayProgress(wg *sync.WaitGroup, events <-chan progress.Event, _ orchestration.Plan, out io.Writer) {
	defer wg.Done()
	lw := newLineWriter(out)
	for e := range events {
		if e.Terminal() {
			orchestration.DrainChannel(events)
			return
		}
		lw.write(e)
	}
}

// lineWriter remembers the row every name was first printed on.
type lineWriter struct {
	out  io.Writer
	rows map[string]int
	row  int
}

func newLineWriter(out io.Writer) *lineWriter {
	return &lineWriter{out: out, rows: make(map[string]int)}
}

func (lw *lineWriter) write(e progress.Event) {
	if e.Status == progress.StatusKeepalive || e.UnitID == "" {
		return
	}
	line := statusLine(e)
	row, seen := lw.rows[e.UnitID]
	if !seen {
		lw.rows[e.UnitID] = lw.row
		lw.row++
		fmt.Fprintln(lw.out, line)
		return
	}
	// Save the cursor, jump to the start of the unit's line, restore.
	fmt.Fprintf(lw.out, "\0337\033[%dF%s\0338", lw.row-row, line)
}

// statusLine renders "[processed] name" with the status right-aligned in
// ten columns and colored by the active theme.
func statusLine(e progress.Event) string {
	status := string(e.Status)
	return fmt.Sprintf("[%s%10s%s] %s", ui.StatusColor(status), status, ui.ColorReset(), e.UnitID)
}

// PlainReporter appends one "[status] name" line per event. It is used
// when the output is not a terminal or --no-ansi is given.
type PlainReporter struct{}

var _ orchestration.ProgressReporter = PlainReporter{}

// DisplayProgress implements orchestration.ProgressReporter.
func (PlainReporter) DisplayProgress(wg *sync.WaitGroup, events <-chan progress.Event, _ orchestration.Plan, out io.Writer) {
	defer wg.Done()
	for e := range events {
		if e.Terminal() {
			orchestration.DrainChannel(events)
			return
		}
		if e.Status == progress.StatusKeepalive || e.UnitID == "" {
			continue
		}
		fmt.Fprintln(out, e.String())
	}
}
