//go:generate mockgen -source=ui.go -destination=mocks/mock_ui.go -package=mocks

package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/richardbrinkman/plagiarism/internal/format"
	"github.com/richardbrinkman/plagiarism/internal/orchestration"
	"github.com/richardbrinkman/plagiarism/internal/progress"
	"github.com/richardbrinkman/plagiarism/internal/ui"
)

const (
	// ProgressRefreshRate defines the refresh frequency of the spinner line.
	ProgressRefreshRate = 200 * time.Millisecond
	// ProgressBarWidth defines the width in characters of the progress bar.
	ProgressBarWidth = 40
)

// Spinner abstracts a terminal spinner so that the spinner renderer can
// be tested without a terminal.
type Spinner interface {
	// Start begins the spinner animation.
	Start()
	// Stop halts the spinner animation.
	Stop()
	// UpdateSuffix sets the text that is displayed after the spinner.
	UpdateSuffix(suffix string)
}

// realSpinner adapts spinner.Spinner to the Spinner interface.
type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start() { rs.s.Start() }
func (rs *realSpinner) Stop()  { rs.s.Stop() }

// UpdateSuffix sets the text that is displayed after the spinner.
func (rs *realSpinner) UpdateSuffix(suffix string) {
	rs.s.Lock()
	rs.s.Suffix = suffix
	rs.s.Unlock()
}

var newSpinner = func(out io.Writer) Spinner {
	s := spinner.New(spinner.CharSets[11], ProgressRefreshRate, spinner.WithWriter(out))
	return &realSpinner{s}
}

// SpinnerReporter renders the run as a single spinner line with an
// overall progress bar and ETA.
type SpinnerReporter struct{}

var _ orchestration.ProgressReporter = SpinnerReporter{}

// DisplayProgress implements orchestration.ProgressReporter.
func (SpinnerReporter) DisplayProgress(wg *sync.WaitGroup, events <-chan progress.Event, plan orchestration.Plan, out io.Writer) {
	DisplayProgress(wg, events, plan, out)
}

// DisplayProgress drives a spinner from the event stream. The suffix is
// refreshed on every event and on a ticker so that the ETA keeps moving
// while long comparisons run.
func DisplayProgress(wg *sync.WaitGroup, events <-chan progress.Event, plan orchestration.Plan, out io.Writer) {
	defer wg.Done()
	agg := orchestration.NewProgressAggregator(plan)
	s := newSpinner(out)
	s.UpdateSuffix(spinnerSuffix(agg.Snapshot(), plan))
	s.Start()

	ticker := time.NewTicker(ProgressRefreshRate)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				s.Stop()
				printFinalLine(agg.Snapshot(), plan, out)
				return
			}
			s.UpdateSuffix(spinnerSuffix(agg.Update(e), plan))
		case <-ticker.C:
			s.UpdateSuffix(spinnerSuffix(agg.Snapshot(), plan))
		}
	}
}

// spinnerSuffix renders " [bar] 42.00% ETA: 1m5s (12/30 jobs, 1 failed)".
func spinnerSuffix(ap orchestration.AggregatedProgress, plan orchestration.Plan) string {
	suffix := fmt.Sprintf(" %s (%s/%s jobs",
		format.FormatProgressBarWithETA(ap.Fraction, ap.ETA, ProgressBarWidth),
		format.FormatNumber(ap.Processed+ap.Failed), format.FormatNumber(plan.Tasks))
	if ap.Failed > 0 {
		suffix += fmt.Sprintf(", %s%d failed%s", ui.ColorError(), ap.Failed, ui.ColorReset())
	}
	return suffix + ")"
}

func printFinalLine(ap orchestration.AggregatedProgress, plan orchestration.Plan, out io.Writer) {
	status, color := "completed", ui.ColorSuccess()
	if !ap.Completed {
		status, color = "aborted", ui.ColorError()
	}
	fmt.Fprintf(out, "[%s%s%s] %s/%s jobs, %d sheets, %d failed\n",
		color, status, ui.ColorReset(),
		format.FormatNumber(ap.Processed+ap.Failed), format.FormatNumber(plan.Tasks),
		ap.Sheets, ap.Failed)
}
