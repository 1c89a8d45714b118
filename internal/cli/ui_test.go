package cli

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/briandowns/spinner"

	"github.com/richardbrinkman/plagiarism/internal/orchestration"
	"github.com/richardbrinkman/plagiarism/internal/progress"
	"github.com/richardbrinkman/plagiarism/internal/ui"
)

// MockSpinner for testing
type MockSpinner struct {
	started  bool
	stopped  bool
	suffix   string
	suffixes int
}

func (m *MockSpinner) Start() {
	m.started = true
}

func (m *MockSpinner) Stop() {
	m.stopped = true
}

func (m *MockSpinner) UpdateSuffix(suffix string) {
	m.suffix = suffix
	m.suffixes++
}

func withMockSpinner(t *testing.T) *MockSpinner {
	t.Helper()
	original := newSpinner
	t.Cleanup(func() { newSpinner = original })
	mockS := &MockSpinner{}
	newSpinner = func(io.Writer) Spinner { return mockS }
	return mockS
}

func withNoColor(t *testing.T) {
	t.Helper()
	saved := ui.GetCurrentTheme()
	t.Cleanup(func() { ui.SetCurrentTheme(saved) })
	ui.SetCurrentTheme(ui.NoColorTheme)
}

func TestRealSpinner(t *testing.T) {
	t.Parallel()
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(io.Discard))
	rs := &realSpinner{s}

	// Just verify these methods don't panic
	rs.Start()
	rs.UpdateSuffix(" test")
	rs.Stop()
}

func TestDisplayProgress(t *testing.T) {
	mockS := withMockSpinner(t)
	withNoColor(t)

	var wg sync.WaitGroup
	wg.Add(1)

	events := make(chan progress.Event)
	var out bytes.Buffer
	plan := orchestration.Plan{Units: []string{"similarity"}, Tasks: 2, Mode: "whole-corpus"}

	go func() {
		events <- progress.Event{Status: progress.StatusProcessing, UnitID: "a", Job: 1}
		events <- progress.Event{Status: progress.StatusProcessed, UnitID: "a", Job: 1}
		events <- progress.Event{Status: progress.StatusProcessing, UnitID: "b", Job: 2}
		events <- progress.Event{Status: progress.StatusError, UnitID: "b", Job: 2}
		events <- progress.Event{Status: progress.StatusFinished, UnitID: "similarity"}
		events <- progress.Event{Status: progress.StatusCompleted}
		close(events)
	}()

	DisplayProgress(&wg, events, plan, &out)
	wg.Wait()

	if !mockS.started {
		t.Error("Spinner should have started")
	}
	if !mockS.stopped {
		t.Error("Spinner should have stopped")
	}
	if !strings.Contains(mockS.suffix, "(2/2 jobs, 1 failed)") {
		t.Errorf("last suffix = %q, want the job counts", mockS.suffix)
	}
	if got := out.String(); got != "[completed] 2/2 jobs, 1 sheets, 1 failed\n" {
		t.Errorf("final line = %q", got)
	}
}

func TestDisplayProgress_Aborted(t *testing.T) {
	withMockSpinner(t)
	withNoColor(t)

	var wg sync.WaitGroup
	wg.Add(1)
	events := make(chan progress.Event)
	close(events)

	var out bytes.Buffer
	DisplayProgress(&wg, events, orchestration.Plan{}, &out)
	wg.Wait()

	if !strings.HasPrefix(out.String(), "[aborted]") {
		t.Errorf("a stream without completed should render as aborted, got %q", out.String())
	}
}

func TestSpinnerSuffix(t *testing.T) {
	withNoColor(t)
	ap := orchestration.AggregatedProgress{Fraction: 0.5, Processed: 1500}
	got := spinnerSuffix(ap, orchestration.Plan{Tasks: 3000})
	if !strings.Contains(got, "50.00%") {
		t.Errorf("suffix %q should contain the percentage", got)
	}
	if !strings.HasSuffix(got, "(1,500/3,000 jobs)") {
		t.Errorf("suffix %q should end with the grouped job counts", got)
	}
}
