package orchestration

import (
	"io"
	"sync"
	"time"

	"github.com/richardbrinkman/plagiarism/internal/progress"
)

// Plan describes a run before its first task starts.
type Plan struct {
	// Units are the enumerated unit ids, in report order.
	Units []string
	// Tasks is the number of comparison tasks the run will execute.
	Tasks int
	// Mode is the decomposition, "whole-corpus" or "per-unit".
	Mode string
}

// ProgressReporter defines the interface for displaying run progress.
// This interface decouples the orchestration layer from the presentation
// layer: the driver never waits on a renderer.
//
// Implementations handle the visual representation of progress (status
// lines, spinners, dashboards) while the orchestration layer focuses on
// coordinating the comparisons.
type ProgressReporter interface {
	// DisplayProgress consumes events until the channel is closed. It is
	// called in a separate goroutine and must call wg.Done when it returns.
	DisplayProgress(wg *sync.WaitGroup, events <-chan progress.Event, plan Plan, out io.Writer)
}

// ProgressReporterFunc is a function adapter that implements ProgressReporter.
type ProgressReporterFunc func(wg *sync.WaitGroup, events <-chan progress.Event, plan Plan, out io.Writer)

// DisplayProgress calls the underlying function.
func (f ProgressReporterFunc) DisplayProgress(wg *sync.WaitGroup, events <-chan progress.Event, plan Plan, out io.Writer) {
	f(wg, events, plan, out)
}

// NullProgressReporter is a no-op implementation of ProgressReporter.
// It drains the event channel without displaying anything.
type NullProgressReporter struct{}

// DisplayProgress drains the channel without output.
func (NullProgressReporter) DisplayProgress(wg *sync.WaitGroup, events <-chan progress.Event, _ Plan, _ io.Writer) {
	defer wg.Done()
	for range events {
		// Drain channel silently
	}
}

// Observer receives one call per finished task. The HTTP server uses it
// to feed Prometheus.
type Observer interface {
	ObserveTask(status progress.Status, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveTask(progress.Status, time.Duration) {}
