package orchestration

import (
	"time"

	"github.com/richardbrinkman/plagiarism/internal/format"
	"github.com/richardbrinkman/plagiarism/internal/progress"
)

// ProgressAggregator folds a progress stream into counters and an ETA.
// It wraps format.Progress so that the terminal and dashboard renderers
// share the same bookkeeping. It is owned by a single renderer goroutine.
type ProgressAggregator struct {
	plan    Plan
	tracker *format.Progress

	running   int
	processed int
	failed    int
	sheets    int
	completed bool
}

// NewProgressAggregator creates an aggregator for plan.
func NewProgressAggregator(plan Plan) *ProgressAggregator {
	return &ProgressAggregator{plan: plan, tracker: format.NewProgress(plan.Tasks)}
}

// AggregatedProgress is the state after one event.
type AggregatedProgress struct {
	Event progress.Event
	// Fraction is the share of tasks that finished, in [0, 1].
	Fraction float64
	// ETA is the estimated time remaining.
	ETA time.Duration
	// Running is the number of tasks currently on a worker.
	Running   int
	Processed int
	Failed    int
	Sheets    int
	Completed bool
}

// Update records e and returns the resulting state.
func (a *ProgressAggregator) Update(e progress.Event) AggregatedProgress {
	switch e.Status {
	case progress.StatusProcessing:
		a.running++
	case progress.StatusProcessed:
		a.running--
		a.processed++
		a.tracker.Advance(1)
	case progress.StatusError:
		a.running--
		a.failed++
		a.tracker.Advance(1)
	case progress.StatusFinished:
		a.sheets++
	case progress.StatusCompleted:
		a.completed = true
	}
	return a.snapshot(e)
}

// Snapshot returns the current state without recording anything. Useful
// for periodic refresh between events.
func (a *ProgressAggregator) Snapshot() AggregatedProgress {
	return a.snapshot(progress.Event{})
}

func (a *ProgressAggregator) snapshot(e progress.Event) AggregatedProgress {
	return AggregatedProgress{
		Event:     e,
		Fraction:  a.tracker.Fraction(),
		ETA:       a.tracker.ETA(),
		Running:   a.running,
		Processed: a.processed,
		Failed:    a.failed,
		Sheets:    a.sheets,
		Completed: a.completed,
	}
}

// Plan returns the plan the aggregator was created for.
func (a *ProgressAggregator) Plan() Plan { return a.plan }

// Elapsed returns the time since the aggregator was created.
func (a *ProgressAggregator) Elapsed() time.Duration { return a.tracker.Elapsed() }

// DrainChannel reads all events from the channel without processing.
func DrainChannel(events <-chan progress.Event) {
	for range events {
	}
}
