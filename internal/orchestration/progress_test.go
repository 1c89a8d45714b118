package orchestration

import (
	"testing"

	"github.com/richardbrinkman/plagiarism/internal/progress"
)

func TestProgressAggregator_Update(t *testing.T) {
	agg := NewProgressAggregator(Plan{Units: []string{"u1", "u2"}, Tasks: 2})

	ap := agg.Update(progress.Event{Status: progress.StatusProcessing, UnitID: "u1", Job: 1})
	if ap.Running != 1 || ap.Fraction != 0 {
		t.Errorf("after processing: running=%d fraction=%f", ap.Running, ap.Fraction)
	}
	if ap.Event.UnitID != "u1" {
		t.Errorf("Event = %v, want u1", ap.Event)
	}

	ap = agg.Update(progress.Event{Status: progress.StatusProcessed, UnitID: "u1", Job: 1})
	if ap.Running != 0 || ap.Processed != 1 || ap.Fraction != 0.5 {
		t.Errorf("after processed: %+v", ap)
	}

	agg.Update(progress.Event{Status: progress.StatusProcessing, UnitID: "u2", Job: 2})
	ap = agg.Update(progress.Event{Status: progress.StatusError, UnitID: "u2", Job: 2})
	if ap.Failed != 1 || ap.Fraction != 1 {
		t.Errorf("after error: %+v", ap)
	}

	ap = agg.Update(progress.Event{Status: progress.StatusFinished, UnitID: "u1", Job: 1})
	if ap.Sheets != 1 {
		t.Errorf("Sheets = %d, want 1", ap.Sheets)
	}
	if ap.Completed {
		t.Error("Completed before the completed event")
	}
	ap = agg.Update(progress.Event{Status: progress.StatusCompleted})
	if !ap.Completed {
		t.Error("Completed should be set")
	}
}

func TestProgressAggregator_KeepaliveIsIgnored(t *testing.T) {
	agg := NewProgressAggregator(Plan{Tasks: 1})
	before := agg.Snapshot()
	agg.Update(progress.Event{Status: progress.StatusKeepalive})
	after := agg.Snapshot()
	if before.Fraction != after.Fraction || before.Running != after.Running {
		t.Errorf("keepalive changed state: %+v -> %+v", before, after)
	}
}

func TestProgressAggregator_Plan(t *testing.T) {
	plan := Plan{Units: []string{"a"}, Tasks: 4, Mode: "per-unit"}
	agg := NewProgressAggregator(plan)
	if agg.Plan().Tasks != 4 || agg.Plan().Mode != "per-unit" {
		t.Errorf("Plan() = %+v", agg.Plan())
	}
	if agg.Elapsed() < 0 {
		t.Error("Elapsed must not be negative")
	}
}

func TestDrainChannel(t *testing.T) {
	ch := make(chan progress.Event, 3)
	ch <- progress.Event{Status: progress.StatusProcessing}
	ch <- progress.Event{Status: progress.StatusProcessed}
	close(ch)
	DrainChannel(ch)
	if _, ok := <-ch; ok {
		t.Error("channel should be drained")
	}
}
