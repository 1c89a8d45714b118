package orchestration

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/richardbrinkman/plagiarism/internal/logging"
	"github.com/richardbrinkman/plagiarism/internal/progress"
	"github.com/richardbrinkman/plagiarism/internal/report"
	"github.com/richardbrinkman/plagiarism/internal/sheet"
	"github.com/richardbrinkman/plagiarism/internal/similarity"
	"github.com/richardbrinkman/plagiarism/internal/source"
)

// Options configures ExecuteDetection.
type Options struct {
	// Workers bounds the pool. Zero selects runtime.GOMAXPROCS(0).
	Workers int
	// Similarity scores a pair of texts. Defaults to similarity.Ratio.
	Similarity similarity.Func
	// Output is the path the report is saved to.
	Output string
	// Hub receives the progress stream. A private hub is used when nil.
	// ExecuteDetection closes it before returning.
	Hub *progress.Hub
	// Logger defaults to a no-op logger.
	Logger logging.Logger
	// Observer is told about every finished task.
	Observer Observer
}

// Summary describes a finished run.
type Summary struct {
	Plan     Plan
	Sheets   []string
	Failed   int
	Duration time.Duration
	Output   string
}

// ExecuteDetection orchestrates one detection run.
//
// It decomposes src into tasks, runs them on the worker pool, feeds every
// result to the report builder as it arrives and, once the pool drains,
// writes the average sheet and saves the report. The progress stream ends
// with exactly one completed event, published after the report is on disk.
// When the run fails or ctx is cancelled the hub closes without it.
//
// Per-task failures never abort the run: they are published as error
// events and leave null cells, or drop the unit when nothing of it could
// be computed.
func ExecuteDetection(ctx context.Context, src source.Source, opts Options, reporter ProgressReporter, out io.Writer) (Summary, error) {
	start := time.Now()
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	hub := opts.Hub
	if hub == nil {
		hub = progress.NewHub()
	}
	if reporter == nil {
		reporter = NullProgressReporter{}
	}

	dec := NewDecomposer(opts.Similarity, log)
	plan := PlanFor(src)
	summary := Summary{Plan: plan, Output: opts.Output}

	sub := hub.Subscribe()
	var displayWg sync.WaitGroup
	displayWg.Add(1)
	go reporter.DisplayProgress(&displayWg, sub.C, plan, out)
	defer func() {
		hub.Close()
		displayWg.Wait()
		sub.Unsubscribe()
	}()

	builder, err := report.NewBuilder(plan.Units, src.StudentTab())
	if err != nil {
		return summary, err
	}
	defer builder.Close()

	log.Info("starting detection",
		logging.String("kind", src.Kind().String()),
		logging.String("mode", plan.Mode),
		logging.Int("units", len(plan.Units)),
		logging.Int("tasks", plan.Tasks))

	d := &driver{hub: hub, builder: builder, seqBySlot: make(map[int]int)}
	pool := NewPool(opts.Workers, hub, log, opts.Observer)
	for o := range pool.Execute(ctx, dec.Tasks(src)) {
		d.handle(o)
	}
	summary.Failed = d.failed

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if d.err != nil {
		return summary, d.err
	}

	written, err := builder.Complete()
	if err != nil {
		return summary, err
	}
	d.finished(written)
	summary.Sheets = builder.Sheets()

	if err := builder.WriteAverage(src.AverageTab(summary.Sheets)); err != nil {
		return summary, err
	}
	if err := builder.Save(opts.Output); err != nil {
		return summary, err
	}
	summary.Duration = time.Since(start)

	log.Info("report written",
		logging.String("output", opts.Output),
		logging.Int("sheets", len(summary.Sheets)),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration))
	hub.Publish(progress.Event{Status: progress.StatusCompleted})
	return summary, nil
}

// PlanFor describes the run ExecuteDetection performs on src.
func PlanFor(src source.Source) Plan {
	dec := NewDecomposer(nil, nil)
	return Plan{Units: src.UnitIDs(), Tasks: dec.Count(src), Mode: src.Mode().String()}
}

// driver is the single consumer of the pool's outcomes and the only
// goroutine touching the builder.
type driver struct {
	hub       *progress.Hub
	builder   *report.Builder
	seqBySlot map[int]int
	failed    int
	err       error
}

func (d *driver) handle(o Outcome) {
	if o.Err != nil {
		d.failed++
	}
	if u := o.Task.unit; u != nil {
		u.remaining--
		if o.Err == nil {
			u.matrix.Set(o.Result.I, o.Result.J, o.Result.Score)
			u.scored++
		}
		if u.remaining > 0 {
			return
		}
		m := u.matrix
		if u.scored == 0 {
			m = nil
		}
		d.add(o.Task.Slot, m)
		return
	}

	d.seqBySlot[o.Task.Slot] = o.Task.Seq
	if o.Err != nil {
		d.add(o.Task.Slot, nil)
		return
	}
	d.add(o.Task.Slot, o.Result.Matrix)
}

func (d *driver) add(slot int, m *sheet.Matrix) {
	if d.err != nil {
		return
	}
	written, err := d.builder.Add(slot, m)
	if err != nil {
		d.err = fmt.Errorf("write sheet: %w", err)
	}
	d.finished(written)
}

func (d *driver) finished(written []report.Written) {
	for _, w := range written {
		d.hub.Publish(progress.Event{Status: progress.StatusFinished, UnitID: w.UnitID, Job: d.seqBySlot[w.Slot]})
	}
}
