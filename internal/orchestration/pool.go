package orchestration

import (
	"context"
	"fmt"
	"iter"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
	"github.com/richardbrinkman/plagiarism/internal/logging"
	"github.com/richardbrinkman/plagiarism/internal/progress"
	"github.com/richardbrinkman/plagiarism/internal/sheet"
)

const tracerName = "github.com/richardbrinkman/plagiarism/internal/orchestration"

// Task is one independently executable comparison.
type Task struct {
	// Seq is the 1-based position of the task in generation order.
	Seq int
	// Slot is the enumeration index of the unit the task belongs to.
	Slot int
	// Name is published with every progress event of the task.
	Name string
	// Run computes the result. It may run on any worker.
	Run func(ctx context.Context) (Result, error)

	unit *corpusUnit
}

// Result is what a task produces: a full matrix for a per-unit task, or a
// single score for a pair task.
type Result struct {
	Matrix *sheet.Matrix
	I, J   int
	Score  float64
}

// Outcome pairs a task with its result. Err is set when the task failed or
// panicked, in which case Result is zero.
type Outcome struct {
	Task   Task
	Result Result
	Err    error
}

// Pool runs tasks on a bounded number of workers. It never aborts, retries
// or reorders: every task it accepts produces exactly one Outcome.
type Pool struct {
	workers  int
	pub      progress.Publisher
	log      logging.Logger
	tracer   trace.Tracer
	observer Observer
}

// NewPool returns a pool of workers goroutines publishing to pub. A
// non-positive workers count selects runtime.GOMAXPROCS(0).
func NewPool(workers int, pub progress.Publisher, log logging.Logger, observer Observer) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = logging.Nop()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Pool{
		workers:  workers,
		pub:      pub,
		log:      log,
		tracer:   otel.Tracer(tracerName),
		observer: observer,
	}
}

// Workers returns the concurrency limit.
func (p *Pool) Workers() int { return p.workers }

// Execute pulls tasks lazily and returns a channel of outcomes in
// completion order. The channel closes once every started task has
// reported. Cancelling ctx stops the intake of new tasks; tasks already
// running finish normally.
func (p *Pool) Execute(ctx context.Context, tasks iter.Seq[Task]) <-chan Outcome {
	out := make(chan Outcome, p.workers)
	go func() {
		defer close(out)
		var g errgroup.Group
		g.SetLimit(p.workers)
		for t := range tasks {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				out <- p.run(ctx, t)
				return nil
			})
		}
		_ = g.Wait()
	}()
	return out
}

// run executes t behind the worker boundary: a panic or an error becomes
// a null result and an error event, never a pool failure.
func (p *Pool) run(ctx context.Context, t Task) (o Outcome) {
	o.Task = t
	p.pub.Publish(progress.Event{Status: progress.StatusProcessing, UnitID: t.Name, Job: t.Seq})

	ctx, span := p.tracer.Start(ctx, "comparison", trace.WithAttributes(
		attribute.Int("plagiarism.job", t.Seq),
		attribute.Int("plagiarism.slot", t.Slot),
		attribute.String("plagiarism.unit", t.Name),
	))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.Result = Result{}
			o.Err = apperrors.TaskError{Task: t.Name, Cause: fmt.Errorf("panic: %v", r)}
		}
		status := progress.StatusProcessed
		if o.Err != nil {
			status = progress.StatusError
			span.RecordError(o.Err)
			span.SetStatus(codes.Error, o.Err.Error())
			p.log.Warn("comparison failed",
				logging.String("unit", t.Name),
				logging.Int("job", t.Seq),
				logging.Err(o.Err))
		}
		span.End()
		p.observer.ObserveTask(status, time.Since(start))
		p.pub.Publish(progress.Event{Status: status, UnitID: t.Name, Job: t.Seq})
	}()

	res, err := t.Run(ctx)
	if err != nil {
		o.Err = apperrors.TaskError{Task: t.Name, Cause: err}
		return o
	}
	o.Result = res
	return o
}
