package orchestration

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/richardbrinkman/plagiarism/internal/logging"
	"github.com/richardbrinkman/plagiarism/internal/sheet"
	"github.com/richardbrinkman/plagiarism/internal/similarity"
	"github.com/richardbrinkman/plagiarism/internal/source"
)

// corpusUnit accumulates the pair results of one whole-corpus job. The
// task generator creates it before yielding the job's first pair; from
// then on only the driver touches it.
type corpusUnit struct {
	matrix    *sheet.Matrix
	remaining int
	scored    int
}

// Decomposer splits a source into tasks according to its mode.
type Decomposer struct {
	sim similarity.Func
	log logging.Logger
}

// NewDecomposer returns a Decomposer scoring with sim.
func NewDecomposer(sim similarity.Func, log logging.Logger) *Decomposer {
	if sim == nil {
		sim = similarity.Ratio
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Decomposer{sim: sim, log: log}
}

// Count returns how many tasks Tasks will yield for src.
func (d *Decomposer) Count(src source.Source) int {
	n := 0
	for job := range src.Jobs() {
		if src.Mode() == source.PerUnit {
			n++
			continue
		}
		k := len(job.Entries)
		n += k * (k - 1) / 2
	}
	return n
}

// Tasks yields the tasks of src lazily. Whole-corpus jobs become one task
// per unordered pair of entries; per-unit jobs become one task each.
func (d *Decomposer) Tasks(src source.Source) iter.Seq[Task] {
	if src.Mode() == source.PerUnit {
		return d.unitTasks(src)
	}
	return d.pairTasks(src)
}

func (d *Decomposer) unitTasks(src source.Source) iter.Seq[Task] {
	return func(yield func(Task) bool) {
		slot := 0
		for job := range src.Jobs() {
			t := Task{
				Seq:  slot + 1,
				Slot: slot,
				Name: job.UnitID,
				Run: func(ctx context.Context) (Result, error) {
					return Result{Matrix: d.computeMatrix(ctx, job)}, nil
				},
			}
			if !yield(t) {
				return
			}
			slot++
		}
	}
}

// computeMatrix scores every pair of a unit. Entries without text keep
// null cells; the unit still yields a matrix.
func (d *Decomposer) computeMatrix(ctx context.Context, job source.Job) *sheet.Matrix {
	m := sheet.NewMatrix(job.Keys(), job.Labels())
	texts := make([]string, len(job.Entries))
	present := make([]bool, len(job.Entries))
	for i, e := range job.Entries {
		text, err := e.Load(ctx)
		if err != nil {
			if !errors.Is(err, source.ErrNoText) {
				d.log.Warn("cannot load answer",
					logging.String("unit", job.UnitID),
					logging.String("entry", e.Key),
					logging.Err(err))
			}
			continue
		}
		texts[i], present[i] = text, true
	}
	for i := range texts {
		if !present[i] {
			continue
		}
		for j := i + 1; j < len(texts); j++ {
			if present[j] {
				m.Set(i, j, d.sim(texts[i], texts[j]))
			}
		}
	}
	return m
}

func (d *Decomposer) pairTasks(src source.Source) iter.Seq[Task] {
	return func(yield func(Task) bool) {
		seq, slot := 0, -1
		for job := range src.Jobs() {
			slot++
			n := len(job.Entries)
			if n < 2 {
				d.log.Info("skipping unit with fewer than two submissions",
					logging.String("unit", job.UnitID), logging.Int("submissions", n))
				continue
			}
			unit := &corpusUnit{
				matrix:    sheet.NewMatrix(job.Keys(), job.Labels()),
				remaining: n * (n - 1) / 2,
			}
			for i := 0; i < n; i++ {
				for j := i + 1; j < n; j++ {
					seq++
					a, b := job.Entries[i], job.Entries[j]
					t := Task{
						Seq:  seq,
						Slot: slot,
						Name: fmt.Sprintf("comparison between %s and %s", a.Name, b.Name),
						Run: func(ctx context.Context) (Result, error) {
							return d.scorePair(ctx, a, b, i, j)
						},
						unit: unit,
					}
					if !yield(t) {
						return
					}
				}
			}
		}
	}
}

func (d *Decomposer) scorePair(ctx context.Context, a, b source.Entry, i, j int) (Result, error) {
	ta, err := a.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	tb, err := b.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{I: i, J: j, Score: d.sim(ta, tb)}, nil
}
