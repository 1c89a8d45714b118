package orchestration

import (
	"context"
	"errors"
	"io"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/richardbrinkman/plagiarism/internal/progress"
	"github.com/richardbrinkman/plagiarism/internal/sheet"
	"github.com/richardbrinkman/plagiarism/internal/similarity"
	"github.com/richardbrinkman/plagiarism/internal/source"
)

// fakeSource is an in-memory source.Source.
type fakeSource struct {
	mode   source.Mode
	roster *sheet.Roster
	jobs   []source.Job

	mu       sync.Mutex
	averaged [][]string
}

func (s *fakeSource) Kind() source.Kind         { return source.KindCandidate }
func (s *fakeSource) Mode() source.Mode         { return s.mode }
func (s *fakeSource) StudentTab() *sheet.Roster { return s.roster }
func (s *fakeSource) Close() error              { return nil }

func (s *fakeSource) UnitIDs() []string {
	ids := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		ids[i] = j.UnitID
	}
	return ids
}

func (s *fakeSource) Jobs() iter.Seq[source.Job] {
	return func(yield func(source.Job) bool) {
		for _, j := range s.jobs {
			if !yield(j) {
				return
			}
		}
	}
}

func (s *fakeSource) AverageTab(names []string) sheet.FormulaTable {
	s.mu.Lock()
	s.averaged = append(s.averaged, names)
	s.mu.Unlock()
	return sheet.NewFormulaTable(s.roster.Keys(), s.roster.Labels())
}

func textEntry(key, text string) source.Entry {
	return source.Entry{
		Key: key, StudentID: key, Name: key, Label: key,
		Load: func(context.Context) (string, error) { return text, nil },
	}
}

func failingEntry(key string, err error) source.Entry {
	return source.Entry{
		Key: key, StudentID: key, Name: key, Label: key,
		Load: func(context.Context) (string, error) { return "", err },
	}
}

func newRoster(keys ...string) *sheet.Roster {
	r := sheet.NewRoster("key")
	for _, k := range keys {
		r.Add(k)
	}
	return r
}

func countStatus(events []progress.Event, status progress.Status) int {
	n := 0
	for _, e := range events {
		if e.Status == status {
			n++
		}
	}
	return n
}

func runDetection(t *testing.T, ctx context.Context, src source.Source) (Summary, []progress.Event, error) {
	t.Helper()
	hub := progress.NewHub()
	out := filepath.Join(t.TempDir(), "report.xlsx")
	summary, err := ExecuteDetection(ctx, src, Options{
		Workers:    2,
		Similarity: similarity.Ratio,
		Output:     out,
		Hub:        hub,
	}, NullProgressReporter{}, io.Discard)
	if !hub.Closed() {
		t.Error("hub should be closed when ExecuteDetection returns")
	}
	return summary, hub.History(), err
}

func TestExecuteDetection_WholeCorpus(t *testing.T) {
	t.Parallel()
	src := &fakeSource{
		mode:   source.WholeCorpus,
		roster: newRoster("s1", "s2"),
		jobs: []source.Job{{
			UnitID: "similarity",
			Entries: []source.Entry{
				textEntry("a", "the quick brown fox"),
				textEntry("b", "the quick brown fox"),
				textEntry("c", "lorem ipsum"),
			},
		}},
	}

	summary, events, err := runDetection(t, context.Background(), src)
	if err != nil {
		t.Fatalf("ExecuteDetection() error = %v", err)
	}
	if summary.Plan.Tasks != 3 {
		t.Errorf("Plan.Tasks = %d, want 3", summary.Plan.Tasks)
	}
	if got := countStatus(events, progress.StatusProcessing); got != 3 {
		t.Errorf("processing events = %d, want 3", got)
	}
	if got := countStatus(events, progress.StatusProcessed); got != 3 {
		t.Errorf("processed events = %d, want 3", got)
	}
	if got := countStatus(events, progress.StatusFinished); got != 1 {
		t.Errorf("finished events = %d, want 1", got)
	}
	if got := countStatus(events, progress.StatusCompleted); got != 1 {
		t.Errorf("completed events = %d, want 1", got)
	}
	if last := events[len(events)-1]; last.Status != progress.StatusCompleted {
		t.Errorf("last event = %v, want completed", last)
	}
	if !slices.Equal(summary.Sheets, []string{"similarity"}) {
		t.Errorf("Sheets = %v, want [similarity]", summary.Sheets)
	}
	if len(src.averaged) != 1 || !slices.Equal(src.averaged[0], summary.Sheets) {
		t.Errorf("AverageTab called with %v, want %v", src.averaged, summary.Sheets)
	}
	if _, err := os.Stat(summary.Output); err != nil {
		t.Errorf("report not written: %v", err)
	}
	for _, e := range events {
		if e.Status == progress.StatusProcessing && e.UnitID == "" {
			t.Errorf("pair event without a name: %v", e)
		}
	}
}

func TestExecuteDetection_PairFailureLeavesNullCells(t *testing.T) {
	t.Parallel()
	src := &fakeSource{
		mode:   source.WholeCorpus,
		roster: newRoster("s1"),
		jobs: []source.Job{{
			UnitID: "similarity",
			Entries: []source.Entry{
				textEntry("a", "abc"),
				failingEntry("b", errors.New("cannot convert")),
				textEntry("c", "abd"),
			},
		}},
	}

	summary, events, err := runDetection(t, context.Background(), src)
	if err != nil {
		t.Fatalf("ExecuteDetection() error = %v", err)
	}
	if summary.Failed != 2 {
		t.Errorf("Failed = %d, want 2", summary.Failed)
	}
	if got := countStatus(events, progress.StatusError); got != 2 {
		t.Errorf("error events = %d, want 2", got)
	}
	if len(summary.Sheets) != 1 {
		t.Errorf("Sheets = %v, want one sheet despite failed pairs", summary.Sheets)
	}
}

func TestExecuteDetection_PerUnit(t *testing.T) {
	t.Parallel()
	keys := []string{"r1", "r2", "r3"}
	unit := func(id string, texts ...string) source.Job {
		j := source.Job{UnitID: id}
		for i, k := range keys {
			e := textEntry(k, texts[i])
			if texts[i] == "" {
				e = failingEntry(k, source.ErrNoText)
			}
			j.Entries = append(j.Entries, e)
		}
		return j
	}
	panicky := source.Job{UnitID: "broken", Entries: []source.Entry{{
		Key: "r1", Label: "r1",
		Load: func(context.Context) (string, error) { panic("boom") },
	}}}

	src := &fakeSource{
		mode:   source.PerUnit,
		roster: newRoster(keys...),
		jobs: []source.Job{
			unit("Vraag 1", "a", "a", "b"),
			panicky,
			unit("Vraag 3", "x", "", "y"),
		},
	}

	summary, events, err := runDetection(t, context.Background(), src)
	if err != nil {
		t.Fatalf("ExecuteDetection() error = %v", err)
	}
	if want := []string{"vraag 1", "vraag 3"}; !slices.Equal(summary.Sheets, want) {
		t.Errorf("Sheets = %v, want %v", summary.Sheets, want)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}

	var finished []progress.Event
	for _, e := range events {
		if e.Status == progress.StatusFinished {
			finished = append(finished, e)
		}
	}
	want := []progress.Event{
		{Status: progress.StatusFinished, UnitID: "Vraag 1", Job: 1},
		{Status: progress.StatusFinished, UnitID: "Vraag 3", Job: 3},
	}
	if !slices.Equal(finished, want) {
		t.Errorf("finished events = %v, want %v", finished, want)
	}
	if countStatus(events, progress.StatusCompleted) != 1 {
		t.Error("expected exactly one completed event")
	}
}

func TestExecuteDetection_TooFewEntries(t *testing.T) {
	t.Parallel()
	src := &fakeSource{
		mode:   source.WholeCorpus,
		roster: newRoster("s1"),
		jobs:   []source.Job{{UnitID: "similarity", Entries: []source.Entry{textEntry("a", "x")}}},
	}
	summary, events, err := runDetection(t, context.Background(), src)
	if err != nil {
		t.Fatalf("ExecuteDetection() error = %v", err)
	}
	if len(summary.Sheets) != 0 {
		t.Errorf("Sheets = %v, want none", summary.Sheets)
	}
	if countStatus(events, progress.StatusCompleted) != 1 {
		t.Error("expected exactly one completed event")
	}
}

func TestExecuteDetection_Canceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{
		mode:   source.WholeCorpus,
		roster: newRoster("s1"),
		jobs: []source.Job{{UnitID: "similarity", Entries: []source.Entry{
			textEntry("a", "x"), textEntry("b", "y"),
		}}},
	}
	_, events, err := runDetection(t, ctx, src)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if countStatus(events, progress.StatusCompleted) != 0 {
		t.Error("a cancelled run must not publish completed")
	}
}

func TestExecuteDetection_ReporterSeesWholeStream(t *testing.T) {
	t.Parallel()
	src := &fakeSource{
		mode:   source.WholeCorpus,
		roster: newRoster("s1"),
		jobs: []source.Job{{UnitID: "similarity", Entries: []source.Entry{
			textEntry("a", "x"), textEntry("b", "y"), textEntry("c", "z"),
		}}},
	}
	var seen []progress.Event
	var plan Plan
	reporter := ProgressReporterFunc(func(wg *sync.WaitGroup, events <-chan progress.Event, p Plan, _ io.Writer) {
		defer wg.Done()
		plan = p
		for e := range events {
			seen = append(seen, e)
		}
	})

	_, err := ExecuteDetection(context.Background(), src, Options{
		Output: filepath.Join(t.TempDir(), "r.xlsx"),
	}, reporter, io.Discard)
	if err != nil {
		t.Fatalf("ExecuteDetection() error = %v", err)
	}
	if plan.Tasks != 3 || plan.Mode != "whole-corpus" {
		t.Errorf("plan = %+v", plan)
	}
	if len(seen) == 0 || seen[len(seen)-1].Status != progress.StatusCompleted {
		t.Errorf("reporter stream should end with completed, got %v", seen)
	}
}
