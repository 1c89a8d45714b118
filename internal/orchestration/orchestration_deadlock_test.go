package orchestration

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/richardbrinkman/plagiarism/internal/progress"
	"github.com/richardbrinkman/plagiarism/internal/sheet"
	"github.com/richardbrinkman/plagiarism/internal/source"
)

// slowProgressReporter consumes events with a delay, simulating a slow
// terminal or a stalled SSE client.
type slowProgressReporter struct {
	delay time.Duration
}

func (r slowProgressReporter) DisplayProgress(wg *sync.WaitGroup, events <-chan progress.Event, _ Plan, _ io.Writer) {
	defer wg.Done()
	for range events {
		time.Sleep(r.delay)
	}
}

func corpus(n int, load func(i int) source.Entry) *fakeSource {
	job := source.Job{UnitID: "similarity"}
	for i := 0; i < n; i++ {
		job.Entries = append(job.Entries, load(i))
	}
	return &fakeSource{mode: source.WholeCorpus, roster: sheet.NewRoster("key"), jobs: []source.Job{job}}
}

// TestOrchestrationNoDeadlock_MixedBehaviors verifies that ExecuteDetection
// completes without deadlocking under various task and reader behaviors.
func TestOrchestrationNoDeadlock_MixedBehaviors(t *testing.T) {
	testCases := []struct {
		name     string
		src      *fakeSource
		reporter ProgressReporter
		workers  int
	}{
		{
			name:     "many_instant_pairs",
			src:      corpus(40, func(i int) source.Entry { return textEntry(fmt.Sprint(i), fmt.Sprint("text ", i)) }),
			reporter: NullProgressReporter{},
		},
		{
			name: "slow_pairs",
			src: corpus(6, func(i int) source.Entry {
				e := textEntry(fmt.Sprint(i), "slow")
				e.Load = func(context.Context) (string, error) {
					time.Sleep(time.Millisecond)
					return "slow", nil
				}
				return e
			}),
			reporter: NullProgressReporter{},
			workers:  2,
		},
		{
			name: "failing_pairs",
			src: corpus(8, func(i int) source.Entry {
				if i%2 == 0 {
					return failingEntry(fmt.Sprint(i), fmt.Errorf("entry %d", i))
				}
				return textEntry(fmt.Sprint(i), "ok")
			}),
			reporter: NullProgressReporter{},
		},
		{
			name:     "slow_reader",
			src:      corpus(20, func(i int) source.Entry { return textEntry(fmt.Sprint(i), "x") }),
			reporter: slowProgressReporter{delay: 100 * time.Microsecond},
			workers:  1,
		},
		{
			name:     "empty_corpus",
			src:      corpus(0, nil),
			reporter: NullProgressReporter{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			opts := Options{Workers: tc.workers, Output: filepath.Join(t.TempDir(), "r.xlsx")}
			done := make(chan struct{})
			go func() {
				defer close(done)
				_, _ = ExecuteDetection(ctx, tc.src, opts, tc.reporter, io.Discard)
			}()

			select {
			case <-done:
				// Success - no deadlock
			case <-time.After(10 * time.Second):
				t.Fatal("DEADLOCK: ExecuteDetection did not complete within timeout")
			}
		})
	}
}

// TestOrchestrationNoDeadlock_ContextCancellation verifies that cancelling
// the context during execution does not cause a deadlock.
func TestOrchestrationNoDeadlock_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	src := corpus(30, func(i int) source.Entry {
		e := textEntry(fmt.Sprint(i), "slow")
		e.Load = func(context.Context) (string, error) {
			time.Sleep(5 * time.Millisecond)
			return "slow", nil
		}
		return e
	})

	done := make(chan error, 1)
	go func() {
		_, err := ExecuteDetection(ctx, src, Options{Workers: 2, Output: filepath.Join(t.TempDir(), "r.xlsx")}, NullProgressReporter{}, io.Discard)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected an error from a cancelled run")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("DEADLOCK after context cancellation")
	}
}
