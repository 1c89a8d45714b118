package tui

import (
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/richardbrinkman/plagiarism/internal/orchestration"
	"github.com/richardbrinkman/plagiarism/internal/progress"
)

// programRef is a shared reference to the tea.Program.
// Because bubbletea copies the model on every Update, we need a pointer
// that survives copies so the bridge goroutines can send messages.
type programRef struct {
	mu      sync.RWMutex
	program *tea.Program
}

// SetProgram sets the tea.Program reference (thread-safe).
func (r *programRef) SetProgram(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

// Send sends a message to the bubbletea program (thread-safe). It is a
// no-op until a program is set.
func (r *programRef) Send(msg tea.Msg) {
	r.mu.RLock()
	p := r.program
	r.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// TUIProgressReporter implements orchestration.ProgressReporter.
// It folds the event stream into counters and forwards each step as an
// EventMsg. Blocking on the program only stalls this goroutine; the hub
// queues events for it.
type TUIProgressReporter struct {
	ref *programRef
}

// Verify interface compliance.
var _ orchestration.ProgressReporter = (*TUIProgressReporter)(nil)

// DisplayProgress drains the event stream and sends EventMsg to the program.
func (t *TUIProgressReporter) DisplayProgress(wg *sync.WaitGroup, events <-chan progress.Event, plan orchestration.Plan, _ io.Writer) {
	defer wg.Done()

	agg := orchestration.NewProgressAggregator(plan)
	for e := range events {
		if e.Status == progress.StatusKeepalive {
			continue
		}
		t.ref.Send(EventMsg{Progress: agg.Update(e)})
	}
	t.ref.Send(StreamDoneMsg{})
}
