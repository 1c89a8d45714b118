package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/richardbrinkman/plagiarism/internal/orchestration"
	"github.com/richardbrinkman/plagiarism/internal/progress"
)

func newTestModel(t *testing.T) (Model, *bool) {
	t.Helper()
	cancelled := false
	plan := orchestration.Plan{Units: []string{"similarity"}, Tasks: 3, Mode: "whole-corpus"}
	m := NewModel(context.Background(), plan, "v1.0.0", func() { cancelled = true })
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return next.(Model), &cancelled
}

func event(status progress.Status, unit string, processed int) EventMsg {
	return EventMsg{Progress: orchestration.AggregatedProgress{
		Event:     progress.Event{Status: status, UnitID: unit},
		Processed: processed,
		Fraction:  float64(processed) / 3,
	}}
}

func TestModel_EventsFillUnitList(t *testing.T) {
	m, _ := newTestModel(t)

	for _, msg := range []EventMsg{
		event(progress.StatusProcessing, "comparison between a and b", 0),
		event(progress.StatusProcessing, "comparison between a and c", 0),
		event(progress.StatusProcessed, "comparison between a and b", 1),
	} {
		next, _ := m.Update(msg)
		m = next.(Model)
	}

	if m.units.Len() != 2 {
		t.Fatalf("unit list has %d rows, want 2", m.units.Len())
	}
	if got := m.units.rows[0].status; got != progress.StatusProcessed {
		t.Errorf("first row status = %q, want processed", got)
	}
	view := m.View()
	for _, want := range []string{"Plagiarism Monitor v1.0.0", "whole-corpus", "comparison between a and c", "RUNNING"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_PauseFreezesList(t *testing.T) {
	m, _ := newTestModel(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m = next.(Model)
	if !m.paused {
		t.Fatal("space should pause the dashboard")
	}

	next, _ = m.Update(event(progress.StatusProcessed, "x", 1))
	m = next.(Model)
	if m.units.Len() != 0 {
		t.Error("a paused dashboard should not add rows")
	}
	if m.metrics.counts.Processed != 1 {
		t.Error("counters should keep advancing while paused")
	}
}

func TestModel_RunDone(t *testing.T) {
	tests := []struct {
		name string
		msg  RunDoneMsg
		want string
	}{
		{"success", RunDoneMsg{Summary: orchestration.Summary{Output: "out.xlsx"}}, "report written to out.xlsx"},
		{"failure", RunDoneMsg{Err: errors.New("disk full")}, "disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestModel(t)
			next, cmd := m.Update(tt.msg)
			m = next.(Model)
			if cmd != nil {
				t.Error("the dashboard should stay open after the run")
			}
			if !m.done {
				t.Error("model should be done")
			}
			if !strings.Contains(m.View(), tt.want) {
				t.Errorf("view should mention %q", tt.want)
			}
			if _, cmd := m.Update(TickMsg{}); cmd != nil {
				t.Error("ticks stop once the run is done")
			}
		})
	}
}

func TestModel_QuitCancelsRun(t *testing.T) {
	m, cancelled := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if !*cancelled {
		t.Error("quitting should cancel the run")
	}
	if cmd == nil {
		t.Fatal("quitting should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quitting should return tea.Quit")
	}
}

func TestModel_ViewBeforeSize(t *testing.T) {
	m := NewModel(context.Background(), orchestration.Plan{}, "dev", nil)
	if got := m.View(); got != "Initializing..." {
		t.Errorf("View() = %q before the first WindowSizeMsg", got)
	}
}

func TestUnitsModel_Scroll(t *testing.T) {
	u := NewUnitsModel()
	u.SetSize(40, 7) // 5 visible rows
	for i := range 12 {
		u.AddEvent(progress.Event{Status: progress.StatusProcessing, UnitID: fmt.Sprint("unit ", i)})
	}
	u.AddEvent(progress.Event{Status: progress.StatusKeepalive})
	u.AddEvent(progress.Event{Status: progress.StatusCompleted})

	if u.Len() != 12 {
		t.Fatalf("Len() = %d, want 12 (run-level events are not rows)", u.Len())
	}
	if u.offset != 7 {
		t.Errorf("offset = %d, want the list to follow the tail", u.offset)
	}

	u.Scroll(-3)
	u.AddEvent(progress.Event{Status: progress.StatusProcessing, UnitID: "unit 12"})
	if u.offset != 4 {
		t.Errorf("offset = %d, a scrolled list should stay put", u.offset)
	}

	u.Scroll(100)
	if u.offset != u.maxOffset() || !u.follow {
		t.Error("scrolling to the bottom should resume following")
	}
	u.Scroll(-100)
	if u.offset != 0 {
		t.Errorf("offset = %d, want clamp at 0", u.offset)
	}
	if view := u.View(); !strings.Contains(view, "unit 0") || strings.Contains(view, "unit 9") {
		t.Errorf("view should show the first page only:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("comparison", 20); got != "comparison" {
		t.Errorf("truncate kept %q", got)
	}
	if got := truncate("comparison", 5); got != "comp…" {
		t.Errorf("truncate = %q, want %q", got, "comp…")
	}
}
