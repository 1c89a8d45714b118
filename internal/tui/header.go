package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/richardbrinkman/plagiarism/internal/format"
)

// HeaderModel renders the top bar: title, version, mode and elapsed time.
type HeaderModel struct {
	startTime time.Time
	endTime   time.Time
	version   string
	mode      string
	width     int
}

// NewHeaderModel creates a new header.
func NewHeaderModel(version, mode string) HeaderModel {
	return HeaderModel{
		startTime: time.Now(),
		version:   version,
		mode:      mode,
	}
}

// SetDone freezes the elapsed timer at the current time.
func (h *HeaderModel) SetDone() {
	if h.endTime.IsZero() {
		h.endTime = time.Now()
	}
}

// Elapsed returns the time since the header was created, frozen by SetDone.
func (h HeaderModel) Elapsed() time.Duration {
	if !h.endTime.IsZero() {
		return h.endTime.Sub(h.startTime)
	}
	return time.Since(h.startTime)
}

// SetWidth updates the available width.
func (h *HeaderModel) SetWidth(w int) {
	h.width = w
}

// View renders the header.
func (h HeaderModel) View() string {
	titleText := "Plagiarism Monitor"
	if h.version != "" && h.version != "dev" {
		titleText += " " + h.version
	}
	pipe := dimStyle.Render(" | ")
	left := titleStyle.Render(titleText) + pipe + dimStyle.Render(h.mode) + pipe +
		elapsedStyle.Render(fmt.Sprintf("Elapsed: %s", format.FormatExecutionDuration(h.Elapsed())))

	gap := max(h.width-2-lipgloss.Width(left), 0)
	return headerStyle.Width(h.width).Render(left + spaces(gap))
}

// spaces returns a string of n space characters.
func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("%*s", n, "")
}
