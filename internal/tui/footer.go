package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// FooterModel renders the key hints and the run status.
type FooterModel struct {
	bindings []key.Binding
	paused   bool
	done     bool
	failed   bool
	message  string
	width    int
}

// NewFooterModel creates a footer showing bindings.
func NewFooterModel(bindings []key.Binding) FooterModel {
	return FooterModel{bindings: bindings}
}

// SetWidth updates the available width.
func (f *FooterModel) SetWidth(w int) { f.width = w }

// SetPaused toggles the paused indicator.
func (f *FooterModel) SetPaused(p bool) { f.paused = p }

// SetDone marks the run as finished.
func (f *FooterModel) SetDone(d bool) { f.done = d }

// SetError marks the run as failed.
func (f *FooterModel) SetError(e bool) { f.failed = e }

// SetMessage sets the text shown after the key hints.
func (f *FooterModel) SetMessage(msg string) { f.message = msg }

// status returns the rendered status word.
func (f FooterModel) status() string {
	switch {
	case f.failed:
		return statusErrorStyle.Render("FAILED")
	case f.done:
		return statusDoneStyle.Render("DONE")
	case f.paused:
		return statusPausedStyle.Render("PAUSED")
	default:
		return statusRunningStyle.Render("RUNNING")
	}
}

// View renders the footer.
func (f FooterModel) View() string {
	hints := make([]string, 0, len(f.bindings))
	for _, b := range f.bindings {
		h := b.Help()
		hints = append(hints, footerKeyStyle.Render(h.Key)+" "+footerDescStyle.Render(h.Desc))
	}
	line := " " + f.status() + "  " + strings.Join(hints, "  ")
	if f.message != "" {
		line += "  " + footerDescStyle.Render(f.message)
	}
	return line
}
