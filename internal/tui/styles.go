package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/richardbrinkman/plagiarism/internal/progress"
	"github.com/richardbrinkman/plagiarism/internal/ui"
)

// Style variables for the dashboard.
// Initialized from the ui theme system via initTUIStyles().
var (
	panelStyle         lipgloss.Style
	headerStyle        lipgloss.Style
	titleStyle         lipgloss.Style
	dimStyle           lipgloss.Style
	elapsedStyle       lipgloss.Style
	metricLabelStyle   lipgloss.Style
	metricValueStyle   lipgloss.Style
	chartBarStyle      lipgloss.Style
	chartEmptyStyle    lipgloss.Style
	sparklineStyle     lipgloss.Style
	footerKeyStyle     lipgloss.Style
	footerDescStyle    lipgloss.Style
	statusRunningStyle lipgloss.Style
	statusPausedStyle  lipgloss.Style
	statusDoneStyle    lipgloss.Style
	statusErrorStyle   lipgloss.Style

	eventStyles map[progress.Status]lipgloss.Style
)

func init() {
	initTUIStyles()
}

// initTUIStyles rebuilds all styles from the current ui theme.
// Called at package init and again from Run() after InitTheme has been invoked.
func initTUIStyles() {
	t := ui.GetCurrentTUITheme()

	panelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Foreground(t.Text)

	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Accent).
		Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Accent)

	dimStyle = lipgloss.NewStyle().
		Foreground(t.Dim)

	elapsedStyle = lipgloss.NewStyle().
		Foreground(t.Accent)

	metricLabelStyle = lipgloss.NewStyle().
		Foreground(t.Dim)

	metricValueStyle = lipgloss.NewStyle().
		Foreground(t.Accent).
		Bold(true)

	chartBarStyle = lipgloss.NewStyle().
		Foreground(t.Finished)

	chartEmptyStyle = lipgloss.NewStyle().
		Foreground(t.Dim)

	sparklineStyle = lipgloss.NewStyle().
		Foreground(t.Processed)

	footerKeyStyle = lipgloss.NewStyle().
		Foreground(t.Accent).
		Bold(true)

	footerDescStyle = lipgloss.NewStyle().
		Foreground(t.Dim)

	statusRunningStyle = lipgloss.NewStyle().
		Foreground(t.Processing).
		Bold(true)

	statusPausedStyle = lipgloss.NewStyle().
		Foreground(t.Processed).
		Bold(true)

	statusDoneStyle = lipgloss.NewStyle().
		Foreground(t.Finished).
		Bold(true)

	statusErrorStyle = lipgloss.NewStyle().
		Foreground(t.Error).
		Bold(true)

	eventStyles = map[progress.Status]lipgloss.Style{
		progress.StatusProcessing: lipgloss.NewStyle().Foreground(t.Processing),
		progress.StatusProcessed:  lipgloss.NewStyle().Foreground(t.Processed),
		progress.StatusFinished:   lipgloss.NewStyle().Foreground(t.Finished).Bold(true),
		progress.StatusError:      lipgloss.NewStyle().Foreground(t.Error).Bold(true),
	}
}

// statusStyle returns the style of a unit line in the given status.
func statusStyle(s progress.Status) lipgloss.Style {
	if st, ok := eventStyles[s]; ok {
		return st
	}
	return dimStyle
}
