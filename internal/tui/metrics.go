package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/richardbrinkman/plagiarism/internal/format"
	"github.com/richardbrinkman/plagiarism/internal/metrics"
	"github.com/richardbrinkman/plagiarism/internal/orchestration"
	"github.com/richardbrinkman/plagiarism/internal/sysmon"
)

// MetricsModel displays the run counters and the process memory.
type MetricsModel struct {
	total  int
	units  int
	counts orchestration.AggregatedProgress
	mem    metrics.MemorySnapshot
	sys    sysmon.Stats
	width  int
	height int
}

// NewMetricsModel creates a metrics panel for plan.
func NewMetricsModel(plan orchestration.Plan) MetricsModel {
	return MetricsModel{total: plan.Tasks, units: len(plan.Units)}
}

// SetSize updates dimensions.
func (m *MetricsModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// UpdateProgress records the latest counters.
func (m *MetricsModel) UpdateProgress(ap orchestration.AggregatedProgress) {
	m.counts = ap
}

// UpdateMemStats records a memory sample.
func (m *MetricsModel) UpdateMemStats(msg MemStatsMsg) {
	m.mem = msg.MemorySnapshot
}

// UpdateSysStats records a system sample.
func (m *MetricsModel) UpdateSysStats(msg SysStatsMsg) {
	m.sys = msg.Stats
}

// View renders the metrics panel.
func (m MetricsModel) View() string {
	colWidth := max((m.width-6)/2, 0)
	done := m.counts.Processed + m.counts.Failed

	left := []string{
		formatMetricCol("Jobs:", fmt.Sprintf("%s / %s", format.FormatNumber(done), format.FormatNumber(m.total)), colWidth),
		formatMetricCol("Running:", fmt.Sprintf("%d", m.counts.Running), colWidth),
		formatMetricCol("Failed:", fmt.Sprintf("%d", m.counts.Failed), colWidth),
	}
	right := []string{
		formatMetricCol("Sheets:", fmt.Sprintf("%d / %d", m.counts.Sheets, m.units), colWidth),
		formatMetricCol("Heap:", metrics.FormatBytes(m.mem.HeapAlloc)+" / "+metrics.FormatBytes(m.mem.HeapSys), colWidth),
		formatMetricCol("GC:", fmt.Sprintf("%d (%s)", m.mem.NumGC, format.FormatExecutionDuration(m.mem.PauseTotal)), colWidth),
	}

	var rows strings.Builder
	for i := range left {
		if i > 0 {
			rows.WriteString("\n")
		}
		rows.WriteString(left[i])
		rows.WriteString(right[i])
	}
	rows.WriteString("\n")
	rows.WriteString(formatMetricCol("Goroutines:", fmt.Sprintf("%d", m.mem.Goroutines), colWidth))
	rows.WriteString(formatMetricCol("System:", fmt.Sprintf("CPU %.1f%% RAM %.1f%%", m.sys.CPUPercent, m.sys.MemPercent), colWidth))

	return panelStyle.
		Width(max(m.width-2, 0)).
		Height(max(m.height-2, 0)).
		Render(rows.String())
}

func formatMetricCol(label, value string, colWidth int) string {
	cell := fmt.Sprintf(" %s %s",
		metricLabelStyle.Render(fmt.Sprintf("%-11s", label)),
		metricValueStyle.Render(value))
	// Pad to fixed column width using lipgloss-aware width
	if visible := lipgloss.Width(cell); visible < colWidth {
		cell += strings.Repeat(" ", colWidth-visible)
	}
	return cell
}
