package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/richardbrinkman/plagiarism/internal/format"
)

// ChartModel shows the overall progress bar and a throughput sparkline
// of jobs finished per refresh tick.
type ChartModel struct {
	fraction   float64
	eta        time.Duration
	finished   int
	lastSample int
	throughput *RingBuffer
	done       bool
	elapsed    time.Duration
	width      int
	height     int
}

// NewChartModel creates an empty chart.
func NewChartModel() ChartModel {
	return ChartModel{throughput: NewRingBuffer(60)}
}

// SetSize updates dimensions. The sparkline keeps one sample per column.
func (c *ChartModel) SetSize(w, h int) {
	c.width = w
	c.height = h
	c.throughput.Resize(max(w-4, 1))
}

// AddDataPoint records the progress after an event.
func (c *ChartModel) AddDataPoint(fraction float64, eta time.Duration, finished int) {
	c.fraction = fraction
	c.eta = eta
	c.finished = finished
}

// Sample pushes the number of jobs finished since the previous sample.
func (c *ChartModel) Sample() {
	c.throughput.Push(float64(c.finished - c.lastSample))
	c.lastSample = c.finished
}

// SetDone freezes the chart with the total run time.
func (c *ChartModel) SetDone(elapsed time.Duration) {
	c.done = true
	c.elapsed = elapsed
}

// View renders the chart panel.
func (c ChartModel) View() string {
	inner := max(c.width-4, 0)
	var b strings.Builder
	b.WriteString(titleStyle.Render("Progress"))
	b.WriteString("\n")
	b.WriteString(c.renderProgressBar(inner))
	b.WriteString("\n")
	if c.done {
		b.WriteString(dimStyle.Render("Done in " + format.FormatExecutionDuration(c.elapsed)))
	} else {
		b.WriteString(dimStyle.Render("ETA: " + format.FormatETA(c.eta)))
	}
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render("Throughput"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  peak %.0f jobs/tick", c.throughput.Max())))
	b.WriteString("\n")
	b.WriteString(sparklineStyle.Render(RenderSparkline(c.throughput.Slice(), c.throughput.Max())))

	return panelStyle.
		Width(max(c.width-2, 0)).
		Height(max(c.height-2, 0)).
		Render(b.String())
}

// renderProgressBar draws "████░░░░  42.0%" in width columns.
func (c ChartModel) renderProgressBar(width int) string {
	const label = 8
	barWidth := max(width-label, 1)
	filled := min(max(int(c.fraction*float64(barWidth)), 0), barWidth)
	return chartBarStyle.Render(strings.Repeat("█", filled)) +
		chartEmptyStyle.Render(strings.Repeat("░", barWidth-filled)) +
		fmt.Sprintf(" %5.1f%%", c.fraction*100)
}
