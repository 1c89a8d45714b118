package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/richardbrinkman/plagiarism/internal/metrics"
	"github.com/richardbrinkman/plagiarism/internal/orchestration"
	"github.com/richardbrinkman/plagiarism/internal/sysmon"
)

// RunFunc executes a detection run, reporting progress to reporter.
type RunFunc func(ctx context.Context, reporter orchestration.ProgressReporter) (orchestration.Summary, error)

// LayoutManager holds terminal dimensions and provides layout calculations.
type LayoutManager struct {
	width  int
	height int
}

// bodyHeight returns the available height for the main body panels.
func (l LayoutManager) bodyHeight() int {
	return max(l.height-headerHeight-footerHeight, minBodyHeight)
}

// unitsWidth returns the width allocated to the unit list.
func (l LayoutManager) unitsWidth() int {
	return l.width * UnitsPanelWidthPercent / 100
}

// rightWidth returns the width allocated to the right column (metrics + chart).
func (l LayoutManager) rightWidth() int {
	return l.width - l.unitsWidth()
}

// metricsHeight returns the height allocated to the metrics panel.
func (l LayoutManager) metricsHeight() int {
	return min(MetricsPanelHeight, l.bodyHeight()/2)
}

// chartHeight returns the height allocated to the chart panel.
func (l LayoutManager) chartHeight() int {
	return l.bodyHeight() - l.metricsHeight()
}

// Layout constants for the dashboard.
const (
	headerHeight           = 1
	footerHeight           = 1
	minBodyHeight          = 4
	UnitsPanelWidthPercent = 55
	MetricsPanelHeight     = 6
	refreshInterval        = 500 * time.Millisecond
)

// Model is the root bubbletea model of the dashboard.
type Model struct {
	header  HeaderModel
	units   UnitsModel
	metrics MetricsModel
	chart   ChartModel
	footer  FooterModel

	keymap    KeyMap
	collector *metrics.MemoryCollector

	LayoutManager

	parentCtx context.Context
	cancel    context.CancelFunc
	ref       *programRef
	paused    bool
	done      bool
}

// NewModel creates a dashboard for plan. cancel aborts the run.
func NewModel(parentCtx context.Context, plan orchestration.Plan, version string, cancel context.CancelFunc) Model {
	keymap := DefaultKeyMap()
	return Model{
		header:    NewHeaderModel(version, plan.Mode),
		units:     NewUnitsModel(),
		metrics:   NewMetricsModel(plan),
		chart:     NewChartModel(),
		footer:    NewFooterModel(keymap.ShortHelp()),
		keymap:    keymap,
		collector: metrics.NewMemoryCollector(),
		parentCtx: parentCtx,
		cancel:    cancel,
		ref:       &programRef{},
	}
}

// Init returns the initial commands.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), sampleMemStatsCmd(m.collector), sampleSysStatsCmd(m.parentCtx), watchContextCmd(m.parentCtx))
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutPanels()
		return m, nil

	case EventMsg:
		// Counters always advance; only the list honors pause.
		ap := msg.Progress
		m.metrics.UpdateProgress(ap)
		m.chart.AddDataPoint(ap.Fraction, ap.ETA, ap.Processed+ap.Failed)
		if !m.paused {
			m.units.AddEvent(ap.Event)
		}
		return m, nil

	case StreamDoneMsg:
		return m, nil

	case RunDoneMsg:
		m.done = true
		m.header.SetDone()
		m.chart.SetDone(m.header.Elapsed())
		m.footer.SetDone(true)
		m.footer.SetError(msg.Err != nil)
		if msg.Err != nil {
			m.footer.SetMessage(msg.Err.Error())
		} else {
			m.footer.SetMessage(fmt.Sprintf("report written to %s", msg.Summary.Output))
		}
		return m, nil

	case TickMsg:
		if m.done {
			return m, nil
		}
		if !m.paused {
			m.chart.Sample()
		}
		return m, tea.Batch(sampleMemStatsCmd(m.collector), sampleSysStatsCmd(m.parentCtx), tickCmd())

	case MemStatsMsg:
		m.metrics.UpdateMemStats(msg)
		return m, nil

	case SysStatsMsg:
		m.metrics.UpdateSysStats(msg)
		return m, nil

	case ContextCancelledMsg:
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Pause):
		m.paused = !m.paused
		m.footer.SetPaused(m.paused)

	case key.Matches(msg, m.keymap.Up):
		m.units.Scroll(-1)
	case key.Matches(msg, m.keymap.Down):
		m.units.Scroll(1)
	case key.Matches(msg, m.keymap.PageUp):
		m.units.Scroll(-m.units.PageSize())
	case key.Matches(msg, m.keymap.PageDown):
		m.units.Scroll(m.units.PageSize())
	}
	return m, nil
}

// View renders the entire dashboard.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	// Right column: metrics on top, chart on bottom
	rightCol := lipgloss.JoinVertical(lipgloss.Left, m.metrics.View(), m.chart.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.units.View(), rightCol)

	return lipgloss.JoinVertical(lipgloss.Left, m.header.View(), body, m.footer.View())
}

func (m *Model) layoutPanels() {
	m.header.SetWidth(m.width)
	m.footer.SetWidth(m.width)
	m.units.SetSize(m.unitsWidth(), m.bodyHeight())
	m.metrics.SetSize(m.rightWidth(), m.metricsHeight())
	m.chart.SetSize(m.rightWidth(), m.chartHeight())
}

// Run is the public entry point for the dashboard renderer. It starts run
// in the background with a reporter feeding the dashboard and returns
// run's result once the user leaves the dashboard. Quitting before the run
// finished cancels it.
func Run(ctx context.Context, plan orchestration.Plan, run RunFunc, version string) (orchestration.Summary, error) {
	// Rebuild styles from the current ui theme (set by the app via InitTheme).
	initTUIStyles()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(ctx, plan, version, cancel)
	p := tea.NewProgram(model, tea.WithAltScreen())
	// Inject the program reference before running so bridge goroutines can Send.
	model.ref.SetProgram(p)

	type outcome struct {
		summary orchestration.Summary
		err     error
	}
	result := make(chan outcome, 1)
	go func() {
		s, err := run(runCtx, &TUIProgressReporter{ref: model.ref})
		model.ref.Send(RunDoneMsg{Summary: s, Err: err})
		result <- outcome{s, err}
	}()

	_, uiErr := p.Run()
	cancel()
	res := <-result
	if uiErr != nil && res.err == nil {
		return res.summary, fmt.Errorf("dashboard: %w", uiErr)
	}
	return res.summary, res.err
}

// tickCmd returns a command that sends a TickMsg after refreshInterval.
func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// sampleMemStatsCmd reads runtime memory stats and returns a MemStatsMsg.
func sampleMemStatsCmd(c *metrics.MemoryCollector) tea.Cmd {
	return func() tea.Msg {
		return MemStatsMsg{MemorySnapshot: c.Snapshot()}
	}
}

// sampleSysStatsCmd reads system-wide CPU and memory usage.
func sampleSysStatsCmd(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		return SysStatsMsg{Stats: sysmon.Sample(ctx)}
	}
}

// watchContextCmd waits for context cancellation and sends a message.
func watchContextCmd(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		<-ctx.Done()
		return ContextCancelledMsg{Err: ctx.Err()}
	}
}
