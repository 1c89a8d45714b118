package tui

import (
	"time"

	"github.com/richardbrinkman/plagiarism/internal/metrics"
	"github.com/richardbrinkman/plagiarism/internal/orchestration"
	"github.com/richardbrinkman/plagiarism/internal/sysmon"
)

// EventMsg carries one progress event folded into the run counters.
type EventMsg struct {
	Progress orchestration.AggregatedProgress
}

// StreamDoneMsg is sent when the progress stream closes.
type StreamDoneMsg struct{}

// RunDoneMsg is sent when the detection run returned.
type RunDoneMsg struct {
	Summary orchestration.Summary
	Err     error
}

// ContextCancelledMsg is sent when the parent context ends, e.g. on SIGINT.
type ContextCancelledMsg struct {
	Err error
}

// TickMsg drives the periodic refresh of the memory panel and the chart.
type TickMsg time.Time

// MemStatsMsg is a runtime memory sample.
type MemStatsMsg struct {
	metrics.MemorySnapshot
}

// SysStatsMsg is a system-wide CPU and memory sample.
type SysStatsMsg struct {
	sysmon.Stats
}
