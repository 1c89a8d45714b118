// Package metrics samples the resource usage of the running process for
// the dashboard.
package metrics

import (
	"fmt"
	"runtime"
	"time"
)

// MemorySnapshot holds a point-in-time memory reading.
type MemorySnapshot struct {
	HeapAlloc  uint64 // bytes in use by application
	HeapSys    uint64 // bytes obtained from OS for heap
	Sys        uint64 // total bytes obtained from OS
	NumGC      uint32 // number of completed GC cycles
	PauseTotal time.Duration
	Goroutines int
}

// MemoryCollector reads runtime memory statistics. The zero value is
// ready to use.
type MemoryCollector struct{}

// NewMemoryCollector creates a new memory collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

// Snapshot reads current memory statistics. It stops the world briefly,
// so callers sample on a ticker rather than per event.
func (mc *MemoryCollector) Snapshot() MemorySnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemorySnapshot{
		HeapAlloc:  m.HeapAlloc,
		HeapSys:    m.HeapSys,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
		PauseTotal: time.Duration(m.PauseTotalNs),
		Goroutines: runtime.NumGoroutine(),
	}
}

// HeapUsage returns the share of the heap obtained from the OS that is in
// use, in [0, 1].
func (s MemorySnapshot) HeapUsage() float64 {
	if s.HeapSys == 0 {
		return 0
	}
	return min(float64(s.HeapAlloc)/float64(s.HeapSys), 1)
}

// FormatBytes renders b with a binary unit: "512 B", "1.5 KB", "3.0 MB".
func FormatBytes(b uint64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
