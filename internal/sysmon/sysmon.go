// Package sysmon samples system-wide CPU and memory usage for the
// dashboard.
package sysmon

import (
	"context"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Stats holds a single snapshot of system-wide resource usage.
type Stats struct {
	CPUPercent float64 // 0.0 .. 100.0
	MemPercent float64 // 0.0 .. 100.0
	MemUsed    uint64
	MemTotal   uint64
}

// Sample collects a system-wide CPU and memory snapshot. CPU usage is the
// delta since the previous call, so the first sample of a process may read
// zero. Values that cannot be read are left at zero.
func Sample(ctx context.Context) Stats {
	var s Stats
	if pcts, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pcts) > 0 {
		s.CPUPercent = pcts[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm != nil {
		s.MemPercent = vm.UsedPercent
		s.MemUsed = vm.Used
		s.MemTotal = vm.Total
	}
	return s
}
