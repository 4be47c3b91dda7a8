// Package sink provides presentation-side consumers for the sysinfo event
// bus.
package sink

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/sysdeck/agent/internal/sysinfo"
)

// Console renders events as human-readable lines. It is safe for use as a
// bus sink; writes are serialized by the bus dispatch goroutine, the mutex
// only guards against concurrent direct use.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// OnUpdate implements sysinfo.Sink.
func (c *Console) OnUpdate(ev sysinfo.Event) {
	line := renderRecord(ev.Record)
	if line == "" {
		return
	}

	status := ""
	if ev.Failed {
		status = " [failed]"
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%-12s%s %s\n", ev.Category.String(), status, line)
}

func renderRecord(rec sysinfo.Record) string {
	switch r := rec.(type) {
	case sysinfo.CPUStatic:
		return fmt.Sprintf("%s, %d cores / %d threads, %s MHz max, L3 %s",
			r.Name, r.PhysicalCores, r.LogicalCores, humanize.Commaf(r.MaxMHz), r.L3Cache)
	case sysinfo.Motherboard:
		return fmt.Sprintf("%s %s (%s), BIOS %s %s",
			r.Manufacturer, r.Product, r.Chipset, r.BIOSManufacturer, r.BIOSVersion)
	case sysinfo.MonitorList:
		if r.Count == 0 {
			return "no monitors detected"
		}
		parts := make([]string, 0, r.Count)
		for _, m := range r.Monitors {
			desc := fmt.Sprintf("%s %s", m.Name, m.Resolution)
			if m.RefreshHz > 0 {
				desc += fmt.Sprintf(" @%dHz", m.RefreshHz)
			}
			if m.Primary {
				desc += " (primary)"
			}
			parts = append(parts, desc)
		}
		return strings.Join(parts, "; ")
	case sysinfo.OSIdentity:
		return fmt.Sprintf("%s %s build %s on %s (%s)",
			r.Edition, r.Version, r.Build, r.Hostname, r.Architecture)
	case sysinfo.Uptime:
		return r.Display
	case sysinfo.CPUUsage:
		return fmt.Sprintf("%.1f%%", r.Percent)
	case sysinfo.CPUFreq:
		return fmt.Sprintf("%s MHz", humanize.Commaf(r.CurrentMHz))
	case sysinfo.Memory:
		return fmt.Sprintf("%.1f GB / %.1f GB (%.1f%%)", r.UsedGB, r.TotalGB, r.Percent)
	case sysinfo.Disk:
		return fmt.Sprintf("%s %.1f GB / %.1f GB (%.1f%%)",
			r.Volume, r.UsedGB, r.TotalGB, r.UsedPercent)
	case sysinfo.StorageInventory:
		parts := make([]string, 0, len(r.Disks))
		for _, d := range r.Disks {
			parts = append(parts, fmt.Sprintf("%s (%s, %.0f GB)", d.Model, d.Type, d.TotalGB))
		}
		return strings.Join(parts, "; ")
	case sysinfo.GPU:
		if !r.Available {
			return r.Name
		}
		return fmt.Sprintf("%s %.0f%%, %.1f/%.1f GB, %.0f°C",
			r.Name, r.Utilization, r.MemoryUsedGB, r.MemoryTotalGB, r.TemperatureC)
	default:
		return ""
	}
}
