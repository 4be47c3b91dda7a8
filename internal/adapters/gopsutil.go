package adapters

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sysdeck/agent/internal/sysinfo"
	"github.com/sysdeck/agent/internal/utils"
	"go.uber.org/zap"
)

// GopsutilAdapter resolves the volatile categories with gopsutil. CPU usage
// is delta-based: gopsutil keeps the previous sample internally, so the first
// query after startup reports 0 and real values follow from the second tick.
type GopsutilAdapter struct {
	logger        *zap.Logger
	primaryVolume string
}

// NewGopsutilAdapter creates the builtin adapter. primaryVolume defaults to
// the platform root volume.
func NewGopsutilAdapter(logger *zap.Logger, primaryVolume string) *GopsutilAdapter {
	if primaryVolume == "" {
		if runtime.GOOS == "windows" {
			primaryVolume = `C:\`
		} else {
			primaryVolume = "/"
		}
	}
	return &GopsutilAdapter{logger: logger, primaryVolume: primaryVolume}
}

func (a *GopsutilAdapter) Query(ctx context.Context, cat sysinfo.Category) (sysinfo.Record, error) {
	switch cat {
	case sysinfo.CategoryUptime:
		return a.uptime(ctx)
	case sysinfo.CategoryCPUUsage:
		return a.cpuUsage(ctx)
	case sysinfo.CategoryCPUFreq:
		return a.cpuFreq(ctx)
	case sysinfo.CategoryMemory:
		return a.memory(ctx)
	case sysinfo.CategoryDisk:
		return a.disk(ctx)
	default:
		return nil, newQueryError(KindUnsupported, cat, fmt.Errorf("not handled by builtin adapter"))
	}
}

func (a *GopsutilAdapter) uptime(ctx context.Context) (sysinfo.Record, error) {
	seconds, err := host.UptimeWithContext(ctx)
	if err != nil {
		return nil, classify(sysinfo.CategoryUptime, err)
	}
	return sysinfo.Uptime{
		Seconds: seconds,
		Display: sysinfo.FormatUptime(time.Duration(seconds) * time.Second),
	}, nil
}

func (a *GopsutilAdapter) cpuUsage(ctx context.Context) (sysinfo.Record, error) {
	// Non-blocking sample against gopsutil's internal previous reading.
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, classify(sysinfo.CategoryCPUUsage, err)
	}
	if len(percents) == 0 {
		return nil, newQueryError(KindParse, sysinfo.CategoryCPUUsage, fmt.Errorf("no CPU sample returned"))
	}
	return sysinfo.CPUUsage{Percent: utils.Round(percents[0])}, nil
}

func (a *GopsutilAdapter) cpuFreq(ctx context.Context) (sysinfo.Record, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return nil, classify(sysinfo.CategoryCPUFreq, err)
	}
	if len(infos) == 0 {
		return nil, newQueryError(KindParse, sysinfo.CategoryCPUFreq, fmt.Errorf("no CPU info returned"))
	}
	return sysinfo.CPUFreq{CurrentMHz: utils.Round(infos[0].Mhz)}, nil
}

func (a *GopsutilAdapter) memory(ctx context.Context) (sysinfo.Record, error) {
	vmem, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, classify(sysinfo.CategoryMemory, err)
	}
	return sysinfo.Memory{
		TotalGB:     utils.Round(float64(vmem.Total) / 1024 / 1024 / 1024),
		UsedGB:      utils.Round(float64(vmem.Used) / 1024 / 1024 / 1024),
		AvailableGB: utils.Round(float64(vmem.Available) / 1024 / 1024 / 1024),
		Percent:     utils.Round(vmem.UsedPercent),
	}, nil
}

func (a *GopsutilAdapter) disk(ctx context.Context) (sysinfo.Record, error) {
	usage, err := disk.UsageWithContext(ctx, a.primaryVolume)
	if err != nil {
		return nil, classify(sysinfo.CategoryDisk, err)
	}
	if usage.Total == 0 {
		return nil, newQueryError(KindParse, sysinfo.CategoryDisk, fmt.Errorf("zero-sized volume %s", a.primaryVolume))
	}
	return sysinfo.Disk{
		Volume:      a.primaryVolume,
		TotalGB:     utils.Round(float64(usage.Total) / 1024 / 1024 / 1024),
		UsedGB:      utils.Round(float64(usage.Used) / 1024 / 1024 / 1024),
		FreeGB:      utils.Round(float64(usage.Free) / 1024 / 1024 / 1024),
		UsedPercent: utils.Round(float64(usage.Used) / float64(usage.Total) * 100),
	}, nil
}
