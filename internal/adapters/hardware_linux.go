//go:build linux

package adapters

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/sysdeck/agent/internal/sysinfo"
	"github.com/sysdeck/agent/internal/utils"
)

func (a *HardwareAdapter) query(ctx context.Context, cat sysinfo.Category) (sysinfo.Record, error) {
	switch cat {
	case sysinfo.CategoryCPUStatic:
		return a.cpuStatic(ctx)
	case sysinfo.CategoryMotherboard:
		return a.motherboard(ctx)
	case sysinfo.CategoryMonitor:
		return a.monitors(ctx)
	case sysinfo.CategoryOS:
		return a.osIdentity(ctx)
	case sysinfo.CategoryStorage:
		return a.storage(ctx)
	default:
		return nil, newQueryError(KindUnsupported, cat, fmt.Errorf("not handled by hardware adapter"))
	}
}

func (a *HardwareAdapter) cpuStatic(ctx context.Context) (sysinfo.Record, error) {
	rec := sysinfo.CPUStatic{
		Name:    sysinfo.ValueUnknown,
		L1Cache: sysinfo.ValueUnknown,
		L2Cache: sysinfo.ValueUnknown,
		L3Cache: sysinfo.ValueUnknown,
		Socket:  sysinfo.ValueUnknown,
	}

	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		rec.Name = infos[0].ModelName
		rec.BaseMHz = infos[0].Mhz
		rec.MaxMHz = infos[0].Mhz
	}
	if physical, err := cpu.CountsWithContext(ctx, false); err == nil {
		rec.PhysicalCores = physical
	}
	if logical, err := cpu.CountsWithContext(ctx, true); err == nil {
		rec.LogicalCores = logical
	}

	// cpufreq exposes the rated maximum in kHz; /proc/cpuinfo only shows
	// the current frequency.
	if raw, err := os.ReadFile("/sys/devices/system/cpu/cpu0/cpufreq/cpuinfo_max_freq"); err == nil {
		if khz, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64); err == nil {
			rec.MaxMHz = utils.Round(khz / 1000)
		}
	}

	if l1, l2, l3 := sysfsCacheSizes("/sys/devices/system/cpu/cpu0/cache"); l1 != "" {
		rec.L1Cache, rec.L2Cache, rec.L3Cache = l1, l2, l3
	}

	if rec.Name == sysinfo.ValueUnknown && rec.PhysicalCores == 0 {
		return nil, newQueryError(KindUnavailable, sysinfo.CategoryCPUStatic,
			fmt.Errorf("all CPU identity queries failed"))
	}
	return rec, nil
}

// sysfsCacheSizes walks the cpu0 cache index directories. L1 data and
// instruction caches are reported together as the data-cache size.
func sysfsCacheSizes(dir string) (l1, l2, l3 string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", ""
	}
	l1, l2, l3 = sysinfo.ValueUnknown, sysinfo.ValueUnknown, sysinfo.ValueUnknown
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "index") {
			continue
		}
		base := filepath.Join(dir, entry.Name())
		level := strings.TrimSpace(readSysfs(filepath.Join(base, "level")))
		size := strings.TrimSpace(readSysfs(filepath.Join(base, "size")))
		cacheType := strings.TrimSpace(readSysfs(filepath.Join(base, "type")))
		if size == "" {
			continue
		}
		switch level {
		case "1":
			if cacheType != "Instruction" {
				l1 = size
			}
		case "2":
			l2 = size
		case "3":
			l3 = size
		}
	}
	return l1, l2, l3
}

func readSysfs(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (a *HardwareAdapter) motherboard(_ context.Context) (sysinfo.Record, error) {
	const dmi = "/sys/class/dmi/id"
	if _, err := os.Stat(dmi); err != nil {
		return nil, newQueryError(KindUnavailable, sysinfo.CategoryMotherboard, err)
	}

	pick := func(name string) string {
		if v := strings.TrimSpace(readSysfs(filepath.Join(dmi, name))); v != "" {
			return v
		}
		return sysinfo.ValueUnknown
	}

	product := pick("board_name")
	return sysinfo.Motherboard{
		Product:          product,
		Manufacturer:     pick("board_vendor"),
		Version:          pick("board_version"),
		Chipset:          chipsetFromProduct(product),
		BIOSVersion:      pick("bios_version"),
		BIOSManufacturer: pick("bios_vendor"),
		BIOSDate:         pick("bios_date"),
		SystemModel:      pick("product_name"),
		MemorySlots:      sysinfo.ValueUnknown,
		MemorySlotsUsed:  sysinfo.ValueUnknown,
		MaxMemory:        sysinfo.ValueUnknown,
	}, nil
}

func (a *HardwareAdapter) monitors(_ context.Context) (sysinfo.Record, error) {
	entries, err := os.ReadDir("/sys/class/drm")
	if err != nil {
		return nil, newQueryError(KindUnavailable, sysinfo.CategoryMonitor, err)
	}

	var monitors []sysinfo.Monitor
	for _, entry := range entries {
		// Connector directories look like card0-HDMI-A-1.
		name := entry.Name()
		if !strings.HasPrefix(name, "card") || !strings.Contains(name, "-") {
			continue
		}
		status := strings.TrimSpace(readSysfs(filepath.Join("/sys/class/drm", name, "status")))
		if status != "connected" {
			continue
		}
		_, connector, _ := strings.Cut(name, "-")
		m := sysinfo.Monitor{
			Manufacturer: sysinfo.ValueUnknown,
			Model:        sysinfo.ValueUnknown,
			Name:         connector,
			Resolution:   sysinfo.ValueUnknown,
			Primary:      len(monitors) == 0,
		}
		modes := strings.TrimSpace(readSysfs(filepath.Join("/sys/class/drm", name, "modes")))
		if first, _, _ := strings.Cut(modes, "\n"); first != "" {
			m.Resolution = first
		}
		monitors = append(monitors, m)
	}

	return sysinfo.MonitorList{Monitors: monitors, Count: len(monitors)}, nil
}

func (a *HardwareAdapter) osIdentity(_ context.Context) (sysinfo.Record, error) {
	rec := sysinfo.OSIdentity{
		Hostname:     sysinfo.ValueUnknown,
		Username:     sysinfo.ValueUnknown,
		Edition:      sysinfo.ValueUnknown,
		Version:      sysinfo.ValueUnknown,
		Build:        sysinfo.ValueUnknown,
		InstallDate:  sysinfo.ValueUnknown,
		Architecture: archDisplay(),
	}

	if hostname, err := os.Hostname(); err == nil {
		rec.Hostname = hostname
	}
	if u, err := user.Current(); err == nil {
		rec.Username = u.Username
	}

	raw, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return rec, nil
	}
	for _, line := range strings.Split(string(raw), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		switch key {
		case "PRETTY_NAME":
			rec.Edition = value
		case "VERSION_ID":
			rec.Version = value
		case "BUILD_ID":
			rec.Build = value
		}
	}
	return rec, nil
}

func (a *HardwareAdapter) storage(_ context.Context) (sysinfo.Record, error) {
	entries, err := os.ReadDir("/sys/block")
	if err != nil {
		return nil, newQueryError(KindUnavailable, sysinfo.CategoryStorage, err)
	}

	inv := sysinfo.StorageInventory{}
	index := 0
	for _, entry := range entries {
		name := entry.Name()
		// Skip loopback, ram and device-mapper entries.
		if strings.HasPrefix(name, "loop") || strings.HasPrefix(name, "ram") || strings.HasPrefix(name, "dm-") {
			continue
		}

		base := filepath.Join("/sys/block", name)
		sectors, err := strconv.ParseFloat(strings.TrimSpace(readSysfs(filepath.Join(base, "size"))), 64)
		if err != nil || sectors == 0 {
			continue
		}
		sizeGB := utils.Round(sectors * 512 / 1024 / 1024 / 1024)

		model := strings.TrimSpace(readSysfs(filepath.Join(base, "device", "model")))
		if model == "" {
			model = sysinfo.ValueUnknown
		}

		diskType := "HDD"
		switch {
		case strings.HasPrefix(name, "nvme"):
			diskType = "NVMe SSD"
		case strings.TrimSpace(readSysfs(filepath.Join(base, "queue", "rotational"))) == "0":
			diskType = "SSD"
		}

		inv.Disks = append(inv.Disks, sysinfo.PhysicalDisk{
			Index:   index,
			Model:   model,
			Type:    diskType,
			TotalGB: sizeGB,
		})
		inv.TotalGB += sizeGB
		index++
	}
	inv.TotalGB = utils.Round(inv.TotalGB)
	return inv, nil
}
