package sysinfo

import (
	"fmt"
	"time"
)

// Sentinel values substituted for fields that could not be determined.
// "Unknown" means the host cannot answer the query (feature absent),
// "Error" means the query itself failed.
const (
	ValueUnknown = "Unknown"
	ValueError   = "Error"
)

// Record is the common type for all category payloads. Concrete record types
// are plain JSON-taggable structs; Kind ties a record back to its category.
type Record interface {
	Kind() Category
}

// CPUStatic describes processor identity and topology. Immutable for the
// process lifetime.
type CPUStatic struct {
	Name          string  `json:"name"`
	PhysicalCores int     `json:"physical_cores"`
	LogicalCores  int     `json:"logical_cores"`
	BaseMHz       float64 `json:"base_mhz"`
	MaxMHz        float64 `json:"max_mhz"`
	L1Cache       string  `json:"l1_cache"`
	L2Cache       string  `json:"l2_cache"`
	L3Cache       string  `json:"l3_cache"`
	Socket        string  `json:"socket"`
}

func (CPUStatic) Kind() Category { return CategoryCPUStatic }

// Motherboard describes the baseboard, BIOS and memory topology.
type Motherboard struct {
	Product          string `json:"product"`
	Manufacturer     string `json:"manufacturer"`
	Version          string `json:"version"`
	Chipset          string `json:"chipset"`
	BIOSVersion      string `json:"bios_version"`
	BIOSManufacturer string `json:"bios_manufacturer"`
	BIOSDate         string `json:"bios_date"`
	SystemModel      string `json:"system_model"`
	MemorySlots      string `json:"memory_slots"`
	MemorySlotsUsed  string `json:"memory_slots_used"`
	MaxMemory        string `json:"max_memory"`
}

func (Motherboard) Kind() Category { return CategoryMotherboard }

// Monitor describes a single attached display.
type Monitor struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Name         string `json:"name"`
	Resolution   string `json:"resolution"`
	RefreshHz    int    `json:"refresh_hz"`
	Primary      bool   `json:"primary"`
}

// MonitorList is the monitor inventory for the host.
type MonitorList struct {
	Monitors []Monitor `json:"monitors"`
	Count    int       `json:"count"`
}

func (MonitorList) Kind() Category { return CategoryMonitor }

// OSIdentity describes the installed operating system.
type OSIdentity struct {
	Hostname     string `json:"hostname"`
	Username     string `json:"username"`
	Edition      string `json:"edition"`
	Version      string `json:"version"`
	Build        string `json:"build"`
	InstallDate  string `json:"install_date"`
	Architecture string `json:"architecture"`
}

func (OSIdentity) Kind() Category { return CategoryOS }

// Uptime carries the time since boot.
type Uptime struct {
	Seconds uint64 `json:"seconds"`
	Display string `json:"display"`
}

func (Uptime) Kind() Category { return CategoryUptime }

// CPUUsage is the overall processor utilization for the last sample window.
type CPUUsage struct {
	Percent float64 `json:"percent"`
}

func (CPUUsage) Kind() Category { return CategoryCPUUsage }

// CPUFreq is the current processor clock.
type CPUFreq struct {
	CurrentMHz float64 `json:"current_mhz"`
}

func (CPUFreq) Kind() Category { return CategoryCPUFreq }

// Memory carries physical memory totals. Values are passed through from the
// adapter unchanged; no derived recomputation happens downstream.
type Memory struct {
	TotalGB     float64 `json:"total_gb"`
	UsedGB      float64 `json:"used_gb"`
	AvailableGB float64 `json:"available_gb"`
	Percent     float64 `json:"percent"`
}

func (Memory) Kind() Category { return CategoryMemory }

// Disk carries usage for the primary volume.
type Disk struct {
	Volume      string  `json:"volume"`
	TotalGB     float64 `json:"total_gb"`
	UsedGB      float64 `json:"used_gb"`
	FreeGB      float64 `json:"free_gb"`
	UsedPercent float64 `json:"used_percent"`
}

func (Disk) Kind() Category { return CategoryDisk }

// PhysicalDisk describes one physical storage device.
type PhysicalDisk struct {
	Index   int     `json:"index"`
	Model   string  `json:"model"`
	Type    string  `json:"type"` // "SSD", "NVMe SSD", "HDD" or "Unknown"
	TotalGB float64 `json:"total_gb"`
}

// StorageInventory is the physical-disk inventory for the host.
type StorageInventory struct {
	Disks   []PhysicalDisk `json:"disks"`
	TotalGB float64        `json:"total_gb"`
}

func (StorageInventory) Kind() Category { return CategoryStorage }

// GPU carries graphics adapter utilization. Available is false when no
// supported GPU is present on the host.
type GPU struct {
	Available     bool    `json:"available"`
	Name          string  `json:"name"`
	Utilization   float64 `json:"utilization"`
	MemoryUsedGB  float64 `json:"memory_used_gb"`
	MemoryTotalGB float64 `json:"memory_total_gb"`
	TemperatureC  float64 `json:"temperature_c"`
}

func (GPU) Kind() Category { return CategoryGPU }

// SentinelRecord builds the placeholder record emitted when a query for the
// given category fails or is unsupported. String fields carry the sentinel
// text, numeric fields are zero.
func SentinelRecord(c Category, text string) Record {
	switch c {
	case CategoryCPUStatic:
		return CPUStatic{
			Name: text, L1Cache: text, L2Cache: text, L3Cache: text, Socket: text,
		}
	case CategoryMotherboard:
		return Motherboard{
			Product: text, Manufacturer: text, Version: text, Chipset: text,
			BIOSVersion: text, BIOSManufacturer: text, BIOSDate: text,
			SystemModel: text, MemorySlots: text, MemorySlotsUsed: text, MaxMemory: text,
		}
	case CategoryMonitor:
		return MonitorList{}
	case CategoryOS:
		return OSIdentity{
			Hostname: text, Username: text, Edition: text, Version: text,
			Build: text, InstallDate: text, Architecture: text,
		}
	case CategoryUptime:
		return Uptime{Display: text}
	case CategoryCPUUsage:
		return CPUUsage{}
	case CategoryCPUFreq:
		return CPUFreq{}
	case CategoryMemory:
		return Memory{}
	case CategoryDisk:
		return Disk{Volume: text}
	case CategoryStorage:
		return StorageInventory{}
	case CategoryGPU:
		return GPU{Name: text}
	default:
		return nil
	}
}

// FormatUptime renders a duration in the compact "1d 5h 36m" style used by
// the presentation layer. Seconds are shown only below one day.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		return ValueUnknown
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 && days == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}

	if len(parts) == 0 {
		return "0s"
	}

	out := parts[0]
	for _, p := range parts[1:] {
		out += " " + p
	}
	return out
}
