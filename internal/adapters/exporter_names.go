package adapters

import "runtime"

// exporterNames holds the platform-specific Prometheus metric names exposed
// by node_exporter / windows_exporter.
type exporterNames struct {
	CPUTime       string // counter: cumulative CPU time per mode
	CPUIdleLabel  string // mode label value for idle time
	MemoryTotal   string // gauge: physical memory bytes
	MemoryFree    string // gauge: available memory bytes
	DiskFreeBytes string // gauge: volume free bytes
	DiskSizeBytes string // gauge: volume total bytes
	VolumeLabel   string // label naming the volume/mountpoint
}

func namesForPlatform() exporterNames {
	switch runtime.GOOS {
	case "windows":
		return exporterNames{
			CPUTime:       "windows_cpu_time_total",
			CPUIdleLabel:  "idle",
			MemoryTotal:   "windows_memory_physical_total_bytes",
			MemoryFree:    "windows_memory_available_bytes",
			DiskFreeBytes: "windows_logical_disk_free_bytes",
			DiskSizeBytes: "windows_logical_disk_size_bytes",
			VolumeLabel:   "volume", // "C:", "D:"
		}
	default:
		return exporterNames{
			CPUTime:       "node_cpu_seconds_total",
			CPUIdleLabel:  "idle",
			MemoryTotal:   "node_memory_MemTotal_bytes",
			MemoryFree:    "node_memory_MemAvailable_bytes",
			DiskFreeBytes: "node_filesystem_avail_bytes",
			DiskSizeBytes: "node_filesystem_size_bytes",
			VolumeLabel:   "mountpoint", // "/", "/home"
		}
	}
}
