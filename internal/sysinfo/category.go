package sysinfo

// Category identifies one class of system information. Static categories are
// fetched once per cache lifetime; volatile categories are re-queried on every
// poll tick.
type Category string

const (
	// Static categories
	CategoryCPUStatic   Category = "cpu_static"
	CategoryMotherboard Category = "motherboard"
	CategoryMonitor     Category = "monitor"
	CategoryOS          Category = "os"

	// Volatile categories
	CategoryUptime   Category = "uptime"
	CategoryCPUUsage Category = "cpu_usage"
	CategoryCPUFreq  Category = "cpu_freq"
	CategoryMemory   Category = "memory"
	CategoryDisk     Category = "disk"
	CategoryStorage  Category = "storage"
	CategoryGPU      Category = "gpu"
)

// StaticCategories returns the categories loaded once at startup.
func StaticCategories() []Category {
	return []Category{
		CategoryCPUStatic,
		CategoryMotherboard,
		CategoryMonitor,
		CategoryOS,
	}
}

// VolatileCategories returns the categories re-queried on every poll tick,
// in emission order.
func VolatileCategories() []Category {
	return []Category{
		CategoryUptime,
		CategoryCPUUsage,
		CategoryCPUFreq,
		CategoryMemory,
		CategoryDisk,
		CategoryStorage,
		CategoryGPU,
	}
}

// IsStatic reports whether c is a static category.
func (c Category) IsStatic() bool {
	switch c {
	case CategoryCPUStatic, CategoryMotherboard, CategoryMonitor, CategoryOS:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}
