package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/sysdeck/agent/internal/sysinfo"
	"go.uber.org/zap"
)

// HardwareAdapter resolves the static categories (CPU identity, motherboard,
// monitors, OS identity) plus the physical-disk inventory. The query
// mechanism is platform-specific: Windows shells out to PowerShell and wmic,
// Linux reads /proc and /sys, other platforms report unsupported.
type HardwareAdapter struct {
	logger *zap.Logger
}

func NewHardwareAdapter(logger *zap.Logger) *HardwareAdapter {
	return &HardwareAdapter{logger: logger}
}

func (a *HardwareAdapter) Query(ctx context.Context, cat sysinfo.Category) (sysinfo.Record, error) {
	return a.query(ctx, cat)
}

// parseKeyValues parses "Key: Value" lines into a map with lowercased,
// underscored keys. Lines without a colon are skipped.
func parseKeyValues(out string) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		key = strings.ReplaceAll(key, " ", "_")
		values[key] = strings.TrimSpace(value)
	}
	return values
}

// parseWmicValues parses wmic /format:value output ("Key=Value" lines).
func parseWmicValues(out string) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || key == "" {
			continue
		}
		values[key] = strings.TrimSpace(value)
	}
	return values
}

// Section markers in the combined monitor query output.
const (
	monitorDetailsMarker = "MONITOR_DETAILS_START"
	screenInfoMarker     = "SCREEN_INFO_START"
	refreshRatesMarker   = "REFRESH_RATES_START"
)

// parseMonitorOutput assembles the monitor inventory from the combined
// three-section query output: identity lines "manufacturer|model|name",
// screen lines "WxH|Primary", and bare refresh-rate lines. Sections may have
// unequal lengths; missing positions fall back to sentinels.
func parseMonitorOutput(out string) sysinfo.MonitorList {
	type identity struct{ manufacturer, model, name string }
	type screen struct {
		resolution string
		primary    bool
	}

	var identities []identity
	var screens []screen
	var rates []int

	section := ""
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch line {
		case monitorDetailsMarker:
			section = "details"
			continue
		case screenInfoMarker:
			section = "screens"
			continue
		case refreshRatesMarker:
			section = "rates"
			continue
		}

		switch section {
		case "details":
			parts := strings.Split(line, "|")
			if len(parts) >= 3 {
				identities = append(identities, identity{
					manufacturer: strings.TrimSpace(parts[0]),
					model:        strings.TrimSpace(parts[1]),
					name:         strings.TrimSpace(parts[2]),
				})
			}
		case "screens":
			parts := strings.Split(line, "|")
			if len(parts) >= 2 {
				screens = append(screens, screen{
					resolution: strings.TrimSpace(parts[0]),
					primary:    strings.TrimSpace(parts[1]) == "Primary",
				})
			}
		case "rates":
			if rate, err := strconv.Atoi(line); err == nil {
				rates = append(rates, rate)
			}
		}
	}

	count := len(identities)
	if len(screens) > count {
		count = len(screens)
	}

	monitors := make([]sysinfo.Monitor, 0, count)
	for i := 0; i < count; i++ {
		m := sysinfo.Monitor{
			Manufacturer: sysinfo.ValueUnknown,
			Model:        sysinfo.ValueUnknown,
			Name:         sysinfo.ValueUnknown,
			Resolution:   sysinfo.ValueUnknown,
		}
		if i < len(identities) {
			m.Manufacturer = identities[i].manufacturer
			m.Model = identities[i].model
			m.Name = identities[i].name
		}
		if i < len(screens) {
			m.Resolution = screens[i].resolution
			m.Primary = screens[i].primary
		}
		if i < len(rates) {
			m.RefreshHz = rates[i]
		}
		monitors = append(monitors, m)
	}

	return sysinfo.MonitorList{Monitors: monitors, Count: len(monitors)}
}

// chipsetFromProduct derives the chipset family from the board product name.
func chipsetFromProduct(product string) string {
	upper := strings.ToUpper(product)
	for _, c := range []struct{ marker, chipset string }{
		{"X670", "AMD X670"}, {"B650", "AMD B650"},
		{"X570", "AMD X570"}, {"B550", "AMD B550"},
		{"X470", "AMD X470"}, {"B450", "AMD B450"},
		{"Z790", "Intel Z790"}, {"Z690", "Intel Z690"},
		{"B760", "Intel B760"}, {"B660", "Intel B660"},
	} {
		if strings.Contains(upper, c.marker) {
			return c.chipset
		}
	}
	return sysinfo.ValueUnknown
}

// formatBIOSDate converts the WMI CIM_DATETIME prefix (yyyymmdd...) to
// mm/dd/yyyy.
func formatBIOSDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) < 8 {
		return sysinfo.ValueUnknown
	}
	return fmt.Sprintf("%s/%s/%s", raw[4:6], raw[6:8], raw[0:4])
}

func formatCacheSize(kb int) string {
	if kb >= 1024 {
		return fmt.Sprintf("%d MB", kb/1024)
	}
	return fmt.Sprintf("%d KB", kb)
}

func archDisplay() string {
	switch runtime.GOARCH {
	case "amd64":
		return "64-bit"
	case "386":
		return "32-bit"
	case "arm64":
		return "ARM64"
	default:
		return runtime.GOARCH
	}
}

// decodeJSONObjects accepts ConvertTo-Json output, which is a single object
// for one result and an array for several.
func decodeJSONObjects(out string) ([]map[string]any, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	if strings.HasPrefix(out, "[") {
		var entries []map[string]any
		if err := json.Unmarshal([]byte(out), &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(out), &entry); err != nil {
		return nil, err
	}
	return []map[string]any{entry}, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}

func asInt(v any) int {
	return int(asFloat(v))
}

// classifyDiskType derives the device class from its model string and
// transport hints.
func classifyDiskType(model, mediaType, interfaceType string) string {
	upper := strings.ToUpper(model)
	switch {
	case strings.Contains(upper, "NVME") || strings.Contains(upper, "M.2"):
		return "NVMe SSD"
	case strings.Contains(upper, "SSD") || strings.Contains(upper, "SOLID STATE"):
		return "SSD"
	case strings.Contains(mediaType, "Fixed hard disk"):
		return "HDD"
	case interfaceType == "SCSI":
		return "SSD"
	case model == "":
		return sysinfo.ValueUnknown
	default:
		return "HDD"
	}
}
