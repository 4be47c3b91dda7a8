//go:build windows

package adapters

import (
	"context"
	"fmt"
	"os"
	"os/user"
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

	if out, err := runCommand(ctx, "wmic", "cpu", "get", "name", "/value"); err == nil {
		if name := parseWmicValues(out)["Name"]; name != "" {
			rec.Name = name
		}
	} else if out, err := runCommand(ctx, "powershell", "-Command",
		"Get-WmiObject -Class Win32_Processor | Select-Object -ExpandProperty Name"); err == nil && out != "" {
		// wmic is deprecated on recent builds; PowerShell is the fallback.
		rec.Name = out
	}

	if physical, err := cpu.CountsWithContext(ctx, false); err == nil {
		rec.PhysicalCores = physical
	}
	if logical, err := cpu.CountsWithContext(ctx, true); err == nil {
		rec.LogicalCores = logical
	}

	if out, err := runCommand(ctx, "wmic", "cpu", "get", "MaxClockSpeed", "/value"); err == nil {
		if mhz, err := strconv.ParseFloat(parseWmicValues(out)["MaxClockSpeed"], 64); err == nil {
			rec.BaseMHz = mhz
			rec.MaxMHz = mhz
		}
	}

	if out, err := runCommand(ctx, "powershell", "-Command",
		"Get-WmiObject -Class Win32_Processor | Select-Object -ExpandProperty SocketDesignation"); err == nil && out != "" {
		rec.Socket = out
	}

	if l1, l2, l3, err := a.cacheSizes(ctx); err == nil {
		rec.L1Cache, rec.L2Cache, rec.L3Cache = l1, l2, l3
	}

	if rec.Name == sysinfo.ValueUnknown && rec.PhysicalCores == 0 {
		return nil, newQueryError(KindUnavailable, sysinfo.CategoryCPUStatic,
			fmt.Errorf("all CPU identity queries failed"))
	}
	return rec, nil
}

// cacheSizes reads Win32_CacheMemory levels. WMI reports Level 3 for L1,
// 4 for L2, 5 for L3.
func (a *HardwareAdapter) cacheSizes(ctx context.Context) (string, string, string, error) {
	out, err := runCommand(ctx, "powershell", "-Command",
		"Get-WmiObject -Class Win32_CacheMemory | Select-Object Level, MaxCacheSize | ConvertTo-Json")
	if err != nil {
		return "", "", "", err
	}

	entries, err := decodeJSONObjects(out)
	if err != nil {
		return "", "", "", err
	}

	l1, l2, l3 := sysinfo.ValueUnknown, sysinfo.ValueUnknown, sysinfo.ValueUnknown
	for _, entry := range entries {
		sizeKB := asInt(entry["MaxCacheSize"])
		if sizeKB <= 0 {
			continue
		}
		size := formatCacheSize(sizeKB)
		switch asInt(entry["Level"]) {
		case 3:
			l1 = size
		case 4:
			l2 = size
		case 5:
			l3 = size
		}
	}
	return l1, l2, l3, nil
}

func (a *HardwareAdapter) motherboard(ctx context.Context) (sysinfo.Record, error) {
	script := `$mb = Get-WmiObject -Class Win32_BaseBoard; ` +
		`$bios = Get-WmiObject -Class Win32_BIOS; ` +
		`$system = Get-WmiObject -Class Win32_ComputerSystem; ` +
		`$memArray = Get-WmiObject -Class Win32_PhysicalMemoryArray; ` +
		`$memModules = @(Get-WmiObject -Class Win32_PhysicalMemory); ` +
		`Write-Host "Product: $($mb.Product)"; ` +
		`Write-Host "Manufacturer: $($mb.Manufacturer)"; ` +
		`Write-Host "Version: $($mb.Version)"; ` +
		`Write-Host "BIOS Version: $($bios.SMBIOSBIOSVersion)"; ` +
		`Write-Host "BIOS Manufacturer: $($bios.Manufacturer)"; ` +
		`Write-Host "BIOS Date: $($bios.ReleaseDate)"; ` +
		`Write-Host "System Model: $($system.Model)"; ` +
		`Write-Host "Memory Slots: $($memArray.MemoryDevices)"; ` +
		`Write-Host "Memory Slots Used: $($memModules.Count)"; ` +
		`Write-Host "Max Memory: $([math]::Round($memArray.MaxCapacity/1024/1024)) GB"`

	out, err := runCommand(ctx, "powershell", "-Command", script)
	if err != nil {
		return nil, classify(sysinfo.CategoryMotherboard, err)
	}

	values := parseKeyValues(out)
	pick := func(key string) string {
		if v := values[key]; v != "" {
			return v
		}
		return sysinfo.ValueUnknown
	}

	product := pick("product")
	return sysinfo.Motherboard{
		Product:          product,
		Manufacturer:     pick("manufacturer"),
		Version:          pick("version"),
		Chipset:          chipsetFromProduct(product),
		BIOSVersion:      pick("bios_version"),
		BIOSManufacturer: pick("bios_manufacturer"),
		BIOSDate:         formatBIOSDate(values["bios_date"]),
		SystemModel:      pick("system_model"),
		MemorySlots:      pick("memory_slots"),
		MemorySlotsUsed:  pick("memory_slots_used"),
		MaxMemory:        pick("max_memory"),
	}, nil
}

func (a *HardwareAdapter) monitors(ctx context.Context) (sysinfo.Record, error) {
	script := `
$monitors = Get-CimInstance -Namespace root/wmi -ClassName WmiMonitorID
Write-Output "` + monitorDetailsMarker + `"
foreach ($monitor in $monitors) {
    $name = [System.Text.Encoding]::ASCII.GetString($monitor.UserFriendlyName).TrimEnd([char]0)
    $manufacturer = [System.Text.Encoding]::ASCII.GetString($monitor.ManufacturerName).TrimEnd([char]0)
    $product = [System.Text.Encoding]::ASCII.GetString($monitor.ProductCodeID).TrimEnd([char]0)
    Write-Output "$manufacturer|$product|$name"
}
Write-Output "` + screenInfoMarker + `"
Add-Type -AssemblyName System.Windows.Forms
$screens = [System.Windows.Forms.Screen]::AllScreens
foreach ($screen in $screens) {
    $isPrimary = if ($screen.Primary) { "Primary" } else { "Secondary" }
    Write-Output "$($screen.Bounds.Width)x$($screen.Bounds.Height)|$isPrimary"
}
Write-Output "` + refreshRatesMarker + `"
Get-CimInstance -ClassName Win32_VideoController | Where-Object { $_.CurrentRefreshRate -ne $null } | ForEach-Object { Write-Output $_.CurrentRefreshRate }
`
	out, err := runCommand(ctx, "powershell", "-Command", script)
	if err != nil {
		return nil, classify(sysinfo.CategoryMonitor, err)
	}
	return parseMonitorOutput(out), nil
}

func (a *HardwareAdapter) osIdentity(ctx context.Context) (sysinfo.Record, error) {
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

	const currentVersionKey = `HKLM:SOFTWARE\Microsoft\Windows NT\CurrentVersion`

	edition, editionErr := runCommand(ctx, "powershell", "-Command",
		`(Get-ItemProperty "`+currentVersionKey+`").ProductName`)
	build, buildErr := runCommand(ctx, "powershell", "-Command",
		`(Get-ItemProperty "`+currentVersionKey+`").CurrentBuild + "." + (Get-ItemProperty "`+currentVersionKey+`").UBR`)

	if buildErr == nil && build != "" {
		rec.Build = build
	}
	if editionErr == nil && edition != "" {
		// The registry still says "Windows 10" on Windows 11 hosts; builds
		// from 22000 up are Windows 11.
		if major, _, ok := strings.Cut(build, "."); ok || build != "" {
			if n, err := strconv.Atoi(major); err == nil && n >= 22000 {
				edition = strings.ReplaceAll(edition, "Windows 10", "Windows 11")
			}
		}
		rec.Edition = edition
	}

	if version, err := runCommand(ctx, "powershell", "-Command",
		`(Get-ItemProperty "`+currentVersionKey+`").DisplayVersion`); err == nil && version != "" {
		rec.Version = version
	}

	if installed, err := runCommand(ctx, "powershell", "-Command",
		`[DateTime]::FromFileTime((Get-ItemProperty "`+currentVersionKey+`").InstallDate).ToString("MM/dd/yyyy")`); err == nil && installed != "" {
		rec.InstallDate = installed
	}

	return rec, nil
}

func (a *HardwareAdapter) storage(ctx context.Context) (sysinfo.Record, error) {
	out, err := runCommand(ctx, "powershell", "-Command",
		"Get-WmiObject -Class Win32_DiskDrive | Select-Object Model, Size, MediaType, InterfaceType, Index | ConvertTo-Json")
	if err != nil {
		return nil, classify(sysinfo.CategoryStorage, err)
	}

	entries, err := decodeJSONObjects(out)
	if err != nil {
		return nil, newQueryError(KindParse, sysinfo.CategoryStorage, err)
	}

	inv := sysinfo.StorageInventory{}
	for i, entry := range entries {
		model := strings.TrimSpace(asString(entry["Model"]))
		sizeGB := utils.Round(asFloat(entry["Size"]) / 1024 / 1024 / 1024)

		disk := sysinfo.PhysicalDisk{
			Index:   i,
			Model:   model,
			Type:    classifyDiskType(model, asString(entry["MediaType"]), asString(entry["InterfaceType"])),
			TotalGB: sizeGB,
		}
		if disk.Model == "" {
			disk.Model = sysinfo.ValueUnknown
		}
		inv.Disks = append(inv.Disks, disk)
		inv.TotalGB += sizeGB
	}
	inv.TotalGB = utils.Round(inv.TotalGB)
	return inv, nil
}
