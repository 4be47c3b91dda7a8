package sysinfo

import (
	"testing"
	"time"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "0s"},
		{"seconds only", 42 * time.Second, "42s"},
		{"minutes and seconds", 5*time.Minute + 3*time.Second, "5m 3s"},
		{"hours minutes", 2*time.Hour + 30*time.Minute, "2h 30m"},
		{"days drop seconds", 24*time.Hour + 5*time.Hour + 36*time.Minute + 12*time.Second, "1d 5h 36m"},
		{"exact day", 24 * time.Hour, "1d"},
		{"negative is unknown", -time.Second, ValueUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatUptime(tt.d); got != tt.want {
				t.Errorf("FormatUptime(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestSentinelRecordCoversEveryCategory(t *testing.T) {
	all := append(StaticCategories(), VolatileCategories()...)
	for _, cat := range all {
		rec := SentinelRecord(cat, ValueError)
		if rec == nil {
			t.Errorf("SentinelRecord(%s) = nil", cat)
			continue
		}
		if rec.Kind() != cat {
			t.Errorf("SentinelRecord(%s).Kind() = %s", cat, rec.Kind())
		}
	}
}

func TestSentinelRecordStringFieldsCarryText(t *testing.T) {
	cpu := SentinelRecord(CategoryCPUStatic, ValueUnknown).(CPUStatic)
	if cpu.Name != ValueUnknown || cpu.L3Cache != ValueUnknown {
		t.Errorf("CPU sentinel = %+v, want %q in string fields", cpu, ValueUnknown)
	}
	if cpu.PhysicalCores != 0 || cpu.BaseMHz != 0 {
		t.Errorf("CPU sentinel numeric fields not zero: %+v", cpu)
	}

	disk := SentinelRecord(CategoryDisk, ValueError).(Disk)
	if disk.Volume != ValueError {
		t.Errorf("Disk sentinel Volume = %q, want %q", disk.Volume, ValueError)
	}
	if disk.TotalGB != 0 || disk.UsedPercent != 0 {
		t.Errorf("Disk sentinel numeric fields not zero: %+v", disk)
	}
}

func TestCategorySplit(t *testing.T) {
	for _, cat := range StaticCategories() {
		if !cat.IsStatic() {
			t.Errorf("%s.IsStatic() = false", cat)
		}
	}
	for _, cat := range VolatileCategories() {
		if cat.IsStatic() {
			t.Errorf("%s.IsStatic() = true", cat)
		}
	}
}
