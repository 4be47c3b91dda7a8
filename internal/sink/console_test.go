package sink

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sysdeck/agent/internal/sysinfo"
)

func TestConsoleRendersMemory(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.OnUpdate(sysinfo.Event{
		Category: sysinfo.CategoryMemory,
		Record: sysinfo.Memory{
			TotalGB: 16.0, UsedGB: 8.0, AvailableGB: 8.0, Percent: 50.0,
		},
		Timestamp: time.Now(),
	})

	out := buf.String()
	if !strings.Contains(out, "memory") {
		t.Errorf("output missing category: %q", out)
	}
	if !strings.Contains(out, "8.0 GB / 16.0 GB (50.0%)") {
		t.Errorf("output missing rendered values: %q", out)
	}
}

func TestConsoleMarksFailedEvents(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.OnUpdate(sysinfo.Event{
		Category: sysinfo.CategoryDisk,
		Record:   sysinfo.SentinelRecord(sysinfo.CategoryDisk, sysinfo.ValueError),
		Failed:   true,
	})

	if !strings.Contains(buf.String(), "[failed]") {
		t.Errorf("failed event not marked: %q", buf.String())
	}
}

func TestConsoleRendersGPUNotAvailable(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.OnUpdate(sysinfo.Event{
		Category: sysinfo.CategoryGPU,
		Record:   sysinfo.GPU{Available: false, Name: "No NVIDIA GPU detected"},
	})

	if !strings.Contains(buf.String(), "No NVIDIA GPU detected") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestConsoleRendersMonitors(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.OnUpdate(sysinfo.Event{
		Category: sysinfo.CategoryMonitor,
		Record: sysinfo.MonitorList{
			Monitors: []sysinfo.Monitor{
				{Name: "DELL U2720Q", Resolution: "3840x2160", RefreshHz: 60, Primary: true},
				{Name: "LG 27GL850", Resolution: "2560x1440", RefreshHz: 144},
			},
			Count: 2,
		},
	})

	out := buf.String()
	if !strings.Contains(out, "DELL U2720Q 3840x2160 @60Hz (primary)") {
		t.Errorf("primary monitor not rendered: %q", out)
	}
	if !strings.Contains(out, "LG 27GL850 2560x1440 @144Hz") {
		t.Errorf("secondary monitor not rendered: %q", out)
	}
}
