package adapters

import (
	"testing"
)

func TestParseNvidiaCSV(t *testing.T) {
	out := "NVIDIA GeForce RTX 4080, 23, 4096, 16384, 61\n"

	gpu, err := parseNvidiaCSV(out)
	if err != nil {
		t.Fatalf("parseNvidiaCSV() error = %v", err)
	}

	if !gpu.Available {
		t.Error("Available = false")
	}
	if gpu.Name != "NVIDIA GeForce RTX 4080" {
		t.Errorf("Name = %q", gpu.Name)
	}
	if gpu.Utilization != 23 {
		t.Errorf("Utilization = %v", gpu.Utilization)
	}
	if gpu.MemoryUsedGB != 4.0 {
		t.Errorf("MemoryUsedGB = %v, want 4.0", gpu.MemoryUsedGB)
	}
	if gpu.MemoryTotalGB != 16.0 {
		t.Errorf("MemoryTotalGB = %v, want 16.0", gpu.MemoryTotalGB)
	}
	if gpu.TemperatureC != 61 {
		t.Errorf("TemperatureC = %v", gpu.TemperatureC)
	}
}

func TestParseNvidiaCSVMultiGPUTakesFirst(t *testing.T) {
	out := "NVIDIA RTX A4000, 5, 1024, 16384, 45\nNVIDIA RTX A4000, 80, 8192, 16384, 70\n"

	gpu, err := parseNvidiaCSV(out)
	if err != nil {
		t.Fatalf("parseNvidiaCSV() error = %v", err)
	}
	if gpu.Utilization != 5 {
		t.Errorf("Utilization = %v, want first device's 5", gpu.Utilization)
	}
}

func TestParseNvidiaCSVMalformed(t *testing.T) {
	tests := []struct {
		name string
		out  string
	}{
		{"too few fields", "NVIDIA RTX 4080, 23, 4096"},
		{"non-numeric utilization", "RTX 4080, N/A, 4096, 16384, 61"},
		{"non-numeric memory", "RTX 4080, 23, [Insufficient Permissions], 16384, 61"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseNvidiaCSV(tt.out); err == nil {
				t.Errorf("parseNvidiaCSV(%q) did not fail", tt.out)
			}
		})
	}
}
