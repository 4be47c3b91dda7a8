package utils

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  float64
	}{
		{"round down", 1.234, 1.23},
		{"round up", 1.236, 1.24},
		{"exact two decimals", 1.23, 1.23},
		{"zero", 0.0, 0.0},
		{"negative round down", -1.234, -1.23},
		{"negative round up", -1.236, -1.24},
		{"half rounds away from zero", 1.235, 1.24},
		{"negative half rounds away from zero", -1.235, -1.24},
		{"cpu percentage", 23.456789, 23.46},
		{"memory in GB", 15.9876, 15.99},
		{"tiny value collapses to zero", 0.001, 0.0},
		{"large value keeps integer part", 123456789.123456, 123456789.12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Round(tt.input)
			if math.Abs(got-tt.want) > 0.0001 {
				t.Errorf("Round(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRoundIsStable(t *testing.T) {
	for _, input := range []float64{1.23456789, 99.999999, -45.678901} {
		once := Round(input)
		if twice := Round(once); twice != once {
			t.Errorf("Round(Round(%v)) = %v, want %v", input, twice, once)
		}
	}
}
