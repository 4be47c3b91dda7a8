package utils

import "math"

// Round rounds to 2 decimal places. All presented metric values go through
// this so snapshots stay free of float noise.
func Round(val float64) float64 {
	return math.Round(val*100) / 100
}
