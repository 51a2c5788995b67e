package mathutils

import (
	"math"
)

// Round rounds a float64 to the specified number of decimal places.
func Round(val float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(val*p) / p
}

// Clamp caps 'val' within [minVal, maxVal].
func Clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	} else if val > maxVal {
		return maxVal
	}
	return val
}
