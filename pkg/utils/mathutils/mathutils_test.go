package mathutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		val      float64
		decimals int
		expected float64
	}{
		{"Round to 2 decimals", 123.456, 2, 123.46},
		{"Round to 1 decimal", 123.456, 1, 123.5},
		{"Round to 0 decimals", 123.456, 0, 123},
		{"Round negative value", -123.456, 2, -123.46},
		{"Round half away from zero", 2.5, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Round(tt.val, tt.decimals)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		val      int
		minVal   int
		maxVal   int
		expected int
	}{
		{"Value within range", 5, 0, 10, 5},
		{"Value below range", -5, 0, 10, 0},
		{"Value above range", 15, 0, 10, 10},
		{"Value at lower bound", 0, 0, 10, 0},
		{"Value at upper bound", 10, 0, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Clamp(tt.val, tt.minVal, tt.maxVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}
