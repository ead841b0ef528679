package pricestep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloor(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		step  float64
		want  float64
	}{
		{"mid bucket", 100.73, 0.5, 100.5},
		{"exact boundary", 100.0, 0.5, 100.0},
		{"penny step", 50123.457, 0.01, 50123.45},
		{"coarse step", 50123.45, 5, 50120},
		{"sub pip", 1.23456, 0.0001, 1.2345},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Floor(tt.price, tt.step))
		})
	}
}

func TestFloorBadStepLeavesPrice(t *testing.T) {
	assert.Equal(t, 100.73, Floor(100.73, 0))
	assert.Equal(t, 100.73, Floor(100.73, -0.5))
	assert.Equal(t, 100.73, Floor(100.73, math.NaN()))
}

func TestFloorIsIdempotent(t *testing.T) {
	once := Floor(100.73, 0.5)
	assert.Equal(t, once, Floor(once, 0.5))
}

func TestDecimals(t *testing.T) {
	assert.Equal(t, 1, Decimals(0.5))
	assert.Equal(t, 3, Decimals(0.001))
	assert.Equal(t, 0, Decimals(5))
	assert.Equal(t, 0, Decimals(0))
}

func TestFallback(t *testing.T) {
	assert.Equal(t, 25.0, Fallback(50000))
	assert.Equal(t, DefaultStep, Fallback(1))
	assert.Equal(t, DefaultStep, Fallback(0))
	assert.Equal(t, DefaultStep, Fallback(math.NaN()))
}
