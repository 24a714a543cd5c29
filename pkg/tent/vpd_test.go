package tent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateVPD(t *testing.T) {
	// Tetens at 25°C gives an SVP of ~3.17 kPa
	assert.InDelta(t, 1.3, CalculateVPD(25, 60), 0.001)
	assert.Less(t, CalculateVPD(25, 80), 0.7)
	assert.Greater(t, CalculateVPD(25, 40), 1.5)
	assert.Equal(t, 0.0, CalculateVPD(25, 100))
}

func TestCalculateVPD_InvalidHumidity(t *testing.T) {
	for _, temp := range []float64{-5, 0, 18.5, 25, 40} {
		assert.Equal(t, 0.0, CalculateVPD(temp, 0), "rh=0 temp=%v", temp)
		assert.Equal(t, 0.0, CalculateVPD(temp, -12), "rh<0 temp=%v", temp)
		assert.Equal(t, 0.0, CalculateVPD(temp, 100.1), "rh>100 temp=%v", temp)
	}
}

func TestCalculateVPD_DecreasesWithHumidity(t *testing.T) {
	prev := CalculateVPD(25, 1)
	for rh := 5.0; rh <= 100; rh += 5 {
		current := CalculateVPD(25, rh)
		assert.LessOrEqual(t, current, prev, "rh=%v", rh)
		prev = current
	}
}

func TestNormalizeTemperature(t *testing.T) {
	assert.InDelta(t, 36.67, NormalizeTemperature(98, ""), 0.01)
	assert.Equal(t, 25.0, NormalizeTemperature(25, ""))
	assert.InDelta(t, 25.0, NormalizeTemperature(77, "°F"), 0.01)
	assert.InDelta(t, 10.0, NormalizeTemperature(50, "F"), 0.01)
	assert.Equal(t, 55.0, NormalizeTemperature(55, "°C"))
}
