package tent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alexsears/tentOS/pkg/config"
)

func ptr(v float64) *float64 {
	return &v
}

var (
	tempRange     = config.Range{Min: 20, Max: 30}
	humidityRange = config.Range{Min: 60, Max: 80}
)

func TestEnvironmentScore_Midpoints(t *testing.T) {
	score, ok := EnvironmentScore(ScoreInput{
		Temperature: ptr(tempRange.Midpoint()),
		Humidity:    ptr(humidityRange.Midpoint()),
		VPD:         ptr(0.95),
	}, tempRange, humidityRange)

	assert.True(t, ok)
	assert.Equal(t, 100, score)
}

func TestEnvironmentScore_NoData(t *testing.T) {
	score, ok := EnvironmentScore(ScoreInput{}, tempRange, humidityRange)

	assert.False(t, ok)
	assert.Equal(t, 0, score)
}

func TestEnvironmentScore_Penalties(t *testing.T) {
	tests := []struct {
		name     string
		in       ScoreInput
		expected int
	}{
		{"temp 2 degrees over", ScoreInput{Temperature: ptr(32)}, 80},
		{"temp far below floors at zero", ScoreInput{Temperature: ptr(5)}, 0},
		{"humidity 5 points under", ScoreInput{Humidity: ptr(55)}, 90},
		{"vpd acceptable", ScoreInput{VPD: ptr(1.4)}, 75},
		{"vpd poor", ScoreInput{VPD: ptr(2.0)}, 50},
		{"mean of two", ScoreInput{Temperature: ptr(25), VPD: ptr(0.3)}, 75},
		{"truncated mean", ScoreInput{Temperature: ptr(31), Humidity: ptr(81), VPD: ptr(1.4)}, 87},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, ok := EnvironmentScore(tt.in, tempRange, humidityRange)
			assert.True(t, ok)
			assert.Equal(t, tt.expected, score)
		})
	}
}
