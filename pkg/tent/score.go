package tent

import (
	"math"

	"github.com/alexsears/tentOS/pkg/config"
)

var (
	idealVPD      = config.Range{Min: 0.8, Max: 1.2}
	acceptableVPD = config.Range{Min: 0.4, Max: 1.6}
)

type ScoreInput struct {
	Temperature *float64
	Humidity    *float64
	VPD         *float64
}

// EnvironmentScore averages the temperature, humidity and VPD sub-scores that
// have an input. With no input at all it returns (0, false).
func EnvironmentScore(in ScoreInput, tempRange, humidityRange config.Range) (int, bool) {
	var scores []float64

	if in.Temperature != nil {
		scores = append(scores, rangeScore(*in.Temperature, tempRange, 10))
	}
	if in.Humidity != nil {
		scores = append(scores, rangeScore(*in.Humidity, humidityRange, 2))
	}
	if in.VPD != nil {
		scores = append(scores, vpdScore(*in.VPD))
	}

	if len(scores) == 0 {
		return 0, false
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	return int(sum / float64(len(scores))), true
}

// rangeScore is 100 inside the range and loses penalty points per unit outside.
func rangeScore(value float64, r config.Range, penalty float64) float64 {
	var deviation float64
	switch {
	case value < r.Min:
		deviation = r.Min - value
	case value > r.Max:
		deviation = value - r.Max
	default:
		return 100
	}
	return math.Max(0, 100-deviation*penalty)
}

func vpdScore(vpd float64) float64 {
	switch {
	case vpd >= idealVPD.Min && vpd <= idealVPD.Max:
		return 100
	case vpd >= acceptableVPD.Min && vpd <= acceptableVPD.Max:
		return 75
	default:
		return 50
	}
}
