package tent

import (
	"math"
	"strings"
)

// fahrenheitGuard is the highest plausible grow-tent temperature in Celsius;
// an unlabelled reading above it is taken to be Fahrenheit.
const fahrenheitGuard = 50.0

// CalculateVPD returns the vapor pressure deficit in kPa for an air
// temperature in Celsius and a relative humidity in percent, rounded to one
// decimal. Humidity outside (0, 100] yields 0.
func CalculateVPD(tempC, humidity float64) float64 {
	if humidity <= 0 || humidity > 100 {
		return 0.0
	}

	// Tetens
	svp := 0.6108 * math.Exp((17.27*tempC)/(tempC+237.3))
	return roundTo(svp*(1-humidity/100), 1)
}

// NormalizeTemperature converts a temperature reading to Celsius. The unit is
// trusted when present; a missing unit falls back to the magnitude check.
func NormalizeTemperature(value float64, unit string) float64 {
	if isFahrenheit(value, unit) {
		return FahrenheitToCelsius(value)
	}
	return value
}

func isFahrenheit(value float64, unit string) bool {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return value > fahrenheitGuard
	}
	return strings.Contains(strings.ToLower(unit), "f")
}

func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

func roundTo(value float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(value*pow) / pow
}
