// Package units implements the unit conversions and derived-metric formulas
// used to normalize station data. Canonical internal units are degrees
// Celsius, hectopascals, meters per second, degrees (0-360), millimeters,
// W/m2 and percent; adapters convert to these exactly once at ingest.
package units

import "math"

// Exact conversion constants. These match the Python WeeWX unit tables and
// must not be "improved": archive continuity depends on them.
const (
	InHgToHPaFactor = 33.8638866667
	MphToMpsFactor  = 0.44704
	InToMmFactor    = 25.4
)

func FahrenheitToCelsius(f float64) float64 { return (f - 32.0) * 5.0 / 9.0 }

func CelsiusToFahrenheit(c float64) float64 { return c*9.0/5.0 + 32.0 }

func InHgToHPa(inhg float64) float64 { return inhg * InHgToHPaFactor }

func HPaToInHg(hpa float64) float64 { return hpa / InHgToHPaFactor }

func MphToMps(mph float64) float64 { return mph * MphToMpsFactor }

func MpsToMph(mps float64) float64 { return mps / MphToMpsFactor }

func InToMm(in float64) float64 { return in * InToMmFactor }

func MmToIn(mm float64) float64 { return mm / InToMmFactor }

// Finite reports whether a conversion produced a usable value. Non-finite
// results are treated as conversion overflow and the field is dropped.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// NormalizeDirection maps an angle in degrees onto [0, 360).
func NormalizeDirection(deg float64) float64 {
	d := math.Mod(deg, 360.0)
	if d < 0 {
		d += 360.0
	}
	return d
}
