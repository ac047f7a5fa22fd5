package units

import "math"

// HeatIndex computes the apparent temperature using the NWS Rothfusz
// regression. Inputs are Fahrenheit and relative humidity percent; the result
// is Fahrenheit rounded to two decimals. Below the 80 degF / 40 %RH validity
// range the input temperature is returned unchanged.
func HeatIndex(tempF, humidity float64) float64 {
	if tempF < 80.0 || humidity < 40.0 {
		return round2(tempF)
	}
	t := tempF
	h := humidity
	hi := -42.379 +
		2.04901523*t +
		10.14333127*h -
		0.22475541*t*h -
		0.00683783*t*t -
		0.05481717*h*h +
		0.00122874*t*t*h +
		0.00085282*t*h*h -
		0.00000199*t*t*h*h
	return round2(hi)
}

// Magnus coefficients over water, degrees Celsius.
const (
	magnusA = 17.62
	magnusB = 243.12
)

// DewPoint computes the dew point in Celsius from temperature (Celsius) and
// relative humidity percent using the Magnus formula. Outside the formula's
// validity range (RH must be in (0, 100]) the input temperature is returned
// unchanged.
func DewPoint(tempC, humidity float64) float64 {
	if humidity <= 0.0 || humidity > 100.0 {
		return tempC
	}
	gamma := math.Log(humidity/100.0) + magnusA*tempC/(magnusB+tempC)
	return round2(magnusB * gamma / (magnusA - gamma))
}

// WindChill computes the NWS 2001 wind chill. Inputs are Fahrenheit and
// miles per hour, result Fahrenheit rounded to two decimals. The formula is
// only defined at or below 50 degF with wind of at least 3 mph; outside that
// range the input temperature is returned unchanged.
func WindChill(tempF, windMph float64) float64 {
	if tempF > 50.0 || windMph < 3.0 {
		return round2(tempF)
	}
	v := math.Pow(windMph, 0.16)
	wc := 35.74 + 0.6215*tempF - 35.75*v + 0.4275*tempF*v
	return round2(wc)
}

func round2(v float64) float64 {
	return math.Round(v*100.0) / 100.0
}
