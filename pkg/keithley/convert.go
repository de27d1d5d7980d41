package keithley

import "math"

// maxThermocoupleMv bounds plausible thermocouple emf. Readings beyond it
// are open or misrouted inputs, not temperatures.
const maxThermocoupleMv = 100.0

// breakpoint is one segment of a piecewise polynomial approximation of a
// thermocouple's inverse (emf to temperature) curve. It applies to inputs
// below maxMv; coefficients are in ascending power order.
type breakpoint struct {
	maxMv  float64
	coeffs []float64
}

// thermocoupleTables holds NIST ITS-90 inverse polynomial coefficients per
// sensor type, segments in ascending maxMv order.
var thermocoupleTables = map[string][]breakpoint{
	"K": {
		{0, []float64{ // -200 to 0 degC
			0.0000000e+00,
			2.5173462e+01,
			-1.1662878e+00,
			-1.0833638e+00,
			-8.9773540e-01,
			-3.7342377e-01,
			-8.6632643e-02,
			-1.0450598e-02,
			-5.1920577e-04,
		}},
		{20.644, []float64{ // 0 to 500 degC
			0.000000e+00,
			2.508355e+01,
			7.860106e-02,
			-2.503131e-01,
			8.315270e-02,
			-1.228034e-02,
			9.804036e-04,
			-4.413030e-05,
			1.057734e-06,
			-1.052755e-08,
		}},
		{54.886, []float64{ // 500 to 1372 degC
			-1.318058e+02,
			4.830222e+01,
			-1.646031e+00,
			5.464731e-02,
			-9.650715e-04,
			8.802193e-06,
			-3.110810e-08,
		}},
	},
}

// polyEval evaluates a polynomial with ascending-order coefficients at x
// using Horner's method.
func polyEval(coeffs []float64, x float64) float64 {
	var y float64
	for i := len(coeffs) - 1; i >= 0; i-- {
		y = y*x + coeffs[i]
	}
	return y
}

// RTDToDegC converts an RTD resistance to degrees Celsius using the linear
// approximation tempC = (ohms/r0 - 1) / alpha.
func RTDToDegC(ohms, alpha, r0 float64) float64 {
	return (ohms/r0 - 1) / alpha
}

// ThermocoupleToDegC converts a thermocouple emf in millivolts to degrees
// Celsius, adding the supplied cold-junction temperature. It reports false
// for an unknown sensor type, an emf beyond the plausible range, or an emf
// above the highest table segment.
func ThermocoupleToDegC(mv float64, sensorType string, coldJunctionC float64) (float64, bool) {
	table, ok := thermocoupleTables[sensorType]
	if !ok {
		return 0, false
	}
	if math.Abs(mv) > maxThermocoupleMv {
		return 0, false
	}

	for _, bp := range table {
		if mv >= bp.maxMv {
			continue
		}
		return polyEval(bp.coeffs, mv) + coldJunctionC, true
	}
	return 0, false
}
