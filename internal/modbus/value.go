package modbus

import (
	"bytes"
	"math"
	"strconv"
)

// Value is one decoded reading. It keeps the real/integral distinction
// because the historical tables accept only matching numeric types:
// tbl_analog_value and tbl_energy_value take reals, tbl_digital_value
// takes integrals.
type Value struct {
	real     float64
	integral int64
	isReal   bool
}

// RealValue wraps a floating point reading
func RealValue(f float64) Value {
	return Value{real: f, isReal: true}
}

// IntegralValue wraps an integer reading
func IntegralValue(i int64) Value {
	return Value{integral: i}
}

// IsIntegral reports whether the value is an integer reading
func (v Value) IsIntegral() bool {
	return !v.isReal
}

// Float returns the value as a float64 regardless of kind
func (v Value) Float() float64 {
	if v.isReal {
		return v.real
	}
	return float64(v.integral)
}

// Int returns the integral value; zero for real values
func (v Value) Int() int64 {
	return v.integral
}

// Finite reports whether the value is a usable number (not NaN or Inf)
func (v Value) Finite() bool {
	if !v.isReal {
		return true
	}
	return !math.IsNaN(v.real) && !math.IsInf(v.real, 0)
}

// Scale multiplies by ratio. The result is always real, so a scaled
// integral reading is publishable but no longer insertable as digital.
func (v Value) Scale(ratio float64) Value {
	return RealValue(v.Float() * ratio)
}

// Native returns the value in its natural Go type, for SQL binding
func (v Value) Native() interface{} {
	if v.isReal {
		return v.real
	}
	return v.integral
}

// MarshalJSON keeps the kind visible on the wire: reals always carry a
// decimal point, integrals never do
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isReal {
		b := strconv.AppendFloat(nil, v.real, 'g', -1, 64)
		if !bytes.ContainsAny(b, ".eE") {
			b = append(b, '.', '0')
		}
		return b, nil
	}
	return strconv.AppendInt(nil, v.integral, 10), nil
}
