package analytics

import "math"

// Ratio divides num by den and returns nil when the quotient is undefined.
// Callers never see Inf or NaN.
func Ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Percent is Ratio scaled to 0..100
func Percent(num, den float64) *float64 {
	r := Ratio(num, den)
	if r == nil {
		return nil
	}
	v := *r * 100
	return &v
}

// Float returns v, or 0 and false when v is undefined
func Float(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}
