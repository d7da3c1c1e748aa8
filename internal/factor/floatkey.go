package factor

import "math"

// floatKeyAsc reinterprets a float64's bit pattern as a totally ordered
// uint64: non-negative values get their sign bit set, negative values
// are bitwise-complemented. Comparing the results as unsigned integers
// reproduces IEEE-754 real-value ordering, with -0 < +0. NaN inputs are
// never expected here; fchecked rejects computed NaN/Inf upstream of
// every window operator that builds an ordered multiset.
func floatKeyAsc(v float64) uint64 {
	bits := math.Float64bits(v)
	if bits&(1<<63) == 0 {
		return bits | (1 << 63)
	}
	return ^bits
}

// floatKeyDesc is the descending variant: one further bitwise complement.
func floatKeyDesc(v float64) uint64 {
	return ^floatKeyAsc(v)
}
