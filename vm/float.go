package vm

import "math"

// Single-precision floats are carried as their raw bit pattern in a uint32
// register; these two helpers are the only place that
// pattern is translated to and from a Go float32.

func f32FromBits(bits uint32) float32 { return math.Float32frombits(bits) }
func f32ToBits(f float32) uint32      { return math.Float32bits(f) }

// Double-precision values occupy two consecutive 32-bit registers, hi word
// first; doubles are mandatory here, unlike upstream glulxe where they
// are optional.

func f64FromBits(hi, lo uint32) float64 {
	return math.Float64frombits(uint64(hi)<<32 | uint64(lo))
}

func f64ToBits(f float64) (hi, lo uint32) {
	bits := math.Float64bits(f)
	return uint32(bits >> 32), uint32(bits)
}

// numtof/ftonumz/ftonumn implement the numtof/ftonumz/ftonumn opcodes: the
// truncating and rounding conversions between int32 and float32 specified
// by the float opcode family.

func numtof(n int32) float32 { return float32(n) }

func ftonumz(f float32) int32 {
	if math.IsNaN(float64(f)) {
		return 0
	}
	if f >= 2147483647.0 {
		return math.MaxInt32
	}
	if f <= -2147483648.0 {
		return math.MinInt32
	}
	return int32(math.Trunc(float64(f)))
}

func ftonumn(f float32) int32 {
	if math.IsNaN(float64(f)) {
		return 0
	}
	if f >= 2147483647.0 {
		return math.MaxInt32
	}
	if f <= -2147483648.0 {
		return math.MinInt32
	}
	return int32(math.RoundToEven(float64(f)))
}

func numtod(n int32) float64 { return float64(n) }

func dtonumz(f float64) int32 {
	if math.IsNaN(f) {
		return 0
	}
	if f >= 2147483647.0 {
		return math.MaxInt32
	}
	if f <= -2147483648.0 {
		return math.MinInt32
	}
	return int32(math.Trunc(f))
}

func dtonumn(f float64) int32 {
	if math.IsNaN(f) {
		return 0
	}
	if f >= 2147483647.0 {
		return math.MaxInt32
	}
	if f <= -2147483648.0 {
		return math.MinInt32
	}
	return int32(math.RoundToEven(f))
}

// jisnan/jisinf/jdisnan/jdisinf back the NaN/infinity-testing branch
// opcodes, which never compare equal or ordered against NaN.

func jisnan(f float32) bool  { return math.IsNaN(float64(f)) }
func jisinf(f float32) bool  { return math.IsInf(float64(f), 0) }
func jdisnan(f float64) bool { return math.IsNaN(f) }
func jdisinf(f float64) bool { return math.IsInf(f, 0) }
