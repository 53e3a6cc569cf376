// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package quant implements the precision codec: bit-exact IEEE 754
// half-precision conversion and the block-quantization format metadata
// used to size and validate dequantization.
package quant

import "math"

// HalfToFloat32 converts an IEEE 754 half-precision bit pattern
// (1 sign, 5 exponent, 10 mantissa bits) to float32.
//
// Exponent 0 is signed zero or a subnormal (sign * 2^-14 * mantissa/1024),
// exponent 31 is infinity (mantissa 0) or NaN, anything else is a
// normalized value sign * 2^(exp-15) * (1 + mantissa/1024). The mapping is
// exact: every half value is representable in single precision.
func HalfToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := (h >> 10) & 0x1F
	frac := uint32(h & 0x3FF)

	switch {
	case exp == 0x1F:
		// Infinity or NaN; NaN payload is carried in the top mantissa bits.
		return math.Float32frombits(sign | 0x7F800000 | frac<<13)
	case exp == 0:
		if frac == 0 {
			return math.Float32frombits(sign) // signed zero
		}
		// Subnormal: renormalize into the float32 exponent range.
		e := uint32(127 - 15 + 1)
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		return math.Float32frombits(sign | e<<23 | (frac&0x3FF)<<13)
	default:
		return math.Float32frombits(sign | (uint32(exp)+127-15)<<23 | frac<<13)
	}
}

// HalfFromFloat32 converts a float32 to the nearest half-precision bit
// pattern, rounding to nearest even. Overflow saturates to infinity.
// Used to synthesize F16 and quantized fixtures; the conformance paths
// themselves only decode.
func HalfFromFloat32(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23) & 0xFF
	frac := bits & 0x7FFFFF

	switch {
	case exp == 0xFF:
		if frac != 0 {
			return sign | 0x7E00 // quiet NaN
		}
		return sign | 0x7C00
	case exp-127+15 >= 0x1F:
		return sign | 0x7C00 // overflow to infinity
	case exp-127+15 <= 0:
		// Subnormal or underflow to zero. The implicit leading bit joins
		// the mantissa, and shift places the value on the 2^-24 grid.
		shift := uint32(126 - exp)
		if shift > 24 {
			return sign
		}
		frac |= 0x800000
		half := uint16(frac >> shift)
		// Round to nearest even on the dropped bits.
		rem := frac & ((1 << shift) - 1)
		mid := uint32(1) << (shift - 1)
		if rem > mid || (rem == mid && half&1 == 1) {
			half++
		}
		return sign | half
	default:
		half := sign | uint16(exp-127+15)<<10 | uint16(frac>>13)
		rem := frac & 0x1FFF
		if rem > 0x1000 || (rem == 0x1000 && half&1 == 1) {
			half++ // carries into the exponent correctly by construction
		}
		return half
	}
}
