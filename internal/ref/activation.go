// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ref

import (
	"fmt"
	"math"
)

// SiLU applies x * sigmoid(x) element-wise.
func SiLU(x []float32) []float32 {
	out := make([]float32, len(x))
	for i, v := range x {
		xv := float64(v)
		out[i] = float32(xv / (1.0 + math.Exp(-xv)))
	}
	return out
}

// GELU applies the tanh approximation
// 0.5x * (1 + tanh(sqrt(2/pi) * (x + 0.044715 x^3))) element-wise,
// matching the variant transformer inference kernels ship.
func GELU(x []float32) []float32 {
	const c = 0.7978845608028654 // sqrt(2/pi)
	out := make([]float32, len(x))
	for i, v := range x {
		xv := float64(v)
		inner := c * (xv + 0.044715*xv*xv*xv)
		out[i] = float32(0.5 * xv * (1.0 + math.Tanh(inner)))
	}
	return out
}

// SwiGLU computes silu(gate) * up element-wise over paired arrays.
func SwiGLU(gate, up []float32) ([]float32, error) {
	if len(gate) != len(up) {
		return nil, fmt.Errorf("ref: swiglu gate/up length mismatch: %d vs %d", len(gate), len(up))
	}
	out := SiLU(gate)
	for i := range out {
		out[i] *= up[i]
	}
	return out, nil
}

// GeGLU computes gelu(gate) * up element-wise over paired arrays.
func GeGLU(gate, up []float32) ([]float32, error) {
	if len(gate) != len(up) {
		return nil, fmt.Errorf("ref: geglu gate/up length mismatch: %d vs %d", len(gate), len(up))
	}
	out := GELU(gate)
	for i := range out {
		out[i] *= up[i]
	}
	return out, nil
}
