// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ref

import (
	"fmt"
	"math"
)

// RopeTable precomputes the rotation angle tables for rotary position
// embedding: cos and sin arrays of shape [seqLen, headDim/2], where pair i
// of position p rotates by angle p * base^(-2i/headDim).
//
// Both the device and reference paths consume this same table, so results
// from either path are directly comparable.
func RopeTable(seqLen, headDim int, base float32) (cos, sin []float32, err error) {
	if headDim%2 != 0 {
		return nil, nil, fmt.Errorf("ref: rope head dim %d must be even", headDim)
	}

	half := headDim / 2
	cos = make([]float32, seqLen*half)
	sin = make([]float32, seqLen*half)
	for p := 0; p < seqLen; p++ {
		for i := 0; i < half; i++ {
			freq := math.Pow(float64(base), -2.0*float64(i)/float64(headDim))
			angle := float64(p) * freq
			cos[p*half+i] = float32(math.Cos(angle))
			sin[p*half+i] = float32(math.Sin(angle))
		}
	}
	return cos, sin, nil
}

// Rope applies rotary position embedding to x [seqLen, headDim] using
// precomputed tables from RopeTable. Adjacent pairs (2i, 2i+1) rotate as
// complex numbers: (a, b) -> (a*cos - b*sin, a*sin + b*cos).
func Rope(x, cos, sin []float32, seqLen, headDim int) ([]float32, error) {
	if len(x) != seqLen*headDim {
		return nil, fmt.Errorf("ref: rope input has %d elements, want %d*%d", len(x), seqLen, headDim)
	}
	half := headDim / 2
	if len(cos) != seqLen*half || len(sin) != seqLen*half {
		return nil, fmt.Errorf("ref: rope tables have %d/%d elements, want %d", len(cos), len(sin), seqLen*half)
	}

	out := make([]float32, len(x))
	for p := 0; p < seqLen; p++ {
		for i := 0; i < half; i++ {
			a := float64(x[p*headDim+2*i])
			b := float64(x[p*headDim+2*i+1])
			c := float64(cos[p*half+i])
			s := float64(sin[p*half+i])
			out[p*headDim+2*i] = float32(a*c - b*s)
			out[p*headDim+2*i+1] = float32(a*s + b*c)
		}
	}
	return out, nil
}
