// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ref is the host reference library: pure CPU implementations of
// every operation the harness can fall back to. All arithmetic runs in
// float64 and rounds once at the end, so the reference is strictly more
// precise than any device path it is compared against.
package ref

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/kerncheck/internal/quant"
)

// MatMul computes C = A @ B for row-major A [m,k] and B [k,n].
func MatMul(a, b []float32, m, k, n int) ([]float32, error) {
	return MatMulScaled(a, b, m, k, n, 1.0)
}

// MatMulScaled computes C = alpha * (A @ B).
func MatMulScaled(a, b []float32, m, k, n int, alpha float32) ([]float32, error) {
	if len(a) != m*k {
		return nil, fmt.Errorf("ref: matmul A has %d elements, want %d*%d", len(a), m, k)
	}
	if len(b) != k*n {
		return nil, fmt.Errorf("ref: matmul B has %d elements, want %d*%d", len(b), k, n)
	}

	var c mat.Dense
	c.Mul(mat.NewDense(m, k, widen(a)), mat.NewDense(k, n, widen(b)))
	if alpha != 1.0 {
		c.Scale(float64(alpha), &c)
	}
	return narrow(c.RawMatrix().Data), nil
}

// MatMulQuant computes C = A @ dequant(B) where B is block-quantized with
// format fmt and decodes to a row-major [k,n] matrix.
func MatMulQuant(a []float32, b []byte, format quant.Format, m, k, n int) ([]float32, error) {
	elems, err := format.Elements(len(b))
	if err != nil {
		return nil, err
	}
	if elems != k*n {
		return nil, fmt.Errorf("ref: quantized B decodes to %d elements, want %d*%d", elems, k, n)
	}
	dense, err := Dequantize(b, format)
	if err != nil {
		return nil, err
	}
	return MatMul(a, dense, m, k, n)
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func narrow(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
