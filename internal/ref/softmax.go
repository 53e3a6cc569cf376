// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ref

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Softmax applies a numerically stable row-wise softmax to a row-major
// [rows, cols] matrix.
func Softmax(x []float32, rows, cols int) ([]float32, error) {
	if len(x) != rows*cols {
		return nil, fmt.Errorf("ref: softmax input has %d elements, want %d*%d", len(x), rows, cols)
	}

	out := make([]float32, len(x))
	row := make([]float64, cols)
	for r := 0; r < rows; r++ {
		for i := 0; i < cols; i++ {
			row[i] = float64(x[r*cols+i])
		}
		softmaxRow(row)
		for i := 0; i < cols; i++ {
			out[r*cols+i] = float32(row[i])
		}
	}
	return out, nil
}

// softmaxRow rewrites v in place using the max-shift trick.
func softmaxRow(v []float64) {
	shift := floats.Max(v)
	sum := 0.0
	for i, x := range v {
		e := math.Exp(x - shift)
		v[i] = e
		sum += e
	}
	floats.Scale(1/sum, v)
}
