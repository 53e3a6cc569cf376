// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ref

import (
	"fmt"
	"math"
)

// RMSNorm normalizes each row of a row-major [rows, cols] matrix by its
// root mean square and scales by weight (length cols):
// out[r,c] = x[r,c] / sqrt(mean(x[r]^2) + eps) * weight[c].
func RMSNorm(x, weight []float32, rows, cols int, eps float32) ([]float32, error) {
	if len(x) != rows*cols {
		return nil, fmt.Errorf("ref: rmsnorm input has %d elements, want %d*%d", len(x), rows, cols)
	}
	if len(weight) != cols {
		return nil, fmt.Errorf("ref: rmsnorm weight has %d elements, want %d", len(weight), cols)
	}

	out := make([]float32, len(x))
	for r := 0; r < rows; r++ {
		sumSq := 0.0
		for c := 0; c < cols; c++ {
			v := float64(x[r*cols+c])
			sumSq += v * v
		}
		inv := 1.0 / math.Sqrt(sumSq/float64(cols)+float64(eps))
		for c := 0; c < cols; c++ {
			out[r*cols+c] = float32(float64(x[r*cols+c]) * inv * float64(weight[c]))
		}
	}
	return out, nil
}
