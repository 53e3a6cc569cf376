// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ref

import "fmt"

// GatherRows selects rows from a row-major [rows, cols] source:
// out[i] = src[indices[i]]. An out-of-range index is a contract violation.
func GatherRows(src []float32, indices []int32, rows, cols int) ([]float32, error) {
	if len(src) != rows*cols {
		return nil, fmt.Errorf("ref: gather source has %d elements, want %d*%d", len(src), rows, cols)
	}

	out := make([]float32, len(indices)*cols)
	for i, idx := range indices {
		if idx < 0 || int(idx) >= rows {
			return nil, fmt.Errorf("ref: gather index %d out of range [0,%d)", idx, rows)
		}
		copy(out[i*cols:(i+1)*cols], src[int(idx)*cols:(int(idx)+1)*cols])
	}
	return out, nil
}

// ScatterAdd accumulates rows of src into dst at the given row indices:
// dst[indices[i]] += src[i]. dst is copied, not mutated. Duplicate indices
// accumulate in input order.
func ScatterAdd(dst, src []float32, indices []int32, dstRows, cols int) ([]float32, error) {
	if len(dst) != dstRows*cols {
		return nil, fmt.Errorf("ref: scatter destination has %d elements, want %d*%d", len(dst), dstRows, cols)
	}
	if len(src) != len(indices)*cols {
		return nil, fmt.Errorf("ref: scatter source has %d elements, want %d*%d", len(src), len(indices), cols)
	}

	out := make([]float32, len(dst))
	copy(out, dst)
	for i, idx := range indices {
		if idx < 0 || int(idx) >= dstRows {
			return nil, fmt.Errorf("ref: scatter index %d out of range [0,%d)", idx, dstRows)
		}
		for c := 0; c < cols; c++ {
			out[int(idx)*cols+c] += src[i*cols+c]
		}
	}
	return out, nil
}
