// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ref

import (
	"fmt"
	"sort"
)

// TopK returns the k largest values of x with their source indices, in
// descending value order. Ties break toward the lower index, matching the
// first-wins behavior of a linear scan.
func TopK(x []float32, k int) ([]float32, []int32, error) {
	if k <= 0 || k > len(x) {
		return nil, nil, fmt.Errorf("ref: topk k=%d out of range for %d elements", k, len(x))
	}

	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x[order[a]] > x[order[b]]
	})

	values := make([]float32, k)
	indices := make([]int32, k)
	for i := 0; i < k; i++ {
		values[i] = x[order[i]]
		indices[i] = int32(order[i])
	}
	return values, indices, nil
}
