// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ref

import "fmt"

// MoERoute performs top-k mixture-of-experts routing. logits is a
// row-major [tokens, experts] gate output; for each token the k highest
// experts are selected and their logits renormalized with a softmax over
// just the selected set. Returns expert indices [tokens, k] and routing
// weights [tokens, k].
func MoERoute(logits []float32, tokens, experts, k int) ([]int32, []float32, error) {
	if len(logits) != tokens*experts {
		return nil, nil, fmt.Errorf("ref: moe logits have %d elements, want %d*%d", len(logits), tokens, experts)
	}
	if k <= 0 || k > experts {
		return nil, nil, fmt.Errorf("ref: moe k=%d out of range for %d experts", k, experts)
	}

	indices := make([]int32, tokens*k)
	weights := make([]float32, tokens*k)

	for t := 0; t < tokens; t++ {
		row := logits[t*experts : (t+1)*experts]
		vals, idxs, err := TopK(row, k)
		if err != nil {
			return nil, nil, err
		}

		norm, err := Softmax(vals, 1, k)
		if err != nil {
			return nil, nil, err
		}

		copy(indices[t*k:(t+1)*k], idxs)
		copy(weights[t*k:(t+1)*k], norm)
	}
	return indices, weights, nil
}
