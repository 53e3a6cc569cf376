// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ref

import (
	"fmt"
	"math"
)

// Attention computes single-head scaled dot-product attention.
// q is [seqQ, headDim], k and v are [seqKV, headDim]; the result is
// softmax(q @ k^T * scale) @ v with shape [seqQ, headDim]. When causal is
// set, query i only attends to keys 0..i (seqQ and seqKV must then agree
// on alignment at the sequence end).
func Attention(q, k, v []float32, seqQ, seqKV, headDim int, scale float32, causal bool) ([]float32, error) {
	if len(q) != seqQ*headDim {
		return nil, fmt.Errorf("ref: attention q has %d elements, want %d*%d", len(q), seqQ, headDim)
	}
	if len(k) != seqKV*headDim || len(v) != seqKV*headDim {
		return nil, fmt.Errorf("ref: attention k/v have %d/%d elements, want %d*%d", len(k), len(v), seqKV, headDim)
	}

	out := make([]float32, seqQ*headDim)
	scores := make([]float64, seqKV)

	for i := 0; i < seqQ; i++ {
		limit := seqKV
		if causal {
			limit = seqKV - seqQ + i + 1
			if limit <= 0 {
				return nil, fmt.Errorf("ref: attention causal window empty for query %d", i)
			}
		}

		for j := 0; j < limit; j++ {
			dot := 0.0
			for d := 0; d < headDim; d++ {
				dot += float64(q[i*headDim+d]) * float64(k[j*headDim+d])
			}
			scores[j] = dot * float64(scale)
		}

		softmaxRow(scores[:limit])

		for d := 0; d < headDim; d++ {
			acc := 0.0
			for j := 0; j < limit; j++ {
				acc += scores[j] * float64(v[j*headDim+d])
			}
			out[i*headDim+d] = float32(acc)
		}
	}
	return out, nil
}

// AttentionScale is the conventional 1/sqrt(headDim) score scaling.
func AttentionScale(headDim int) float32 {
	return float32(1.0 / math.Sqrt(float64(headDim)))
}
