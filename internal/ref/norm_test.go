// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRMSNorm_ConstantRow(t *testing.T) {
	// A row of constant c has rms = |c|, so unit weights normalize every
	// element to sign(c).
	x := []float32{2, 2, 2, 2, -3, -3, -3, -3}
	weight := []float32{1, 1, 1, 1}

	out, err := RMSNorm(x, weight, 2, 4, 0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{1, 1, 1, 1, -1, -1, -1, -1}, out, 1e-6)
}

func TestRMSNorm_WeightScales(t *testing.T) {
	x := []float32{5, 5}
	weight := []float32{2, 0.5}

	out, err := RMSNorm(x, weight, 1, 2, 0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{2, 0.5}, out, 1e-6)
}

func TestRMSNorm_EpsKeepsZeroRowFinite(t *testing.T) {
	out, err := RMSNorm([]float32{0, 0, 0}, []float32{1, 1, 1}, 1, 3, 1e-6)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0}, out)
}

func TestRMSNorm_ShapeMismatch(t *testing.T) {
	_, err := RMSNorm([]float32{1, 2, 3}, []float32{1, 1}, 2, 2, 1e-6)
	assert.Error(t, err)
	_, err = RMSNorm([]float32{1, 2, 3, 4}, []float32{1}, 2, 2, 1e-6)
	assert.Error(t, err)
}
