// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftmax_RowsSumToOne(t *testing.T) {
	x := []float32{1, 2, 3, 4, -10, 0, 10, 5}

	out, err := Softmax(x, 2, 4)
	require.NoError(t, err)

	for r := 0; r < 2; r++ {
		sum := float64(0)
		for c := 0; c < 4; c++ {
			v := out[r*4+c]
			assert.GreaterOrEqual(t, v, float32(0))
			sum += float64(v)
		}
		assert.InDelta(t, 1.0, sum, 1e-6, "row %d", r)
	}
}

func TestSoftmax_UniformInput(t *testing.T) {
	out, err := Softmax([]float32{3, 3, 3, 3}, 1, 4)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.25, 0.25, 0.25, 0.25}, out, 1e-7)
}

func TestSoftmax_LargeValuesStayFinite(t *testing.T) {
	// Without the max shift these would overflow exp.
	out, err := Softmax([]float32{1000, 1001, 1002}, 1, 3)
	require.NoError(t, err)

	sum := float64(0)
	for _, v := range out {
		sum += float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.Greater(t, out[2], out[1])
	assert.Greater(t, out[1], out[0])
}

func TestSoftmax_ShapeMismatch(t *testing.T) {
	_, err := Softmax([]float32{1, 2, 3}, 2, 2)
	assert.Error(t, err)
}

func TestTopK_Descending(t *testing.T) {
	values, indices, err := TopK([]float32{3, 1, 4, 1, 5}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 4, 3}, values)
	assert.Equal(t, []int32{4, 2, 0}, indices)
}

func TestTopK_TiesKeepLowerIndex(t *testing.T) {
	values, indices, err := TopK([]float32{2, 7, 7, 2}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{7, 7}, values)
	assert.Equal(t, []int32{1, 2}, indices)
}

func TestTopK_KOutOfRange(t *testing.T) {
	_, _, err := TopK([]float32{1, 2}, 3)
	assert.Error(t, err)
	_, _, err = TopK([]float32{1, 2}, 0)
	assert.Error(t, err)
}

func TestMoERoute_TopExpertsRenormalized(t *testing.T) {
	// One token, three experts, pick two.
	logits := []float32{0, 0, 1}

	indices, weights, err := MoERoute(logits, 1, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 0}, indices)

	// Softmax over the selected logits {1, 0}.
	assert.InDelta(t, 0.7310586, weights[0], 1e-5)
	assert.InDelta(t, 0.2689414, weights[1], 1e-5)
	assert.InDelta(t, 1.0, float64(weights[0])+float64(weights[1]), 1e-6)
}

func TestMoERoute_PerTokenIndependence(t *testing.T) {
	logits := []float32{
		5, 0, 0, 0,
		0, 0, 0, 5,
	}
	indices, weights, err := MoERoute(logits, 2, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 3}, indices)
	assert.InDeltaSlice(t, []float32{1, 1}, weights, 1e-6)
}

func TestMoERoute_BadArgs(t *testing.T) {
	_, _, err := MoERoute([]float32{1, 2}, 1, 3, 1)
	assert.Error(t, err)
	_, _, err = MoERoute([]float32{1, 2, 3}, 1, 3, 4)
	assert.Error(t, err)
}
