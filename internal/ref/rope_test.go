// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ref

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRopeTable_PositionZero(t *testing.T) {
	cos, sin, err := RopeTable(4, 8, 10000)
	require.NoError(t, err)
	require.Len(t, cos, 4*4)
	require.Len(t, sin, 4*4)

	// Position 0 rotates by angle 0 for every pair.
	for i := 0; i < 4; i++ {
		assert.Equal(t, float32(1), cos[i])
		assert.Equal(t, float32(0), sin[i])
	}
}

func TestRopeTable_OddHeadDim(t *testing.T) {
	_, _, err := RopeTable(2, 7, 10000)
	assert.Error(t, err)
}

func TestRope_PositionZeroUnchanged(t *testing.T) {
	x := []float32{1, 2, 3, 4}
	cos, sin, err := RopeTable(1, 4, 10000)
	require.NoError(t, err)

	out, err := Rope(x, cos, sin, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, x, out)
}

func TestRope_PreservesPairNorm(t *testing.T) {
	// Rotation never changes the magnitude of an (even, odd) pair.
	const seqLen, headDim = 8, 16
	x := make([]float32, seqLen*headDim)
	for i := range x {
		x[i] = float32(i%5) - 2
	}
	cos, sin, err := RopeTable(seqLen, headDim, 10000)
	require.NoError(t, err)

	out, err := Rope(x, cos, sin, seqLen, headDim)
	require.NoError(t, err)

	for p := 0; p < seqLen; p++ {
		for i := 0; i < headDim/2; i++ {
			a, b := x[p*headDim+2*i], x[p*headDim+2*i+1]
			oa, ob := out[p*headDim+2*i], out[p*headDim+2*i+1]
			before := math.Hypot(float64(a), float64(b))
			after := math.Hypot(float64(oa), float64(ob))
			assert.InDelta(t, before, after, 1e-5)
		}
	}
}

func TestRope_QuarterTurn(t *testing.T) {
	// base=1 gives frequency 1 for every pair; position p rotates by p
	// radians. Check pair (1, 0) at position pi/2 worth of table entries
	// by supplying an explicit table instead.
	cos := []float32{0}
	sin := []float32{1}

	out, err := Rope([]float32{1, 0}, cos, sin, 1, 2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0, 1}, out, 1e-6)
}

func TestRope_TableLengthMismatch(t *testing.T) {
	_, err := Rope([]float32{1, 2, 3, 4}, []float32{1}, []float32{0}, 1, 4)
	assert.Error(t, err)
}
