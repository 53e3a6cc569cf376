// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatherRows(t *testing.T) {
	src := []float32{
		1, 2,
		3, 4,
		5, 6,
	}

	out, err := GatherRows(src, []int32{2, 0, 2}, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 6, 1, 2, 5, 6}, out)
}

func TestGatherRows_IndexOutOfRange(t *testing.T) {
	src := []float32{1, 2, 3, 4}
	_, err := GatherRows(src, []int32{2}, 2, 2)
	assert.Error(t, err)
	_, err = GatherRows(src, []int32{-1}, 2, 2)
	assert.Error(t, err)
}

func TestScatterAdd_AccumulatesDuplicates(t *testing.T) {
	dst := []float32{
		10, 10,
		20, 20,
	}
	src := []float32{
		1, 2,
		3, 4,
		5, 6,
	}

	out, err := ScatterAdd(dst, src, []int32{0, 1, 0}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{16, 18, 23, 24}, out)

	// The destination argument is untouched.
	assert.Equal(t, []float32{10, 10, 20, 20}, dst)
}

func TestScatterAdd_IndexOutOfRange(t *testing.T) {
	_, err := ScatterAdd([]float32{1, 2}, []float32{1}, []int32{5}, 2, 1)
	assert.Error(t, err)
}
