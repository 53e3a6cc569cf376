// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package quant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTraits(t *testing.T) {
	tests := []struct {
		format     Format
		blockSize  int
		blockBytes int
	}{
		{F16, 1, 2},
		{Q8_0, 32, 34},
		{Q4_K, 256, 144},
		{Q6_K, 256, 210},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			tr := tt.format.Trait()
			assert.Equal(t, tt.blockSize, tr.BlockSize)
			assert.Equal(t, tt.blockBytes, tr.BlockBytes)
		})
	}
}

func TestBlocks_WholeBlocksOnly(t *testing.T) {
	blocks, err := Q8_0.Blocks(34 * 3)
	require.NoError(t, err)
	assert.Equal(t, 3, blocks)

	_, err = Q8_0.Blocks(34*3 + 1)
	require.ErrorIs(t, err, ErrBlockAlignment)

	_, err = Q4_K.Blocks(143)
	require.ErrorIs(t, err, ErrBlockAlignment)

	blocks, err = Q6_K.Blocks(0)
	require.NoError(t, err)
	assert.Equal(t, 0, blocks)
}

func TestElements(t *testing.T) {
	n, err := Q8_0.Elements(34 * 2)
	require.NoError(t, err)
	assert.Equal(t, 64, n)

	_, err = Q6_K.Elements(211)
	assert.ErrorIs(t, err, ErrBlockAlignment)
}

func TestEncodedSize(t *testing.T) {
	size, err := Q4_K.EncodedSize(512)
	require.NoError(t, err)
	assert.Equal(t, 288, size)

	_, err = Q4_K.EncodedSize(500)
	assert.ErrorIs(t, err, ErrBlockAlignment)
}
