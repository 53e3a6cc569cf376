// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ref

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/kerncheck/internal/quant"
)

func TestDequantize_F16(t *testing.T) {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint16(payload[0:], quant.HalfFromFloat32(1.5))
	binary.LittleEndian.PutUint16(payload[2:], quant.HalfFromFloat32(-0.25))

	out, err := Dequantize(payload, quant.F16)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -0.25}, out)
}

func TestDequantize_Q8_0(t *testing.T) {
	block := make([]byte, 34)
	binary.LittleEndian.PutUint16(block, quant.HalfFromFloat32(0.5))
	for i := 0; i < 32; i++ {
		block[2+i] = byte(int8(i - 16))
	}

	out, err := Dequantize(block, quant.Q8_0)
	require.NoError(t, err)
	require.Len(t, out, 32)
	for i := 0; i < 32; i++ {
		assert.InDelta(t, 0.5*float64(i-16), float64(out[i]), 1e-6, "element %d", i)
	}
}

func TestDequantize_Q4_K(t *testing.T) {
	block := make([]byte, 144)
	binary.LittleEndian.PutUint16(block[0:], quant.HalfFromFloat32(1)) // d
	binary.LittleEndian.PutUint16(block[2:], quant.HalfFromFloat32(0)) // dmin
	block[4] = 2                                                       // scale of sub-block 0
	block[16] = 0x53                                                   // first qs byte: low nibble 3, high nibble 5

	out, err := Dequantize(block, quant.Q4_K)
	require.NoError(t, err)
	require.Len(t, out, 256)

	// x = d * scale * q - dmin * min; sub-block 0 covers elements 0..31
	// from low nibbles, 32..63 from high nibbles under the next scale.
	assert.InDelta(t, 6, out[0], 1e-6)  // 1 * 2 * 3
	assert.InDelta(t, 0, out[1], 1e-6)  // q = 0
	assert.InDelta(t, 0, out[32], 1e-6) // sub-block 1 scale is 0
}

func TestDequantize_Q6_K(t *testing.T) {
	block := make([]byte, 210)
	binary.LittleEndian.PutUint16(block[208:], quant.HalfFromFloat32(1)) // d
	block[192] = 1                                                       // scale of sub-block 0
	block[0] = 0x07                                                      // ql[0] low nibble 7

	out, err := Dequantize(block, quant.Q6_K)
	require.NoError(t, err)
	require.Len(t, out, 256)

	// x = d * scale * (q - 32)
	assert.InDelta(t, -25, out[0], 1e-6) // 1 * 1 * (7 - 32)
	assert.InDelta(t, -32, out[1], 1e-6) // 1 * 1 * (0 - 32)
	assert.InDelta(t, 0, out[16], 1e-6)  // sub-block 1 scale is 0
}

func TestDequantize_RaggedInput(t *testing.T) {
	for _, format := range []quant.Format{quant.Q8_0, quant.Q4_K, quant.Q6_K} {
		size := format.Trait().BlockBytes
		_, err := Dequantize(make([]byte, size+1), format)
		assert.ErrorIs(t, err, quant.ErrBlockAlignment, "%s must reject ragged input", format)
	}
}

func TestDequantize_MultipleBlocks(t *testing.T) {
	block := make([]byte, 34*2)
	binary.LittleEndian.PutUint16(block[0:], quant.HalfFromFloat32(1))
	block[2] = byte(int8(5))
	binary.LittleEndian.PutUint16(block[34:], quant.HalfFromFloat32(2))
	block[36] = 0xFD // -3 as a signed byte weight

	out, err := Dequantize(block, quant.Q8_0)
	require.NoError(t, err)
	require.Len(t, out, 64)
	assert.InDelta(t, 5, out[0], 1e-6)
	assert.InDelta(t, -6, out[32], 1e-6)
}
