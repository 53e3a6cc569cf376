// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ref

import (
	"encoding/binary"
	"fmt"

	"github.com/born-ml/kerncheck/internal/quant"
)

// Dequantize decodes a block-quantized payload into a dense float32 array
// of exactly numBlocks * blockSize elements. The payload must be a whole
// number of encoded blocks; a ragged length fails before any decoding.
func Dequantize(data []byte, format quant.Format) ([]float32, error) {
	blocks, err := format.Blocks(len(data))
	if err != nil {
		return nil, err
	}

	t := format.Trait()
	out := make([]float32, 0, blocks*t.BlockSize)
	for i := 0; i < blocks; i++ {
		block := data[i*t.BlockBytes : (i+1)*t.BlockBytes]
		decoded, err := dequantizeBlock(block, format)
		if err != nil {
			return nil, fmt.Errorf("ref: dequantize block %d: %w", i, err)
		}
		out = append(out, decoded...)
	}
	return out, nil
}

func dequantizeBlock(block []byte, format quant.Format) ([]float32, error) {
	switch format {
	case quant.F16:
		return []float32{quant.HalfToFloat32(binary.LittleEndian.Uint16(block))}, nil
	case quant.Q8_0:
		return dequantizeBlockQ8_0(block), nil
	case quant.Q4_K:
		return dequantizeBlockQ4_K(block), nil
	case quant.Q6_K:
		return dequantizeBlockQ6_K(block), nil
	default:
		return nil, fmt.Errorf("unsupported format %s", format)
	}
}

// Q8_0: 32 elements, half d then 32 signed bytes. x[i] = d * q[i].
func dequantizeBlockQ8_0(block []byte) []float32 {
	d := quant.HalfToFloat32(binary.LittleEndian.Uint16(block[0:2]))

	out := make([]float32, 32)
	for i := 0; i < 32; i++ {
		out[i] = d * float32(int8(block[2+i]))
	}
	return out
}

// scaleMinK4 unpacks the 6-bit scale and min for sub-block j from the
// 12-byte packed scales of a K-quant super-block.
func scaleMinK4(j int, scales []byte) (sc, mn uint8) {
	if j < 4 {
		return scales[j] & 63, scales[j+4] & 63
	}
	sc = (scales[j+4] & 0x0F) | ((scales[j-4] >> 6) << 4)
	mn = (scales[j+4] >> 4) | ((scales[j] >> 6) << 4)
	return sc, mn
}

// Q4_K: 256 elements in 8 sub-blocks of 32. Layout: half d, half dmin,
// packed 6-bit scales[12], then qs[128] where each 32-byte group encodes
// 64 elements (low nibbles first, then high nibbles).
// x = d*scale*q - dmin*min.
func dequantizeBlockQ4_K(block []byte) []float32 {
	d := quant.HalfToFloat32(binary.LittleEndian.Uint16(block[0:2]))
	dmin := quant.HalfToFloat32(binary.LittleEndian.Uint16(block[2:4]))
	scales := block[4:16]
	qs := block[16:]

	out := make([]float32, 256)
	y := 0
	is := 0
	for group := 0; group < 256; group += 64 {
		sc1, mn1 := scaleMinK4(is, scales)
		sc2, mn2 := scaleMinK4(is+1, scales)
		d1, m1 := d*float32(sc1), dmin*float32(mn1)
		d2, m2 := d*float32(sc2), dmin*float32(mn2)

		for l := 0; l < 32; l++ {
			out[y+l] = d1*float32(qs[l]&0x0F) - m1
			out[y+32+l] = d2*float32(qs[l]>>4) - m2
		}
		y += 64
		qs = qs[32:]
		is += 2
	}
	return out
}

// Q6_K: 256 elements. Layout: ql[128] low 4 bits, qh[64] high 2 bits,
// int8 scales[16], half d at the end. x = d * scale * (q - 32).
func dequantizeBlockQ6_K(block []byte) []float32 {
	ql := block[0:128]
	qh := block[128:192]
	sc := block[192:208]
	d := quant.HalfToFloat32(binary.LittleEndian.Uint16(block[208:210]))

	out := make([]float32, 256)
	y := 0
	for n := 0; n < 256; n += 128 {
		for l := 0; l < 32; l++ {
			is := l / 16
			q1 := int8(ql[l]&0x0F|((qh[l]>>0)&3)<<4) - 32
			q2 := int8(ql[l+32]&0x0F|((qh[l]>>2)&3)<<4) - 32
			q3 := int8(ql[l]>>4|((qh[l]>>4)&3)<<4) - 32
			q4 := int8(ql[l+32]>>4|((qh[l]>>6)&3)<<4) - 32

			out[y+l] = d * float32(int8(sc[is])) * float32(q1)
			out[y+l+32] = d * float32(int8(sc[is+2])) * float32(q2)
			out[y+l+64] = d * float32(int8(sc[is+4])) * float32(q3)
			out[y+l+96] = d * float32(int8(sc[is+6])) * float32(q4)
		}
		y += 128
		ql = ql[64:]
		qh = qh[32:]
		sc = sc[8:]
	}
	return out
}
