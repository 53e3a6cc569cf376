// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package buffers

import (
	"encoding/binary"
	"math"
)

// Host arrays cross the staging boundary as little-endian bytes, matching
// WGSL storage buffer layout for 32-bit scalars.

// F32Bytes encodes a float32 slice.
func F32Bytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(x))
	}
	return out
}

// BytesToF32 decodes a little-endian float32 array.
func BytesToF32(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// U32Bytes encodes a uint32 slice.
func U32Bytes(v []uint32) []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], x)
	}
	return out
}

// BytesToU32 decodes a little-endian uint32 array.
func BytesToU32(data []byte) []uint32 {
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out
}

// I32Bytes encodes an int32 slice.
func I32Bytes(v []int32) []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(x))
	}
	return out
}

// PackBytes pads raw bytes up to a 4-byte boundary so quantized payloads
// of any encoded block size can be bound as array<u32> storage.
func PackBytes(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}
	out := make([]byte, (len(data)+3)&^3)
	copy(out, data)
	return out
}
