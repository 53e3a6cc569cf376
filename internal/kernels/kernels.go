// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package kernels

import (
	"fmt"
	"math"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/kerncheck/internal/buffers"
	"github.com/born-ml/kerncheck/internal/dispatch"
	"github.com/born-ml/kerncheck/internal/quant"
)

const storageUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc

const resultUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// packWords encodes uniform parameters as little-endian 32-bit words.
// StageUniform pads the result to the 16-byte alignment WGSL requires.
func packWords(words ...uint32) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		out[i*4+0] = byte(w)
		out[i*4+1] = byte(w >> 8)
		out[i*4+2] = byte(w >> 16)
		out[i*4+3] = byte(w >> 24)
	}
	return out
}

// submit runs one compute pass: bind the staged inputs, the result buffer
// and the uniform params in binding order, dispatch, and wait via queue
// submission. The caller owns every buffer and releases them after the
// readback.
func submit(rt *dispatch.Runtime, name, code string, inputs []*buffers.Buffer, result *buffers.Buffer, params []byte, wgX, wgY uint32) error {
	shader := rt.Dev.Shader(name, code)
	pipeline := rt.Dev.Pipeline(name, shader)

	paramsBuf := rt.Arena.StageUniform(params)
	defer paramsBuf.Release()

	entries := make([]wgpu.BindGroupEntry, 0, len(inputs)+2)
	for i, in := range inputs {
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), in.Raw(), 0, in.Size()))
	}
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(inputs)), result.Raw(), 0, result.Size()))
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(inputs)+1), paramsBuf.Raw(), 0, paramsBuf.Size()))

	bindGroup := rt.Dev.Handle().CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	encoder := rt.Dev.Handle().CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(wgX, wgY, 1)
	pass.End()

	cmd := encoder.Finish(nil)
	rt.Dev.Queue().Submit(cmd)
	return nil
}

// readF32 reads a result buffer back as float32s.
func readF32(rt *dispatch.Runtime, buf *buffers.Buffer, count int) ([]float32, error) {
	data, err := rt.Arena.Readback(buf, uint64(count)*4)
	if err != nil {
		return nil, err
	}
	return buffers.BytesToF32(data), nil
}

func ceilDiv(n, d int) uint32 {
	return uint32((n + d - 1) / d)
}

// MatMul is the device kernel for C = A @ B.
// Args: F32[0]=A, F32[1]=B, Dims=[M,K,N].
func MatMul(rt *dispatch.Runtime, args dispatch.Args) ([]float32, error) {
	m, k, n := args.Dims[0], args.Dims[1], args.Dims[2]
	if len(args.F32[0]) != m*k || len(args.F32[1]) != k*n {
		return nil, fmt.Errorf("kernels: matmul inputs %d/%d do not match dims [%d,%d,%d]",
			len(args.F32[0]), len(args.F32[1]), m, k, n)
	}

	bufA := rt.Arena.Stage(buffers.F32Bytes(args.F32[0]), storageUsage)
	defer bufA.Release()
	bufB := rt.Arena.Stage(buffers.F32Bytes(args.F32[1]), storageUsage)
	defer bufB.Release()
	bufC := rt.Arena.Alloc(uint64(m*n)*4, resultUsage)
	defer bufC.Release()

	params := packWords(uint32(m), uint32(k), uint32(n))
	if err := submit(rt, "matmul", matmulShader, []*buffers.Buffer{bufA, bufB}, bufC, params,
		ceilDiv(n, 16), ceilDiv(m, 16)); err != nil {
		return nil, err
	}
	return readF32(rt, bufC, m*n)
}

// MatMulQ8 is the device kernel for C = A @ dequant(B), B in Q8_0.
// Args: F32[0]=A, Raw[0]=B payload, Dims=[M,K,N].
func MatMulQ8(rt *dispatch.Runtime, args dispatch.Args) ([]float32, error) {
	m, k, n := args.Dims[0], args.Dims[1], args.Dims[2]
	elems, err := quant.Q8_0.Elements(len(args.Raw[0]))
	if err != nil {
		return nil, err
	}
	if elems != k*n {
		return nil, fmt.Errorf("kernels: quantized B decodes to %d elements, want %d*%d", elems, k, n)
	}

	bufA := rt.Arena.Stage(buffers.F32Bytes(args.F32[0]), storageUsage)
	defer bufA.Release()
	bufB := rt.Arena.Stage(buffers.PackBytes(args.Raw[0]), storageUsage)
	defer bufB.Release()
	bufC := rt.Arena.Alloc(uint64(m*n)*4, resultUsage)
	defer bufC.Release()

	params := packWords(uint32(m), uint32(k), uint32(n))
	if err := submit(rt, "matmul_q8_0", matmulQ8Shader, []*buffers.Buffer{bufA, bufB}, bufC, params,
		ceilDiv(n, 16), ceilDiv(m, 16)); err != nil {
		return nil, err
	}
	return readF32(rt, bufC, m*n)
}

// DequantQ8 is the device kernel expanding a Q8_0 payload to floats.
// Args: Raw[0]=payload.
func DequantQ8(rt *dispatch.Runtime, args dispatch.Args) ([]float32, error) {
	count, err := quant.Q8_0.Elements(len(args.Raw[0]))
	if err != nil {
		return nil, err
	}

	bufIn := rt.Arena.Stage(buffers.PackBytes(args.Raw[0]), storageUsage)
	defer bufIn.Release()
	bufOut := rt.Arena.Alloc(uint64(count)*4, resultUsage)
	defer bufOut.Release()

	params := packWords(uint32(count))
	if err := submit(rt, "dequant_q8_0", dequantQ8Shader, []*buffers.Buffer{bufIn}, bufOut, params,
		ceilDiv(count, workgroupSize), 1); err != nil {
		return nil, err
	}
	return readF32(rt, bufOut, count)
}

// Softmax is the device kernel for row-wise softmax.
// Args: F32[0]=x, Dims=[rows,cols].
func Softmax(rt *dispatch.Runtime, args dispatch.Args) ([]float32, error) {
	rows, cols := args.Dims[0], args.Dims[1]
	return rowKernel(rt, "softmax", softmaxShader, args.F32[0], nil, rows, cols,
		packWords(uint32(rows), uint32(cols)))
}

// RMSNorm is the device kernel for row-wise RMS normalization.
// Args: F32[0]=x, F32[1]=weight, Dims=[rows,cols], Scalars[0]=eps.
func RMSNorm(rt *dispatch.Runtime, args dispatch.Args) ([]float32, error) {
	rows, cols := args.Dims[0], args.Dims[1]
	eps := args.Scalars[0]
	return rowKernel(rt, "rmsnorm", rmsnormShader, args.F32[0], args.F32[1], rows, cols,
		packWords(uint32(rows), uint32(cols), math.Float32bits(eps)))
}

// rowKernel covers the one-thread-per-row shaders with an optional second
// float input.
func rowKernel(rt *dispatch.Runtime, name, code string, x, extra []float32, rows, cols int, params []byte) ([]float32, error) {
	if len(x) != rows*cols {
		return nil, fmt.Errorf("kernels: %s input has %d elements, want %d*%d", name, len(x), rows, cols)
	}

	inputs := make([]*buffers.Buffer, 0, 2)
	bufX := rt.Arena.Stage(buffers.F32Bytes(x), storageUsage)
	defer bufX.Release()
	inputs = append(inputs, bufX)

	if extra != nil {
		bufW := rt.Arena.Stage(buffers.F32Bytes(extra), storageUsage)
		defer bufW.Release()
		inputs = append(inputs, bufW)
	}

	bufOut := rt.Arena.Alloc(uint64(rows*cols)*4, resultUsage)
	defer bufOut.Release()

	if err := submit(rt, name, code, inputs, bufOut, params,
		ceilDiv(rows, workgroupSize), 1); err != nil {
		return nil, err
	}
	return readF32(rt, bufOut, rows*cols)
}

// SiLU is the element-wise device kernel for x * sigmoid(x).
// Args: F32[0]=x.
func SiLU(rt *dispatch.Runtime, args dispatch.Args) ([]float32, error) {
	return elementwise(rt, "silu", siluShader, args.F32[0])
}

// GELU is the element-wise device kernel for the tanh-approximated GELU.
// Args: F32[0]=x.
func GELU(rt *dispatch.Runtime, args dispatch.Args) ([]float32, error) {
	return elementwise(rt, "gelu", geluShader, args.F32[0])
}

func elementwise(rt *dispatch.Runtime, name, code string, x []float32) ([]float32, error) {
	bufIn := rt.Arena.Stage(buffers.F32Bytes(x), storageUsage)
	defer bufIn.Release()
	bufOut := rt.Arena.Alloc(uint64(len(x))*4, resultUsage)
	defer bufOut.Release()

	params := packWords(uint32(len(x)))
	if err := submit(rt, name, code, []*buffers.Buffer{bufIn}, bufOut, params,
		ceilDiv(len(x), workgroupSize), 1); err != nil {
		return nil, err
	}
	return readF32(rt, bufOut, len(x))
}

// Rope is the device kernel for rotary position embedding. The angle
// tables arrive precomputed from the shared host derivation.
// Args: F32[0]=x, F32[1]=cos, F32[2]=sin, Dims=[seqLen,headDim].
func Rope(rt *dispatch.Runtime, args dispatch.Args) ([]float32, error) {
	seqLen, headDim := args.Dims[0], args.Dims[1]
	if len(args.F32[0]) != seqLen*headDim {
		return nil, fmt.Errorf("kernels: rope input has %d elements, want %d*%d", len(args.F32[0]), seqLen, headDim)
	}

	bufX := rt.Arena.Stage(buffers.F32Bytes(args.F32[0]), storageUsage)
	defer bufX.Release()
	bufCos := rt.Arena.Stage(buffers.F32Bytes(args.F32[1]), storageUsage)
	defer bufCos.Release()
	bufSin := rt.Arena.Stage(buffers.F32Bytes(args.F32[2]), storageUsage)
	defer bufSin.Release()
	bufOut := rt.Arena.Alloc(uint64(seqLen*headDim)*4, resultUsage)
	defer bufOut.Release()

	pairs := seqLen * headDim / 2
	params := packWords(uint32(seqLen), uint32(headDim))
	if err := submit(rt, "rope", ropeShader, []*buffers.Buffer{bufX, bufCos, bufSin}, bufOut, params,
		ceilDiv(pairs, workgroupSize), 1); err != nil {
		return nil, err
	}
	return readF32(rt, bufOut, seqLen*headDim)
}

// Gather is the device kernel selecting rows by index.
// Args: F32[0]=src, I32[0]=indices, Dims=[rows,cols].
func Gather(rt *dispatch.Runtime, args dispatch.Args) ([]float32, error) {
	rows, cols := args.Dims[0], args.Dims[1]
	indices := args.I32[0]
	for _, idx := range indices {
		if idx < 0 || int(idx) >= rows {
			return nil, fmt.Errorf("kernels: gather index %d out of range [0,%d)", idx, rows)
		}
	}

	bufSrc := rt.Arena.Stage(buffers.F32Bytes(args.F32[0]), storageUsage)
	defer bufSrc.Release()
	bufIdx := rt.Arena.Stage(buffers.I32Bytes(indices), storageUsage)
	defer bufIdx.Release()
	count := len(indices)
	bufOut := rt.Arena.Alloc(uint64(count*cols)*4, resultUsage)
	defer bufOut.Release()

	params := packWords(uint32(count), uint32(cols))
	if err := submit(rt, "gather", gatherShader, []*buffers.Buffer{bufSrc, bufIdx}, bufOut, params,
		ceilDiv(count*cols, workgroupSize), 1); err != nil {
		return nil, err
	}
	return readF32(rt, bufOut, count*cols)
}

// FlashAttention is the fused attention device kernel. It has no host
// reference twin; the suite judges it against the unfused attention
// reference instead.
// Args: F32[0]=q, F32[1]=k, F32[2]=v, Dims=[seqQ,seqKV,headDim],
// Scalars[0]=scale.
func FlashAttention(rt *dispatch.Runtime, args dispatch.Args) ([]float32, error) {
	seqQ, seqKV, headDim := args.Dims[0], args.Dims[1], args.Dims[2]
	scale := args.Scalars[0]
	if len(args.F32[0]) != seqQ*headDim || len(args.F32[1]) != seqKV*headDim || len(args.F32[2]) != seqKV*headDim {
		return nil, fmt.Errorf("kernels: flash attention inputs do not match dims [%d,%d,%d]", seqQ, seqKV, headDim)
	}

	bufQ := rt.Arena.Stage(buffers.F32Bytes(args.F32[0]), storageUsage)
	defer bufQ.Release()
	bufK := rt.Arena.Stage(buffers.F32Bytes(args.F32[1]), storageUsage)
	defer bufK.Release()
	bufV := rt.Arena.Stage(buffers.F32Bytes(args.F32[2]), storageUsage)
	defer bufV.Release()
	bufOut := rt.Arena.Alloc(uint64(seqQ*headDim)*4, resultUsage)
	defer bufOut.Release()

	params := packWords(uint32(seqQ), uint32(seqKV), uint32(headDim), math.Float32bits(scale))
	if err := submit(rt, "flash_attention", flashAttentionShader, []*buffers.Buffer{bufQ, bufK, bufV}, bufOut, params,
		ceilDiv(seqQ, 64), 1); err != nil {
		return nil, err
	}
	return readF32(rt, bufOut, seqQ*headDim)
}
