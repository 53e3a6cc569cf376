// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package harness exposes the uniform operation catalog a conformance
// driver enumerates and invokes by name, and the suite runner that
// exercises every entry against its reference.
package harness

import (
	"github.com/born-ml/kerncheck/internal/dispatch"
	"github.com/born-ml/kerncheck/internal/kernels"
	"github.com/born-ml/kerncheck/internal/quant"
	"github.com/born-ml/kerncheck/internal/ref"
	"github.com/born-ml/kerncheck/internal/tolerance"
)

// Catalog returns every testable operation. Argument layouts:
//
//	matmul          F32[A, B]                Dims[M, K, N]
//	matmul_scaled   F32[A, B]                Dims[M, K, N]       Scalars[alpha]
//	matmul_q8_0     F32[A] Raw[B]            Dims[M, K, N]
//	matmul_q4_k     F32[A] Raw[B]            Dims[M, K, N]
//	matmul_q6_k     F32[A] Raw[B]            Dims[M, K, N]
//	softmax         F32[x]                   Dims[rows, cols]
//	topk            F32[x]                   Dims[k]
//	attention       F32[q, k, v]             Dims[seqQ, seqKV, headDim]  Scalars[scale]
//	flash_attention F32[q, k, v]             Dims[seqQ, seqKV, headDim]  Scalars[scale]
//	rmsnorm         F32[x, weight]           Dims[rows, cols]    Scalars[eps]
//	silu, gelu      F32[x]
//	swiglu, geglu   F32[gate, up]
//	gather          F32[src] I32[indices]    Dims[rows, cols]
//	scatter_add     F32[dst, src] I32[idx]   Dims[dstRows, cols]
//	moe_route       F32[logits]              Dims[tokens, experts, k]
//	rope            F32[x]                   Dims[seqLen, headDim]  Scalars[base]
//	dequant_q8_0    Raw[payload]
//	dequant_q4_k    Raw[payload]
//	dequant_q6_k    Raw[payload]
//
// Operations returning index data (topk, moe_route) flatten it after the
// value data as float32-converted indices, keeping the run contract
// uniform across the catalog.
func Catalog() []dispatch.Op {
	return []dispatch.Op{
		{
			Name:   "matmul",
			Mode:   dispatch.DeviceBacked,
			Kernel: kernels.MatMul,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.MatMul(a.F32[0], a.F32[1], a.Dims[0], a.Dims[1], a.Dims[2])
			},
			Tolerance: tolerance.Spec{Abs: 1e-3, Rel: 1e-3},
		},
		{
			// Scaled-output variant: declared reference-only policy.
			Name: "matmul_scaled",
			Mode: dispatch.ReferenceBacked,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.MatMulScaled(a.F32[0], a.F32[1], a.Dims[0], a.Dims[1], a.Dims[2], a.Scalars[0])
			},
			Tolerance: tolerance.Spec{Abs: 1e-3, Rel: 1e-3},
		},
		{
			Name:   "matmul_q8_0",
			Mode:   dispatch.DeviceBacked,
			Kernel: kernels.MatMulQ8,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.MatMulQuant(a.F32[0], a.Raw[0], quant.Q8_0, a.Dims[0], a.Dims[1], a.Dims[2])
			},
			Tolerance: tolerance.Spec{Abs: 1e-2, Rel: 1e-2},
		},
		{
			Name: "matmul_q4_k",
			Mode: dispatch.ReferenceBacked,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.MatMulQuant(a.F32[0], a.Raw[0], quant.Q4_K, a.Dims[0], a.Dims[1], a.Dims[2])
			},
			Tolerance: tolerance.Spec{Abs: 5e-2, Rel: 5e-2},
		},
		{
			Name: "matmul_q6_k",
			Mode: dispatch.ReferenceBacked,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.MatMulQuant(a.F32[0], a.Raw[0], quant.Q6_K, a.Dims[0], a.Dims[1], a.Dims[2])
			},
			Tolerance: tolerance.Spec{Abs: 5e-2, Rel: 5e-2},
		},
		{
			Name:   "softmax",
			Mode:   dispatch.DeviceBacked,
			Kernel: kernels.Softmax,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.Softmax(a.F32[0], a.Dims[0], a.Dims[1])
			},
			Tolerance: tolerance.Spec{Abs: 1e-5, Rel: 1e-4},
		},
		{
			Name: "topk",
			Mode: dispatch.ReferenceBacked,
			Reference: func(a dispatch.Args) ([]float32, error) {
				values, indices, err := ref.TopK(a.F32[0], a.Dims[0])
				if err != nil {
					return nil, err
				}
				return flattenIndexed(values, indices), nil
			},
			Tolerance: tolerance.Spec{Abs: 1e-6, Rel: 1e-6},
		},
		{
			Name: "attention",
			Mode: dispatch.ReferenceBacked,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.Attention(a.F32[0], a.F32[1], a.F32[2], a.Dims[0], a.Dims[1], a.Dims[2], a.Scalars[0], false)
			},
			Tolerance: tolerance.Spec{Abs: 1e-3, Rel: 1e-3},
		},
		{
			// Fused attention exists only as a device entry point.
			Name:      "flash_attention",
			Mode:      dispatch.DeviceOnly,
			Kernel:    kernels.FlashAttention,
			Tolerance: tolerance.Spec{Abs: 1e-3, Rel: 1e-3},
		},
		{
			Name:   "rmsnorm",
			Mode:   dispatch.DeviceBacked,
			Kernel: kernels.RMSNorm,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.RMSNorm(a.F32[0], a.F32[1], a.Dims[0], a.Dims[1], a.Scalars[0])
			},
			Tolerance: tolerance.Spec{Abs: 1e-4, Rel: 1e-3},
		},
		{
			Name:   "silu",
			Mode:   dispatch.DeviceBacked,
			Kernel: kernels.SiLU,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.SiLU(a.F32[0]), nil
			},
			Tolerance: tolerance.Spec{Abs: 1e-5, Rel: 1e-4},
		},
		{
			Name:   "gelu",
			Mode:   dispatch.DeviceBacked,
			Kernel: kernels.GELU,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.GELU(a.F32[0]), nil
			},
			Tolerance: tolerance.Spec{Abs: 1e-4, Rel: 1e-3},
		},
		{
			// Gated-activation variants: declared reference-only policy.
			Name: "swiglu",
			Mode: dispatch.ReferenceBacked,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.SwiGLU(a.F32[0], a.F32[1])
			},
			Tolerance: tolerance.Spec{Abs: 1e-5, Rel: 1e-4},
		},
		{
			Name: "geglu",
			Mode: dispatch.ReferenceBacked,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.GeGLU(a.F32[0], a.F32[1])
			},
			Tolerance: tolerance.Spec{Abs: 1e-4, Rel: 1e-3},
		},
		{
			Name:   "gather",
			Mode:   dispatch.DeviceBacked,
			Kernel: kernels.Gather,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.GatherRows(a.F32[0], a.I32[0], a.Dims[0], a.Dims[1])
			},
			Tolerance: tolerance.Spec{Abs: 0, Rel: 0}, // pure data movement
		},
		{
			Name: "scatter_add",
			Mode: dispatch.ReferenceBacked,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.ScatterAdd(a.F32[0], a.F32[1], a.I32[0], a.Dims[0], a.Dims[1])
			},
			Tolerance: tolerance.Spec{Abs: 1e-5, Rel: 1e-4},
		},
		{
			Name: "moe_route",
			Mode: dispatch.ReferenceBacked,
			Reference: func(a dispatch.Args) ([]float32, error) {
				indices, weights, err := ref.MoERoute(a.F32[0], a.Dims[0], a.Dims[1], a.Dims[2])
				if err != nil {
					return nil, err
				}
				return flattenIndexed(weights, indices), nil
			},
			Tolerance: tolerance.Spec{Abs: 1e-5, Rel: 1e-4},
		},
		{
			Name:    "rope",
			Mode:    dispatch.DeviceBacked,
			Kernel:  kernels.Rope,
			Prepare: prepareRope,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.Rope(a.F32[0], a.F32[1], a.F32[2], a.Dims[0], a.Dims[1])
			},
			Tolerance: tolerance.Spec{Abs: 1e-4, Rel: 1e-3},
		},
		{
			Name:   "dequant_q8_0",
			Mode:   dispatch.DeviceBacked,
			Kernel: kernels.DequantQ8,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.Dequantize(a.Raw[0], quant.Q8_0)
			},
			Tolerance: tolerance.Spec{Abs: 1e-6, Rel: 1e-6},
		},
		{
			Name: "dequant_q4_k",
			Mode: dispatch.ReferenceBacked,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.Dequantize(a.Raw[0], quant.Q4_K)
			},
			Tolerance: tolerance.Spec{Abs: 1e-6, Rel: 1e-6},
		},
		{
			Name: "dequant_q6_k",
			Mode: dispatch.ReferenceBacked,
			Reference: func(a dispatch.Args) ([]float32, error) {
				return ref.Dequantize(a.Raw[0], quant.Q6_K)
			},
			Tolerance: tolerance.Spec{Abs: 1e-6, Rel: 1e-6},
		},
	}
}

// prepareRope derives the rotation angle tables from the shape parameters
// and appends them as inputs. Both the device and reference paths consume
// the same tables.
func prepareRope(a dispatch.Args) (dispatch.Args, error) {
	if len(a.F32) >= 3 {
		return a, nil // tables already supplied
	}
	cos, sin, err := ref.RopeTable(a.Dims[0], a.Dims[1], a.Scalars[0])
	if err != nil {
		return dispatch.Args{}, err
	}
	a.F32 = append(a.F32[:1:1], cos, sin)
	return a, nil
}

// flattenIndexed packs value data followed by float-converted index data
// into the uniform float32 result shape.
func flattenIndexed(values []float32, indices []int32) []float32 {
	out := make([]float32, 0, len(values)+len(indices))
	out = append(out, values...)
	for _, idx := range indices {
		out = append(out, float32(idx))
	}
	return out
}
